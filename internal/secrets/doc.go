// Package secrets provides an optional redaction pass run over message
// content before it is persisted by the indexer, using the Gitleaks SDK's
// default rule set (800+ patterns: cloud provider keys, tokens, private
// key blocks, database connection strings).
//
// Redaction replaces each match with a marker that preserves rule
// identity and a short preview but never the secret value itself, so a
// redacted message still matches searches on surrounding words.
package secrets
