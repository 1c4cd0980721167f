// Package invindex is a from-scratch, in-process full-text index used as a
// fallback search backend when the relational store's FTS5 index returns no
// hits. There is no full-text indexing library anywhere in the example
// corpus this was grounded on, so the engine is a simple append-only
// JSON-lines document log plus an in-memory posting-list index rebuilt on
// every Open, rather than a segmented on-disk format.
package invindex
