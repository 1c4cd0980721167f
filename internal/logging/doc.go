// Package logging provides structured logging built on zap.
//
// # Overview
//
// Logging package wraps Zap with:
//   - A custom Trace level (-2, below Debug)
//   - Automatic context field injection (run ID, session ID)
//
// There is no telemetry-backend fan-out here: internal/logging only
// ever constructs a local zap core writing JSON or console-formatted
// lines to stderr. Shipping those lines elsewhere is left to whatever
// wraps the process (journald, a log collector).
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithRunID(ctx, runID)
//	ctx = logging.WithSessionID(ctx, conversationID)
//	logger.Info(ctx, "indexed conversation", zap.Int("messages", n))
//
// # Configuration Precedence
//
// Configuration follows the same precedence as internal/appconfig:
//  1. Defaults (NewDefaultConfig)
//  2. File (config.yaml)
//  3. Environment variables (CASS_LOGGING_*)
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
