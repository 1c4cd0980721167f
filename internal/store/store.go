// Package store is the relational persistence layer for cass: conversations
// and messages in ordinary tables, a trigger-synced FTS5 virtual table for
// full-text search, and a per-connector watermark table for incremental
// scans.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/fyrsmithlabs/cass/internal/model"
)

// ErrConsistency is wrapped by errors raised when the store's invariants
// would be violated (e.g. a conversation with no identity key).
var ErrConsistency = errors.New("store: consistency error")

// ErrNotFound is returned when a lookup (watermark, conversation) finds no
// matching row.
var ErrNotFound = errors.New("store: not found")

const schemaDDL = `
CREATE TABLE IF NOT EXISTS conversations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	agent         TEXT NOT NULL,
	external_id   TEXT,
	title         TEXT,
	workspace     TEXT,
	source_path   TEXT NOT NULL,
	started_at    INTEGER,
	ended_at      INTEGER,
	metadata_json TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_external
	ON conversations (agent, external_id) WHERE external_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_source
	ON conversations (agent, source_path) WHERE external_id IS NULL;

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	idx             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	author          TEXT,
	created_at      INTEGER,
	content         TEXT NOT NULL,
	extra_json      TEXT,
	UNIQUE(conversation_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id);

CREATE TABLE IF NOT EXISTS watermarks (
	agent        TEXT PRIMARY KEY,
	last_scan_at INTEGER NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS fts_messages USING fts5(
	title,
	content,
	agent UNINDEXED,
	workspace UNINDEXED,
	source_path UNINDEXED,
	created_at UNINDEXED,
	message_id UNINDEXED
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO fts_messages(rowid, title, content, agent, workspace, source_path, created_at, message_id)
	SELECT NEW.id, c.title, NEW.content, c.agent, c.workspace, c.source_path, NEW.created_at, NEW.id
	FROM conversations c WHERE c.id = NEW.conversation_id;
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	DELETE FROM fts_messages WHERE rowid = OLD.id;
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	DELETE FROM fts_messages WHERE rowid = OLD.id;
	INSERT INTO fts_messages(rowid, title, content, agent, workspace, source_path, created_at, message_id)
	SELECT NEW.id, c.title, NEW.content, c.agent, c.workspace, c.source_path, NEW.created_at, NEW.id
	FROM conversations c WHERE c.id = NEW.conversation_id;
END;
`

// Store is a single SQLite database holding conversations, messages, the
// full-text index, and watermarks. Writes go through a single-connection
// handle to avoid SQLITE_BUSY; reads (including search) use a second
// read-only handle so a long-running search never blocks an in-flight scan.
type Store struct {
	write *sql.DB
	read  *sql.DB
}

// Open opens (or creates) a Store at path, running schema migration on the
// write handle. Use "file::memory:?cache=shared" for an in-process database
// in tests.
func Open(path string) (*Store, error) {
	writeDSN := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	write, err := sql.Open("sqlite", writeDSN)
	if err != nil {
		return nil, fmt.Errorf("store: open write handle %s: %w", path, err)
	}
	write.SetMaxOpenConns(1)

	if _, err := write.Exec(schemaDDL); err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	readDSN := "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)"
	read, err := sql.Open("sqlite", readDSN)
	if err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("store: open read handle %s: %w", path, err)
	}

	return &Store{write: write, read: read}, nil
}

// Close releases both database handles.
func (s *Store) Close() error {
	writeErr := s.write.Close()
	readErr := s.read.Close()
	if writeErr != nil {
		return fmt.Errorf("store: close write handle: %w", writeErr)
	}
	if readErr != nil {
		return fmt.Errorf("store: close read handle: %w", readErr)
	}
	return nil
}

// UpsertConversation replaces a conversation and all of its messages inside
// one transaction: the previous row set for the conversation's identity key
// (if any) is deleted, then the new rows are inserted. The full-text index
// stays in lockstep via triggers on the messages table.
func (s *Store) UpsertConversation(ctx context.Context, conv model.Conversation) (int64, error) {
	agent, key, byExternalID := conv.IdentityKey()
	if agent == "" || key == "" {
		return 0, fmt.Errorf("%w: conversation missing identity key", ErrConsistency)
	}

	tx, err := s.write.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existingID int64
	var lookupErr error
	if byExternalID {
		lookupErr = tx.QueryRowContext(ctx,
			`SELECT id FROM conversations WHERE agent = ? AND external_id = ?`, agent, key).Scan(&existingID)
	} else {
		lookupErr = tx.QueryRowContext(ctx,
			`SELECT id FROM conversations WHERE agent = ? AND external_id IS NULL AND source_path = ?`, agent, key).Scan(&existingID)
	}

	metaJSON := "null"
	if len(conv.Metadata) > 0 {
		metaJSON = string(conv.Metadata)
	}

	var convID int64
	switch {
	case lookupErr == nil:
		convID = existingID
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversations SET title = ?, workspace = ?, source_path = ?, started_at = ?, ended_at = ?, metadata_json = ? WHERE id = ?`,
			nullableString(conv.Title), nullableString(conv.Workspace), conv.SourcePath,
			nullableInt64(conv.StartedAt), nullableInt64(conv.EndedAt), metaJSON, convID,
		); err != nil {
			return 0, fmt.Errorf("store: update conversation: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, convID); err != nil {
			return 0, fmt.Errorf("store: clear prior messages: %w", err)
		}
	case errors.Is(lookupErr, sql.ErrNoRows):
		var externalID any
		if byExternalID {
			externalID = key
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (agent, external_id, title, workspace, source_path, started_at, ended_at, metadata_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			agent, externalID, nullableString(conv.Title), nullableString(conv.Workspace), conv.SourcePath,
			nullableInt64(conv.StartedAt), nullableInt64(conv.EndedAt), metaJSON,
		)
		if err != nil {
			return 0, fmt.Errorf("store: insert conversation: %w", err)
		}
		convID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("store: last insert id: %w", err)
		}
	default:
		return 0, fmt.Errorf("store: lookup conversation: %w", lookupErr)
	}

	for _, msg := range conv.Messages {
		extra := "null"
		if len(msg.Extra) > 0 {
			extra = string(msg.Extra)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, idx, role, author, created_at, content, extra_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			convID, msg.Idx, msg.Role, nullableString(msg.Author), nullableInt64(msg.CreatedAt), msg.Content, extra,
		); err != nil {
			return 0, fmt.Errorf("store: insert message %d: %w", msg.Idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return convID, nil
}

// Watermark returns the last successful scan time for agent, or nil if the
// agent has never completed a scan.
func (s *Store) Watermark(ctx context.Context, agent string) (*int64, error) {
	var ts int64
	err := s.write.QueryRowContext(ctx, `SELECT last_scan_at FROM watermarks WHERE agent = ?`, agent).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read watermark: %w", err)
	}
	return &ts, nil
}

// SetWatermark records ts as the last successful scan time for agent.
func (s *Store) SetWatermark(ctx context.Context, agent string, ts int64) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO watermarks (agent, last_scan_at) VALUES (?, ?)
		 ON CONFLICT(agent) DO UPDATE SET last_scan_at = excluded.last_scan_at`,
		agent, ts)
	if err != nil {
		return fmt.Errorf("store: set watermark: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// MarshalMetadata is a small convenience for connectors/tests that build
// Metadata from a plain map instead of hand-writing json.RawMessage.
func MarshalMetadata(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}
