package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Filters narrows a full-text query by agent, workspace, and creation time.
type Filters struct {
	Agents      []string
	Workspaces  []string
	CreatedFrom *int64
	CreatedTo   *int64
}

// Hit is one full-text match, ordered by BM25 score (lower is better, per
// FTS5 convention).
type Hit struct {
	Title      string
	Snippet    string
	Content    string
	Score      float64
	Agent      string
	Workspace  string
	SourcePath string
	CreatedAt  *int64
	MessageID  int64
}

// SearchFTS runs query against the BM25-ranked full-text index, returning at
// most limit hits ordered best-first. query must already be sanitized
// (hyphens/dashes replaced with spaces); an empty query matches nothing.
func (s *Store) SearchFTS(ctx context.Context, query string, filters Filters, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	var conds []string
	args := []any{ftsMatchQuery(query)}

	if len(filters.Agents) > 0 {
		conds = append(conds, "agent IN ("+placeholders(len(filters.Agents))+")")
		for _, a := range filters.Agents {
			args = append(args, a)
		}
	}
	if len(filters.Workspaces) > 0 {
		conds = append(conds, "workspace IN ("+placeholders(len(filters.Workspaces))+")")
		for _, w := range filters.Workspaces {
			args = append(args, w)
		}
	}
	if filters.CreatedFrom != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filters.CreatedFrom)
	}
	if filters.CreatedTo != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *filters.CreatedTo)
	}

	where := "fts_messages MATCH ?"
	if len(conds) > 0 {
		where += " AND " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)

	q := fmt.Sprintf(`
		SELECT
			title,
			snippet(fts_messages, 1, '**', '**', '...', 64),
			content,
			bm25(fts_messages),
			agent,
			workspace,
			source_path,
			created_at,
			message_id
		FROM fts_messages
		WHERE %s
		ORDER BY bm25(fts_messages) ASC
		LIMIT ?`, where)

	rows, err := s.read.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var title, workspace sql.NullString
		var createdAt sql.NullInt64
		if err := rows.Scan(&title, &h.Snippet, &h.Content, &h.Score, &h.Agent, &workspace, &h.SourcePath, &createdAt, &h.MessageID); err != nil {
			return nil, fmt.Errorf("store: scan search row: %w", err)
		}
		h.Title = title.String
		h.Workspace = workspace.String
		if createdAt.Valid {
			v := createdAt.Int64
			h.CreatedAt = &v
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: search rows: %w", err)
	}
	return hits, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ftsMatchQuery quotes each term so punctuation in the sanitized query
// cannot be parsed as FTS5 query syntax.
func ftsMatchQuery(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}
