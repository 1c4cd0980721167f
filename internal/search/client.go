// Package search implements cass's hybrid query pipeline: the relational
// store's BM25 full-text index first, the inverted index as a fallback when
// that returns nothing, then a shared noise/dedup post-filter.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/cass/internal/invindex"
	"github.com/fyrsmithlabs/cass/internal/metrics"
	"github.com/fyrsmithlabs/cass/internal/store"
	"github.com/fyrsmithlabs/cass/internal/textnorm"
)

// ErrNoBackend is returned by Open when neither the relational store nor
// the inverted index is available.
var ErrNoBackend = errors.New("search: no backend available")

// Filters narrows a query by agent, workspace, and creation time.
type Filters struct {
	Agents      []string
	Workspaces  []string
	CreatedFrom *int64
	CreatedTo   *int64
}

// Hit is one ranked search result.
type Hit struct {
	Title      string
	Snippet    string
	Content    string
	Score      float64
	SourcePath string
	Agent      string
	Workspace  string
	CreatedAt  *int64
	LineNumber *int
}

// Client is a search session over a relational store and/or an inverted
// index reader. At least one backend must be present.
type Client struct {
	db  *store.Store
	inv *invindex.Reader
}

// Open builds a Client from an already-open store and/or inverted-index
// reader. Either may be nil, but not both.
func Open(db *store.Store, inv *invindex.Reader) (*Client, error) {
	if db == nil && inv == nil {
		return nil, ErrNoBackend
	}
	return &Client{db: db, inv: inv}, nil
}

// Search runs the hybrid pipeline: sanitize, relational FTS5 first with a
// 3x overfetch, inverted-index fallback only when the relational backend
// returns zero hits, noise filtering, dedup by normalized content, then a
// truncation to limit.
func (c *Client) Search(ctx context.Context, query string, filters Filters, limit, offset int) ([]Hit, error) {
	start := time.Now()
	backend := "none"
	defer func() { metrics.RecordSearch(backend, time.Since(start).Seconds()) }()

	sanitized := textnorm.SanitizeQuery(query)
	if sanitized == "" {
		return nil, nil
	}
	overfetch := limit * 3
	if overfetch <= 0 {
		overfetch = limit
	}

	var hits []Hit
	if c.db != nil {
		storeHits, err := c.db.SearchFTS(ctx, sanitized, store.Filters{
			Agents:      filters.Agents,
			Workspaces:  filters.Workspaces,
			CreatedFrom: filters.CreatedFrom,
			CreatedTo:   filters.CreatedTo,
		}, overfetch)
		if err != nil {
			return nil, fmt.Errorf("search: relational backend: %w", err)
		}
		hits = fromStoreHits(storeHits)
		if len(hits) > 0 {
			backend = "relational"
		}
	}

	if len(hits) == 0 && c.inv != nil {
		invHits := c.inv.Search(sanitized, invindex.Filters{
			Agents:      filters.Agents,
			Workspaces:  filters.Workspaces,
			CreatedFrom: filters.CreatedFrom,
			CreatedTo:   filters.CreatedTo,
		}, overfetch)
		hits = fromInvindexHits(invHits)
		if len(hits) > 0 {
			backend = "invindex"
		}
	}

	hits = postFilter(hits)

	if offset > 0 {
		if offset >= len(hits) {
			return nil, nil
		}
		hits = hits[offset:]
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func fromStoreHits(in []store.Hit) []Hit {
	out := make([]Hit, 0, len(in))
	for _, h := range in {
		out = append(out, Hit{
			Title:      h.Title,
			Snippet:    h.Snippet,
			Content:    h.Content,
			Score:      h.Score,
			SourcePath: h.SourcePath,
			Agent:      h.Agent,
			Workspace:  h.Workspace,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}

func fromInvindexHits(in []invindex.Hit) []Hit {
	out := make([]Hit, 0, len(in))
	for _, h := range in {
		lineNumber := h.MsgIdx + 1
		out = append(out, Hit{
			Title:      h.Title,
			Snippet:    h.Snippet,
			Content:    h.Content,
			Score:      h.Score,
			SourcePath: h.SourcePath,
			Agent:      h.Agent,
			Workspace:  h.Workspace,
			CreatedAt:  h.CreatedAt,
			LineNumber: &lineNumber,
		})
	}
	return out
}

// postFilter drops tool-invocation noise, then keeps the highest-scoring
// hit per normalized-whitespace content key. Both backends return hits
// already ordered best-first (FTS5's bm25 ascending, the inverted index's
// TF-IDF descending), so "highest-scoring" reduces to "first seen" here
// rather than comparing raw scores across the two different scales.
func postFilter(hits []Hit) []Hit {
	seen := make(map[string]bool, len(hits))
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if textnorm.IsToolNoise(h.Content) {
			continue
		}
		key := textnorm.DedupeKey(h.Content)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}
