package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fyrsmithlabs/cass/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cass.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func int64p(v int64) *int64 { return &v }

func TestUpsertConversation_InsertsAndSearches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv := model.Conversation{
		AgentSlug:  "codex",
		ExternalID: "sess-1",
		Title:      "Debugging the flaky test",
		Workspace:  "/home/me/proj",
		SourcePath: "/home/me/.codex/sessions/sess-1.jsonl",
		StartedAt:  int64p(1000),
		EndedAt:    int64p(2000),
		Messages: []model.Message{
			{Idx: 0, Role: "user", Content: "why is the flaky test flaky", CreatedAt: int64p(1000)},
			{Idx: 1, Role: "assistant", Content: "it races on a shared temp file", CreatedAt: int64p(1500)},
		},
	}

	id, err := s.UpsertConversation(ctx, conv)
	if err != nil {
		t.Fatalf("UpsertConversation: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero conversation id")
	}

	hits, err := s.SearchFTS(ctx, "flaky", Filters{}, 10)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d: %+v", len(hits), hits)
	}
	if hits[0].Agent != "codex" || hits[0].SourcePath != conv.SourcePath {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
}

func TestUpsertConversation_ReingestReplacesMessages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv := model.Conversation{
		AgentSlug:  "aider",
		SourcePath: "/home/me/proj/.aider.chat.history.md",
		Messages: []model.Message{
			{Idx: 0, Role: "user", Content: "first version of the question"},
		},
	}
	id1, err := s.UpsertConversation(ctx, conv)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	conv.Messages = []model.Message{
		{Idx: 0, Role: "user", Content: "revised question about widgets"},
	}
	id2, err := s.UpsertConversation(ctx, conv)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same conversation id across re-ingest, got %d and %d", id1, id2)
	}

	hits, err := s.SearchFTS(ctx, "first version", Filters{}, 10)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected stale message to be gone, got %+v", hits)
	}

	hits, err = s.SearchFTS(ctx, "widgets", Filters{}, 10)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit for revised content, got %d", len(hits))
	}
}

func TestUpsertConversation_MissingIdentityKeyErrors(t *testing.T) {
	s := openTestStore(t)
	_, err := s.UpsertConversation(context.Background(), model.Conversation{})
	if err == nil {
		t.Fatal("expected error for conversation with no agent/source_path")
	}
}

func TestWatermark_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ts, err := s.Watermark(ctx, "codex")
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if ts != nil {
		t.Fatalf("expected nil watermark before any scan, got %v", *ts)
	}

	if err := s.SetWatermark(ctx, "codex", 12345); err != nil {
		t.Fatalf("SetWatermark: %v", err)
	}
	ts, err = s.Watermark(ctx, "codex")
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if ts == nil || *ts != 12345 {
		t.Fatalf("expected watermark 12345, got %v", ts)
	}

	if err := s.SetWatermark(ctx, "codex", 99999); err != nil {
		t.Fatalf("SetWatermark update: %v", err)
	}
	ts, err = s.Watermark(ctx, "codex")
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if ts == nil || *ts != 99999 {
		t.Fatalf("expected updated watermark 99999, got %v", ts)
	}
}

func TestSearchFTS_FiltersByAgent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, agent := range []string{"codex", "claude"} {
		conv := model.Conversation{
			AgentSlug:  agent,
			SourcePath: "/home/me/" + agent + ".log",
			Messages: []model.Message{
				{Idx: 0, Role: "user", Content: "shared keyword appears here"},
			},
		}
		if _, err := s.UpsertConversation(ctx, conv); err != nil {
			t.Fatalf("upsert %s: %v", agent, err)
		}
	}

	hits, err := s.SearchFTS(ctx, "shared keyword", Filters{Agents: []string{"claude"}}, 10)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(hits) != 1 || hits[0].Agent != "claude" {
		t.Fatalf("expected 1 hit from claude only, got %+v", hits)
	}
}

func TestSearchFTS_EmptyQueryReturnsNoHits(t *testing.T) {
	s := openTestStore(t)
	hits, err := s.SearchFTS(context.Background(), "   ", Filters{}, 10)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected nil hits for empty query, got %+v", hits)
	}
}
