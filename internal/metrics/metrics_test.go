package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordScan_IncrementsCounters(t *testing.T) {
	ConversationsIndexed.Reset()
	MessagesIndexed.Reset()

	RecordScan("codex", 0.5, 3, 12, false)

	if got := testutil.ToFloat64(ConversationsIndexed.WithLabelValues("codex", "ok")); got != 3 {
		t.Errorf("expected 3 conversations recorded, got %v", got)
	}
	if got := testutil.ToFloat64(MessagesIndexed.WithLabelValues("codex")); got != 12 {
		t.Errorf("expected 12 messages recorded, got %v", got)
	}
}

func TestRecordScan_FailureLabel(t *testing.T) {
	ConversationsIndexed.Reset()
	RecordScan("aider", 0.1, 0, 0, true)
	if got := testutil.ToFloat64(ConversationsIndexed.WithLabelValues("aider", "error")); got != 0 {
		t.Errorf("expected error label registered with value 0, got %v", got)
	}
}

func TestRecordSearch_TracksBackend(t *testing.T) {
	SearchBackendUsed.Reset()
	RecordSearch("relational", 0.01)
	RecordSearch("invindex", 0.02)

	if got := testutil.ToFloat64(SearchBackendUsed.WithLabelValues("relational")); got != 1 {
		t.Errorf("expected 1 relational query, got %v", got)
	}
	if got := testutil.ToFloat64(SearchBackendUsed.WithLabelValues("invindex")); got != 1 {
		t.Errorf("expected 1 invindex query, got %v", got)
	}
}

func TestSetModelState_ZeroesOtherStates(t *testing.T) {
	SetModelState("ready")
	if got := testutil.ToFloat64(ModelDownloadState.WithLabelValues("ready")); got != 1 {
		t.Errorf("expected ready=1, got %v", got)
	}
	if got := testutil.ToFloat64(ModelDownloadState.WithLabelValues("downloading")); got != 0 {
		t.Errorf("expected downloading=0, got %v", got)
	}
}
