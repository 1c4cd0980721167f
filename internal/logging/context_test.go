package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextFields_Empty(t *testing.T) {
	ctx := context.Background()
	fields := ContextFields(ctx)
	assert.Empty(t, fields)
}

func TestContextFields_Session(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess_123")

	fields := ContextFields(ctx)

	assert.Len(t, fields, 1)
	assertFieldExists(t, fields, "session.id", "sess_123")
}

func TestContextFields_Run(t *testing.T) {
	ctx := WithRunID(context.Background(), "run_456")

	fields := ContextFields(ctx)

	assert.Len(t, fields, 1)
	assertFieldExists(t, fields, "run.id", "run_456")
}

func TestContextFields_SessionAndRun(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess_123")
	ctx = WithRunID(ctx, "run_456")

	fields := ContextFields(ctx)

	assert.Len(t, fields, 2)
	assertFieldExists(t, fields, "session.id", "sess_123")
	assertFieldExists(t, fields, "run.id", "run_456")
}

func assertFieldExists(t *testing.T, fields []zap.Field, key, expected string) {
	t.Helper()
	for _, field := range fields {
		if field.Key == key && field.String == expected {
			return
		}
	}
	t.Errorf("field %q with value %q not found", key, expected)
}

func TestLogger_InContext(t *testing.T) {
	logger := &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
	ctx := WithLogger(context.Background(), logger)

	retrieved := FromContext(ctx)
	assert.Equal(t, logger, retrieved)
}

func TestLogger_FromContextMissing(t *testing.T) {
	ctx := context.Background()
	retrieved := FromContext(ctx)

	// Should return default logger (nop for test)
	assert.NotNil(t, retrieved)
}

func TestWithSessionID_Valid(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
	}{
		{"simple", "sess_123"},
		{"with hyphens", "sess-abc-123"},
		{"with underscores", "sess_abc_123"},
		{"alphanumeric", "sessABC123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithSessionID(context.Background(), tt.sessionID)
			retrieved := SessionIDFromContext(ctx)
			assert.Equal(t, tt.sessionID, retrieved)
		})
	}
}

func TestWithSessionID_EmptyPanics(t *testing.T) {
	assert.PanicsWithValue(t, "logging: sessionID cannot be empty", func() {
		WithSessionID(context.Background(), "")
	})
}

func TestWithSessionID_TooLongPanics(t *testing.T) {
	longID := string(make([]byte, 129))
	for i := range longID {
		longID = longID[:i] + "a" + longID[i+1:]
	}

	assert.Panics(t, func() {
		WithSessionID(context.Background(), longID)
	})
}

func TestWithRunID_Valid(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-abc-456")
	assert.Equal(t, "run-abc-456", RunIDFromContext(ctx))
}

func TestWithRunID_EmptyPanics(t *testing.T) {
	assert.PanicsWithValue(t, "logging: runID cannot be empty", func() {
		WithRunID(context.Background(), "")
	})
}
