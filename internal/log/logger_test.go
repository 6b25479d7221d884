package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentTracker, Output: &buf})

	l.Info("expense added", FieldIndex, 3)

	out := buf.String()
	assert.Contains(t, out, "component=tracker")
	assert.Contains(t, out, "index=3")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestFieldsToSliceIsSorted(t *testing.T) {
	got := NewFields().WithOperation(OpAdd).WithIndex(2).ToSlice()
	assert.Equal(t, []any{FieldIndex, 2, FieldOperation, OpAdd}, got)
}

func TestMiddlewareStoresLoggerWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	h := Middleware(base)(RequestIDMiddleware(func(context.Context) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, buf.String(), "request_id=req_1")
	assert.Contains(t, buf.String(), "component=http")
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())
}

func TestLogAtLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentHTTP, Output: &buf})

	l.Log(context.Background(), slog.LevelInfo, "dropped")
	assert.Empty(t, buf.String())

	l.Log(context.Background(), slog.LevelError, "kept", FieldStatusCode, 500)
	assert.Contains(t, buf.String(), "component=http")
	assert.Contains(t, buf.String(), "status_code=500")
}
