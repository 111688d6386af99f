package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler_AddsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json")

	ctx := Ctx(context.Background(), slog.String("run_id", "abc"))
	ctx = Ctx(ctx, slog.String("site", "vroom-be"))
	l.InfoContext(ctx, "uploaded", "document", "tags-sitemap.xml")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "abc", rec["run_id"])
	assert.Equal(t, "vroom-be", rec["site"])
	assert.Equal(t, "tags-sitemap.xml", rec["document"])
}

func TestCtx_SiblingsDoNotShareAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json")

	parent := Ctx(context.Background(), slog.String("run_id", "abc"))
	a := Ctx(parent, slog.String("document", "a.xml"))
	_ = Ctx(parent, slog.String("document", "b.xml"))

	l.With("component", "test").InfoContext(a, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "a.xml", rec["document"])
	assert.Equal(t, "test", rec["component"])
}
