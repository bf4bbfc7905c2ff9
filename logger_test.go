package celltrack

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hupe1980/celltrack/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.WithComponent("spatial").WithTimepoint(3).Info("hello")
	assert.Contains(t, buf.String(), "component=spatial")
	assert.Contains(t, buf.String(), "timepoint=3")

	buf.Reset()
	l.LogSave(context.Background(), "a.ctrk", 0, 0, errors.New("boom"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	l.LogRebuild(context.Background(), 0, 0, nil)
	assert.Empty(t, buf.String(), "idle rebuild passes are not logged")
}

func TestLogger_SaveLoad(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewJSONHandler(&buf, nil))
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	m := newTestModel(t, WithLogger(l))
	_, err := m.AddVertex(0, []float64{0, 0, 0})
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, store, "m"))
	assert.Contains(t, buf.String(), `"msg":"model saved"`)
	assert.Contains(t, buf.String(), `"vertices":1`)

	buf.Reset()
	loaded, err := Load(ctx, store, "m", WithLogger(l))
	require.NoError(t, err)
	defer loaded.Close()
	assert.Contains(t, buf.String(), `"msg":"model loaded"`)

	buf.Reset()
	_, err = Load(ctx, store, "missing", WithLogger(l))
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"load failed"`)
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
