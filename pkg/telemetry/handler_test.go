package telemetry

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*ParquetHandler, string) {
	t.Helper()
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(io.Discard, nil), dir)
	require.NoError(t, err)
	return h, dir
}

func readRecords(t *testing.T, dir string) []LogRecord {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)

	var records []LogRecord
	for _, f := range files {
		rs, err := parquet.ReadFile[LogRecord](f)
		require.NoError(t, err)
		records = append(records, rs...)
	}
	return records
}

func TestHandlerBuffersOnlyErrors(t *testing.T) {
	h, dir := newTestHandler(t)
	log := slog.New(h)

	log.Info("routine")
	log.Error("boom", "attempts", 3)
	require.NoError(t, h.Flush())

	records := readRecords(t, dir)
	require.Len(t, records, 1)
	assert.Equal(t, "boom", records[0].Message)
	assert.Equal(t, "ERROR", records[0].Level)
	assert.Contains(t, records[0].Attributes, "attempts")
}

func TestDerivedHandlersShareFlushBuffer(t *testing.T) {
	h, dir := newTestHandler(t)

	// With and WithGroup derive new handlers; their records must still
	// drain when the root handler flushes at shutdown.
	slog.New(h).With("component", "search").Error("derived attrs")
	slog.New(h).WithGroup("db").Error("derived group")
	slog.New(h).Error("root")

	require.NoError(t, h.Flush())

	records := readRecords(t, dir)
	require.Len(t, records, 3)

	messages := make([]string, 0, len(records))
	for _, r := range records {
		messages = append(messages, r.Message)
	}
	assert.ElementsMatch(t, []string{"derived attrs", "derived group", "root"}, messages)
}

func TestFlushWithEmptyBufferWritesNothing(t *testing.T) {
	h, dir := newTestHandler(t)
	require.NoError(t, h.Flush())

	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	assert.Empty(t, files)
}
