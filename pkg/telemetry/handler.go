// Package telemetry provides a slog handler that records error-level log
// entries to Parquet files for offline analysis.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// LogRecord represents a single log entry for Parquet storage
type LogRecord struct {
	ID         string    `parquet:"id"`
	Timestamp  time.Time `parquet:"timestamp"`
	Level      string    `parquet:"level"`
	Message    string    `parquet:"message"`
	SourceFile string    `parquet:"source_file"`
	LineNumber int       `parquet:"line_number"`
	Attributes string    `parquet:"attributes"` // JSON string
}

// ParquetHandler is a slog.Handler that writes error logs to Parquet files
// while passing every record to the next handler in the chain. Handlers
// derived via WithAttrs/WithGroup share the root handler's buffer, so a
// single Flush on the root drains records from every derived logger.
type ParquetHandler struct {
	next slog.Handler
	buf  *recordBuffer
}

// recordBuffer is the flush unit shared by a handler and all its
// derivatives.
type recordBuffer struct {
	outputDir string
	batchSize int
	mu        sync.Mutex
	records   []LogRecord
}

// NewParquetHandler creates a new ParquetHandler writing under outputDir.
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	return &ParquetHandler{
		next: next,
		buf: &recordBuffer{
			outputDir: outputDir,
			batchSize: 100,
			records:   make([]LogRecord, 0, 100),
		},
	}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}

	// Only errors and above go to Parquet.
	if r.Level < slog.LevelError {
		return nil
	}

	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	attrsJSON, _ := json.Marshal(attrs)

	fs := runtime.CallersFrames([]uintptr{r.PC})
	f, _ := fs.Next()

	record := LogRecord{
		ID:         uuid.New().String(),
		Timestamp:  r.Time.UTC(),
		Level:      r.Level.String(),
		Message:    r.Message,
		SourceFile: f.File,
		LineNumber: f.Line,
		Attributes: string(attrsJSON),
	}

	b := h.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, record)
	if len(b.records) >= b.batchSize {
		return b.flush()
	}
	return nil
}

// Flush writes any buffered records out, including records logged through
// derived handlers. Called on shutdown.
func (h *ParquetHandler) Flush() error {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return h.buf.flush()
}

// flush writes the current buffer to a new Parquet file.
// Caller must hold the lock.
func (b *recordBuffer) flush() error {
	if len(b.records) == 0 {
		return nil
	}

	filename := fmt.Sprintf("errors_%s_%d.parquet", time.Now().Format("20060102_150405"), time.Now().UnixNano())
	path := filepath.Join(b.outputDir, filename)

	if err := parquet.WriteFile(path, b.records); err != nil {
		return fmt.Errorf("failed to write telemetry parquet file: %w", err)
	}

	b.records = b.records[:0]
	return nil
}

// WithAttrs implements slog.Handler. The derived handler keeps writing into
// the same buffer as its parent.
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{next: h.next.WithAttrs(attrs), buf: h.buf}
}

// WithGroup implements slog.Handler. The derived handler keeps writing into
// the same buffer as its parent.
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{next: h.next.WithGroup(name), buf: h.buf}
}
