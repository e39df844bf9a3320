package util

import (
	"context"
	"io"

	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/br/pkg/storage"
)

// progressFileWriter wraps a storage writer and updates progress for bytes
// written.
type progressFileWriter struct {
	writer   storage.ExternalFileWriter
	progress *ProgressLogger
}

func (w *progressFileWriter) Write(ctx context.Context, p []byte) (int, error) {
	n, err := w.writer.Write(ctx, p)
	w.progress.UpdateBytes(int64(n))
	return n, err
}

func (w *progressFileWriter) Close(ctx context.Context) error {
	return w.writer.Close(ctx)
}

// CreateFile opens a named file on the external storage, reporting written
// bytes to the progress logger.
func CreateFile(
	ctx context.Context,
	store storage.ExternalStorage,
	name string,
	progress *ProgressLogger,
) (storage.ExternalFileWriter, error) {
	writer, err := store.Create(ctx, name, &storage.WriterOption{
		Concurrency: 8,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &progressFileWriter{writer: writer, progress: progress}, nil
}

// ContextWriter adapts a storage writer to io.Writer for encoders that are
// not context-aware. The context is captured at construction and shared by
// all writes.
type ContextWriter struct {
	ctx    context.Context
	writer storage.ExternalFileWriter
}

func NewContextWriter(ctx context.Context, writer storage.ExternalFileWriter) *ContextWriter {
	return &ContextWriter{ctx: ctx, writer: writer}
}

func (w *ContextWriter) Write(p []byte) (int, error) {
	return w.writer.Write(w.ctx, p)
}

// CountingWriter counts bytes passed through to an inner io.Writer.
type CountingWriter struct {
	inner io.Writer
	total int64
}

func NewCountingWriter(inner io.Writer) *CountingWriter {
	return &CountingWriter{inner: inner}
}

func (w *CountingWriter) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)
	w.total += int64(n)
	return n, err
}

// Total returns the number of bytes written so far.
func (w *CountingWriter) Total() int64 {
	return w.total
}
