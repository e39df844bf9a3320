package writer

import (
	"context"

	"h2oData/src/config"
	"h2oData/src/spec"
	"h2oData/src/util"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/br/pkg/storage"
)

// csvWriter streams record batches as CSV. Each Append is flushed through to
// the storage writer, so an aborted run leaves exactly the appended batches
// behind the header.
type csvWriter struct {
	file storage.ExternalFileWriter
	sink *util.ContextWriter
	enc  *csv.Writer
}

func newCSVWriter(
	ctx context.Context,
	file storage.ExternalFileWriter,
	plan *spec.Plan,
	cfg *config.CSVConfig,
) (*csvWriter, error) {
	sep := ','
	if cfg.Separator != "" {
		sep = rune(cfg.Separator[0])
	}

	sink := util.NewContextWriter(ctx, file)
	enc := csv.NewWriter(sink, plan.Schema(),
		csv.WithHeader(true),
		csv.WithComma(sep),
		csv.WithNullWriter(""),
		csv.WithCRLF(cfg.EndLine == "\r\n"),
	)
	return &csvWriter{file: file, sink: sink, enc: enc}, nil
}

func (w *csvWriter) Append(ctx context.Context, rec arrow.Record) error {
	if err := w.enc.Write(rec); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.enc.Flush())
}

func (w *csvWriter) Finalize(ctx context.Context) error {
	if err := w.enc.Flush(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.file.Close(ctx))
}

func (w *csvWriter) SupportsIncrementalAppend() bool {
	return true
}
