package writer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"h2oData/src/config"
	"h2oData/src/spec"
	"h2oData/src/util"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/br/pkg/storage"
)

// parquetWriter streams record batches as parquet, one row group per batch.
type parquetWriter struct {
	file storage.ExternalFileWriter
	enc  *pqarrow.FileWriter
}

func getParquetCompressionCodec(name string) (compress.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "uncompressed", "none":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unsupported parquet compression: %q", name)
	}
}

func writerProperties(cfg *config.ParquetConfig) (*parquet.WriterProperties, error) {
	codec, err := getParquetCompressionCodec(cfg.Compression)
	if err != nil {
		return nil, errors.Trace(err)
	}
	pageSize := cfg.PageSizeBytes
	if pageSize <= 0 {
		pageSize = parquet.DefaultDataPageSize
	}
	return parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDataPageSize(pageSize),
		parquet.WithDataPageVersion(parquet.DataPageV2),
		parquet.WithVersion(parquet.V2_LATEST),
	), nil
}

func newArrowFileWriter(
	schema *arrow.Schema,
	sink io.Writer,
	props *parquet.WriterProperties,
) (*pqarrow.FileWriter, error) {
	enc, err := pqarrow.NewFileWriter(schema, sink, props, pqarrow.DefaultWriterProps())
	return enc, errors.Trace(err)
}

func newParquetWriter(
	ctx context.Context,
	file storage.ExternalFileWriter,
	plan *spec.Plan,
	cfg *config.ParquetConfig,
) (*parquetWriter, error) {
	props, err := writerProperties(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}

	enc, err := newArrowFileWriter(plan.Schema(), util.NewContextWriter(ctx, file), props)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &parquetWriter{file: file, enc: enc}, nil
}

func (w *parquetWriter) Append(ctx context.Context, rec arrow.Record) error {
	// Write starts a fresh row group per record.
	return errors.Trace(w.enc.Write(rec))
}

func (w *parquetWriter) Finalize(ctx context.Context) error {
	if err := w.enc.Close(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.file.Close(ctx))
}

func (w *parquetWriter) SupportsIncrementalAppend() bool {
	return true
}
