package writer

import (
	"context"
	"strings"

	"h2oData/src/config"
	"h2oData/src/spec"
	"h2oData/src/util"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/br/pkg/storage"
)

// Format selects the on-disk encoding of a generated table.
type Format int

const (
	FormatCSV Format = iota
	FormatParquet
	FormatDelta
)

// ParseFormat resolves a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "parquet":
		return FormatParquet, nil
	case "delta":
		return FormatDelta, nil
	default:
		return 0, errors.Annotatef(spec.ErrInvalidParameter,
			"format must be csv, parquet or delta, got %q", name)
	}
}

// Ext returns the file name suffix for the format. Delta tables are
// directories and have none.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatParquet:
		return ".parquet"
	default:
		return ""
	}
}

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatParquet:
		return "parquet"
	case FormatDelta:
		return "delta"
	default:
		return "unknown"
	}
}

// FormatWriter streams record batches of one table into its output format.
// Append and Finalize must be called from a single goroutine.
type FormatWriter interface {
	// Append writes one record batch. The callee does not retain the record.
	Append(ctx context.Context, rec arrow.Record) error
	// Finalize flushes buffered data and closes the output. No Append may
	// follow it.
	Finalize(ctx context.Context) error
	// SupportsIncrementalAppend reports whether appended batches reach the
	// output before Finalize. Formats returning false buffer the whole
	// table in memory.
	SupportsIncrementalAppend() bool
}

// Open creates a writer for one table under the given name on the storage.
func Open(
	ctx context.Context,
	store storage.ExternalStorage,
	cfg *config.Config,
	plan *spec.Plan,
	format Format,
	name string,
	progress *util.ProgressLogger,
) (FormatWriter, error) {
	switch format {
	case FormatCSV:
		file, err := util.CreateFile(ctx, store, name, progress)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return newCSVWriter(ctx, file, plan, &cfg.CSV)
	case FormatParquet:
		file, err := util.CreateFile(ctx, store, name, progress)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return newParquetWriter(ctx, file, plan, &cfg.Parquet)
	case FormatDelta:
		return newDeltaWriter(store, plan, &cfg.Parquet, name, progress), nil
	default:
		return nil, errors.Errorf("unknown format %d", format)
	}
}
