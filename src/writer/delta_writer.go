package writer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"h2oData/src/config"
	"h2oData/src/spec"
	"h2oData/src/util"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/br/pkg/storage"
)

const deltaLogEntry = "_delta_log/00000000000000000000.json"

// deltaWriter materializes a table as a Delta Lake directory: one parquet
// part file plus the initial transaction log. Parquet footer metadata has to
// cover the whole table, so batches are buffered until Finalize.
type deltaWriter struct {
	store    storage.ExternalStorage
	plan     *spec.Plan
	cfg      *config.ParquetConfig
	dir      string
	progress *util.ProgressLogger

	buffered []arrow.Record
}

func newDeltaWriter(
	store storage.ExternalStorage,
	plan *spec.Plan,
	cfg *config.ParquetConfig,
	dir string,
	progress *util.ProgressLogger,
) *deltaWriter {
	return &deltaWriter{
		store:    store,
		plan:     plan,
		cfg:      cfg,
		dir:      dir,
		progress: progress,
	}
}

func (w *deltaWriter) Append(ctx context.Context, rec arrow.Record) error {
	rec.Retain()
	w.buffered = append(w.buffered, rec)
	return nil
}

func (w *deltaWriter) Finalize(ctx context.Context) error {
	defer w.release()

	partName := "part-00000-" + uuid.NewString() + "-c000.snappy.parquet"
	size, err := w.writePart(ctx, w.dir+"/"+partName)
	if err != nil {
		return errors.Annotatef(err, "write delta part %s", partName)
	}

	log, err := w.buildLog(partName, size)
	if err != nil {
		return errors.Trace(err)
	}
	if err := w.writeLog(ctx, log); err != nil {
		return errors.Annotatef(err, "write delta log for %s", w.dir)
	}
	return nil
}

func (w *deltaWriter) writeLog(ctx context.Context, log []byte) error {
	// Create instead of WriteFile so the _delta_log directory is made on
	// backends that need it.
	file, err := w.store.Create(ctx, w.dir+"/"+deltaLogEntry, nil)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := file.Write(ctx, log); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(file.Close(ctx))
}

func (w *deltaWriter) SupportsIncrementalAppend() bool {
	return false
}

func (w *deltaWriter) writePart(ctx context.Context, name string) (int64, error) {
	file, err := util.CreateFile(ctx, w.store, name, w.progress)
	if err != nil {
		return 0, errors.Trace(err)
	}

	counter := util.NewCountingWriter(util.NewContextWriter(ctx, file))
	props, err := writerProperties(w.cfg)
	if err != nil {
		return 0, errors.Trace(err)
	}
	enc, err := newArrowFileWriter(w.plan.Schema(), counter, props)
	if err != nil {
		return 0, errors.Trace(err)
	}

	for _, rec := range w.buffered {
		if err := enc.Write(rec); err != nil {
			return 0, errors.Trace(err)
		}
	}
	if err := enc.Close(); err != nil {
		return 0, errors.Trace(err)
	}
	if err := file.Close(ctx); err != nil {
		return 0, errors.Trace(err)
	}
	return counter.Total(), nil
}

func (w *deltaWriter) release() {
	for _, rec := range w.buffered {
		rec.Release()
	}
	w.buffered = nil
}

// deltaType maps an arrow type to its Delta schemaString name.
func deltaType(t arrow.DataType) string {
	switch t.ID() {
	case arrow.STRING:
		return "string"
	case arrow.INT64:
		return "long"
	case arrow.FLOAT64:
		return "double"
	default:
		return t.Name()
	}
}

type deltaField struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Nullable bool              `json:"nullable"`
	Metadata map[string]string `json:"metadata"`
}

// buildLog renders the initial commit: metaData, one add per part file, and
// protocol, one JSON document per line.
func (w *deltaWriter) buildLog(partName string, size int64) ([]byte, error) {
	fields := make([]deltaField, 0, len(w.plan.Columns))
	for _, f := range w.plan.Schema().Fields() {
		fields = append(fields, deltaField{
			Name:     f.Name,
			Type:     deltaType(f.Type),
			Nullable: f.Nullable,
			Metadata: map[string]string{},
		})
	}
	schemaString, err := json.Marshal(map[string]any{
		"type":   "struct",
		"fields": fields,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	entries := []map[string]any{
		{
			"metaData": map[string]any{
				"id": uuid.NewString(),
				"format": map[string]any{
					"provider": "parquet",
					"options":  map[string]string{},
				},
				"schemaString":     string(schemaString),
				"configuration":    map[string]string{},
				"partitionColumns": []string{},
			},
		},
		{
			"add": map[string]any{
				"path":             partName,
				"partitionValues":  map[string]string{},
				"size":             size,
				"modificationTime": time.Now().UnixMilli(),
				"dataChange":       true,
			},
		},
		{
			"protocol": map[string]any{
				"minReaderVersion": 1,
				"minWriterVersion": 2,
			},
		},
	}

	var sb strings.Builder
	for i, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.Write(line)
	}
	return []byte(sb.String()), nil
}
