package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"h2oData/src/config"
	"h2oData/src/spec"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"
)

// flakyFileWriter collects writes in memory and fails once failing is set.
type flakyFileWriter struct {
	buf     bytes.Buffer
	failing bool
	closed  bool
}

func (w *flakyFileWriter) Write(_ context.Context, p []byte) (int, error) {
	if w.failing {
		return 0, errors.New("injected write failure")
	}
	return w.buf.Write(p)
}

func (w *flakyFileWriter) Close(_ context.Context) error {
	w.closed = true
	return nil
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"csv": FormatCSV, "CSV": FormatCSV,
		"parquet": FormatParquet,
		"delta":   FormatDelta,
	} {
		got, err := ParseFormat(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseFormat("orc")
	require.Error(t, err)
	require.Equal(t, spec.ErrInvalidParameter, errors.Cause(err))
}

// makeBatches splits rows into batchSize records generated from the plan.
func makeBatches(t *testing.T, plan *spec.Plan, rows, batchSize int) []arrow.Record {
	t.Helper()
	rb := array.NewRecordBuilder(memory.DefaultAllocator, plan.Schema())
	defer rb.Release()

	var recs []arrow.Record
	for offset := 0; offset < rows; offset += batchSize {
		n := min(batchSize, rows-offset)
		require.NoError(t, plan.FillBatch(rb, 42, int64(offset), n))
		rec := rb.NewRecord()
		t.Cleanup(rec.Release)
		recs = append(recs, rec)
	}
	return recs
}

func TestCSVAbortKeepsAppendedBatches(t *testing.T) {
	plan, err := spec.GroupByPlan(500, 10, 0)
	require.NoError(t, err)

	ctx := context.Background()
	file := &flakyFileWriter{}
	w, err := newCSVWriter(ctx, file, plan, &config.CSVConfig{Separator: ","})
	require.NoError(t, err)
	require.True(t, w.SupportsIncrementalAppend())

	for batch, rec := range makeBatches(t, plan, 500, 100) {
		if batch == 2 {
			file.failing = true
		}
		appendErr := w.Append(ctx, rec)
		if batch < 2 {
			require.NoError(t, appendErr)
			continue
		}
		require.Error(t, appendErr)
		break
	}

	// Header plus the two successfully appended batches, nothing more.
	lines := strings.Split(strings.TrimRight(file.buf.String(), "\n"), "\n")
	require.Len(t, lines, 1+2*100)
	require.Equal(t, "id1,id2,id3,id4,id5,id6,v1,v2,v3", lines[0])
}

func TestParquetWriteAndAbort(t *testing.T) {
	plan, err := spec.GroupByPlan(300, 10, 0)
	require.NoError(t, err)
	ctx := context.Background()

	file := &flakyFileWriter{}
	w, err := newParquetWriter(ctx, file, plan, &config.ParquetConfig{Compression: "snappy"})
	require.NoError(t, err)
	require.True(t, w.SupportsIncrementalAppend())

	rec := makeBatches(t, plan, 300, 300)[0]
	require.NoError(t, w.Append(ctx, rec))
	require.NoError(t, w.Finalize(ctx))
	require.True(t, file.closed)

	// PAR1 magic at both ends of the file.
	data := file.buf.Bytes()
	require.Greater(t, len(data), 8)
	require.Equal(t, "PAR1", string(data[:4]))
	require.Equal(t, "PAR1", string(data[len(data)-4:]))

	// A write failure surfaces from Finalize at the latest.
	failFile := &flakyFileWriter{failing: true}
	w2, err := newParquetWriter(ctx, failFile, plan, &config.ParquetConfig{Compression: "snappy"})
	require.NoError(t, err)
	appendErr := w2.Append(ctx, rec)
	if appendErr == nil {
		appendErr = w2.Finalize(ctx)
	}
	require.Error(t, appendErr)
}

func TestParquetAbortKeepsAppendedBatches(t *testing.T) {
	plan, err := spec.GroupByPlan(500, 10, 0)
	require.NoError(t, err)
	ctx := context.Background()
	batches := makeBatches(t, plan, 500, 100)
	cfg := &config.ParquetConfig{Compression: "snappy"}

	// Reference: the first two batches written and finalized cleanly.
	ref := &flakyFileWriter{}
	wRef, err := newParquetWriter(ctx, ref, plan, cfg)
	require.NoError(t, err)
	for _, rec := range batches[:2] {
		require.NoError(t, wRef.Append(ctx, rec))
	}
	require.NoError(t, wRef.Finalize(ctx))

	rdr, err := file.NewParquetReader(bytes.NewReader(ref.buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 2, rdr.NumRowGroups())
	require.EqualValues(t, 200, rdr.NumRows())
	require.NoError(t, rdr.Close())

	// Aborted: same batches, write failure injected on batch 3 of 5.
	aborted := &flakyFileWriter{}
	w, err := newParquetWriter(ctx, aborted, plan, cfg)
	require.NoError(t, err)
	for batch, rec := range batches {
		if batch == 2 {
			aborted.failing = true
		}
		appendErr := w.Append(ctx, rec)
		if batch < 2 {
			require.NoError(t, appendErr)
			continue
		}
		require.Error(t, appendErr)
		break
	}

	// The aborted file holds exactly the two flushed row groups: its bytes
	// are a prefix of the clean two-batch file, short of only the footer.
	require.NotEmpty(t, aborted.buf.Bytes())
	require.Less(t, aborted.buf.Len(), ref.buf.Len())
	require.True(t, bytes.HasPrefix(ref.buf.Bytes(), aborted.buf.Bytes()))
}

func TestDeltaWriterLayout(t *testing.T) {
	plan, err := spec.GroupByPlan(400, 10, 5)
	require.NoError(t, err)

	dir := t.TempDir()
	ctx := context.Background()
	cfg := config.Default()
	store, err := config.GetStore(ctx, cfg, dir)
	require.NoError(t, err)
	defer store.Close()

	w, err := Open(ctx, store, cfg, plan, FormatDelta, "G1_4e2_4e2_10_5", nil)
	require.NoError(t, err)
	require.False(t, w.SupportsIncrementalAppend())

	for _, rec := range makeBatches(t, plan, 400, 200) {
		require.NoError(t, w.Append(ctx, rec))
	}

	// Nothing reaches the storage before Finalize.
	tableDir := filepath.Join(dir, "G1_4e2_4e2_10_5")
	_, err = os.Stat(tableDir)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, w.Finalize(ctx))

	parts, err := filepath.Glob(filepath.Join(tableDir, "part-00000-*-c000.snappy.parquet"))
	require.NoError(t, err)
	require.Len(t, parts, 1)

	logData, err := os.ReadFile(filepath.Join(tableDir, "_delta_log", "00000000000000000000.json"))
	require.NoError(t, err)
	lines := strings.Split(string(logData), "\n")
	require.Len(t, lines, 3)

	var meta struct {
		MetaData struct {
			ID           string `json:"id"`
			SchemaString string `json:"schemaString"`
		} `json:"metaData"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &meta))
	require.NotEmpty(t, meta.MetaData.ID)
	require.Contains(t, meta.MetaData.SchemaString, `"name":"id1"`)
	require.Contains(t, meta.MetaData.SchemaString, `"type":"long"`)
	require.Contains(t, meta.MetaData.SchemaString, `"type":"double"`)

	var add struct {
		Add struct {
			Path       string `json:"path"`
			Size       int64  `json:"size"`
			DataChange bool   `json:"dataChange"`
		} `json:"add"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &add))
	require.Equal(t, filepath.Base(parts[0]), add.Add.Path)
	require.True(t, add.Add.DataChange)

	info, err := os.Stat(parts[0])
	require.NoError(t, err)
	require.Equal(t, info.Size(), add.Add.Size)

	var proto struct {
		Protocol struct {
			MinReaderVersion int `json:"minReaderVersion"`
			MinWriterVersion int `json:"minWriterVersion"`
		} `json:"protocol"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &proto))
	require.Equal(t, 1, proto.Protocol.MinReaderVersion)
	require.Equal(t, 2, proto.Protocol.MinWriterVersion)
}
