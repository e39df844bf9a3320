package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"h2oData/src/config"
	"h2oData/src/spec"
	"h2oData/src/util"
	"h2oData/src/writer"

	"github.com/docker/go-units"
	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/br/pkg/storage"
)

// DatasetKind selects which h2o dataset family to generate.
type DatasetKind int

const (
	DatasetGroupBy DatasetKind = iota
	DatasetJoin
)

// ParseSize resolves a dataset size preset to its row count.
func ParseSize(name string) (int64, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "SMALL":
		return 10_000_000, nil
	case "MEDIUM":
		return 100_000_000, nil
	case "LARGE", "BIG":
		return 1_000_000_000, nil
	default:
		return 0, errors.Annotatef(spec.ErrInvalidParameter,
			"size must be SMALL, MEDIUM or LARGE, got %q", name)
	}
}

// Request describes one generation run.
type Request struct {
	Kind       DatasetKind
	PathPrefix string
	Rows       int64
	Format     writer.Format

	K    int64 // groupby group count
	NAs  int   // NULL percentage for nullable columns
	Seed int64

	BatchSize int
	Threads   int
}

// table pairs a plan with its output name.
type table struct {
	plan *spec.Plan
	name string
}

// Orchestrator drives generation of all tables of one request against one
// storage backend.
type Orchestrator struct {
	req   Request
	cfg   *config.Config
	store storage.ExternalStorage
}

func New(ctx context.Context, req Request, cfg *config.Config) (*Orchestrator, error) {
	store, err := config.GetStore(ctx, cfg, req.PathPrefix)
	if err != nil {
		return nil, errors.Annotatef(err, "open storage %s", req.PathPrefix)
	}
	return &Orchestrator{req: req, cfg: cfg, store: store}, nil
}

func (o *Orchestrator) Close() {
	o.store.Close()
}

func (o *Orchestrator) tables() ([]table, error) {
	req := o.req
	ext := req.Format.Ext()

	switch req.Kind {
	case DatasetGroupBy:
		plan, err := spec.GroupByPlan(req.Rows, req.K, req.NAs)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return []table{{plan, util.GroupByName(req.Rows, req.K, req.NAs, ext)}}, nil
	case DatasetJoin:
		lhs, err := spec.JoinLHSPlan(req.Rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		small, err := spec.JoinSmallPlan(req.Rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		medium, err := spec.JoinMediumPlan(req.Rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		big, err := spec.JoinBigPlan(req.Rows, req.NAs)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return []table{
			{lhs, util.JoinLHSName(req.Rows, req.NAs, ext)},
			{small, util.JoinSmallName(req.Rows, req.NAs, ext)},
			{medium, util.JoinMediumName(req.Rows, req.NAs, ext)},
			{big, util.JoinBigName(req.Rows, ext)},
		}, nil
	default:
		return nil, errors.Errorf("unknown dataset kind %d", o.req.Kind)
	}
}

// Run generates every table of the request sequentially. Tables share the
// request seed, so join key columns overlap across tables.
func (o *Orchestrator) Run(ctx context.Context) error {
	tables, err := o.tables()
	if err != nil {
		return errors.Trace(err)
	}

	start := time.Now()
	var totalRows, totalBytes int64
	for _, t := range tables {
		rows, bytes, err := o.generateTable(ctx, t)
		if err != nil {
			return errors.Annotatef(err, "generate %s", t.name)
		}
		totalRows += rows
		totalBytes += bytes
	}
	o.printSummary(len(tables), totalRows, totalBytes, time.Since(start))
	return nil
}

// clearPrevious removes output left by an earlier run of the same request,
// so a rerun never leaves a stale part file next to the new one. Delta
// tables are directories and are cleared file by file.
func (o *Orchestrator) clearPrevious(ctx context.Context, t table) error {
	if o.req.Format == writer.FormatDelta {
		var stale []string
		err := o.store.WalkDir(ctx, &storage.WalkOption{SubDir: t.name},
			func(path string, _ int64) error {
				stale = append(stale, path)
				return nil
			})
		if err != nil {
			return errors.Trace(err)
		}
		for _, name := range stale {
			if err := o.store.DeleteFile(ctx, name); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	}

	exists, err := o.store.FileExists(ctx, t.name)
	if err != nil {
		return errors.Trace(err)
	}
	if exists {
		return errors.Trace(o.store.DeleteFile(ctx, t.name))
	}
	return nil
}

func (o *Orchestrator) generateTable(ctx context.Context, t table) (int64, int64, error) {
	if err := o.clearPrevious(ctx, t); err != nil {
		return 0, 0, errors.Annotatef(err, "clear previous output %s", t.name)
	}

	batchSize := util.ClampBatchSize(o.req.BatchSize, t.plan.Rows)
	producer := NewProducer(t.plan, o.req.Seed, batchSize, o.req.Threads)
	defer producer.Release()

	progress := util.NewProgressLogger(producer.NumBatches(), "writing "+t.name, time.Second)
	defer progress.Finish()

	w, err := writer.Open(ctx, o.store, o.cfg, t.plan, o.req.Format, t.name, progress)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}

	if !w.SupportsIncrementalAppend() {
		estimated := t.plan.EstimateRowBytes() * t.plan.Rows
		fmt.Printf("Warning: %s format buffers the whole table in memory, about %s for %s\n",
			o.req.Format, units.BytesSize(float64(estimated)), t.name)
	}

	for batch := 0; ; batch++ {
		rec, err := producer.Next(ctx)
		if err != nil {
			return 0, 0, errors.Annotatef(err, "produce batch %d", batch)
		}
		if rec == nil {
			break
		}
		rows := rec.NumRows()
		err = w.Append(ctx, rec)
		rec.Release()
		if err != nil {
			return 0, 0, errors.Annotatef(err, "append batch %d", batch)
		}
		progress.UpdateBatch(rows)
	}

	if err := w.Finalize(ctx); err != nil {
		return 0, 0, errors.Annotatef(err, "finalize %s", t.name)
	}

	rows, bytes := progress.Snapshot()
	return rows, bytes, nil
}

func (o *Orchestrator) printSummary(tables int, rows, bytes int64, elapsed time.Duration) {
	throughput := 0.0
	if elapsed.Seconds() > 0 {
		throughput = float64(bytes) / elapsed.Seconds()
	}

	fmt.Println("Summary:")
	fmt.Printf("  Format: %s\n", o.req.Format)
	fmt.Printf("  Tables: %d\n", tables)
	fmt.Printf("  Total Rows: %d\n", rows)
	fmt.Printf("  Bytes: %s\n", units.BytesSize(float64(bytes)))
	fmt.Printf("  Throughput: %s/s\n", units.BytesSize(throughput))
	fmt.Printf("  Path: %s\n", o.req.PathPrefix)
}
