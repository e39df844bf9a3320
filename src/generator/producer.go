package generator

import (
	"context"

	"h2oData/src/spec"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pingcap/errors"
	"golang.org/x/sync/errgroup"
)

// Producer turns a plan into a sequence of record batches. Memory use is
// bounded by one batch: the record builder is reused across Next calls.
// Producer is not safe for concurrent use; column fills inside one Next call
// are parallelized when threads > 1.
type Producer struct {
	plan      *spec.Plan
	seed      int64
	batchSize int
	threads   int

	builder *array.RecordBuilder
	offset  int64
}

func NewProducer(plan *spec.Plan, seed int64, batchSize, threads int) *Producer {
	if batchSize <= 0 {
		batchSize = 1
	}
	if threads <= 0 {
		threads = 1
	}
	return &Producer{
		plan:      plan,
		seed:      seed,
		batchSize: batchSize,
		threads:   threads,
		builder:   array.NewRecordBuilder(memory.DefaultAllocator, plan.Schema()),
	}
}

// NumBatches returns how many batches Next will produce in total.
func (p *Producer) NumBatches() int {
	full := p.plan.Rows / int64(p.batchSize)
	if p.plan.Rows%int64(p.batchSize) != 0 {
		full++
	}
	return int(full)
}

// Next produces the next record batch, or nil once all rows are generated.
// The caller owns the returned record and must Release it.
func (p *Producer) Next(ctx context.Context) (arrow.Record, error) {
	if p.offset >= p.plan.Rows {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	rows := p.batchSize
	if remain := p.plan.Rows - p.offset; remain < int64(rows) {
		rows = int(remain)
	}

	if p.threads > 1 {
		eg, _ := errgroup.WithContext(ctx)
		eg.SetLimit(p.threads)
		for i := range p.plan.Columns {
			eg.Go(func() error {
				return p.plan.FillColumn(i, p.builder.Field(i), p.seed, p.offset, rows)
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, errors.Trace(err)
		}
	} else if err := p.plan.FillBatch(p.builder, p.seed, p.offset, rows); err != nil {
		return nil, errors.Trace(err)
	}

	p.offset += int64(rows)
	return p.builder.NewRecord(), nil
}

// Release frees the builder's buffers.
func (p *Producer) Release() {
	p.builder.Release()
}
