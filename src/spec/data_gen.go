package spec

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/pingcap/errors"
)

// Every cell is a pure function of (seed, column, absolute row): the PCG
// stream is re-seeded per row from the column seed and the row index. This
// makes output independent of how rows are partitioned into batches and lets
// independent columns be filled concurrently.

// seedGamma spreads per-column streams across the seed space.
const seedGamma = 0x9E3779B97F4A7C15

func (c *ColumnSpec) streamSeed(seed int64) uint64 {
	return uint64(seed) + uint64(c.pos+1)*seedGamma
}

// Per-cell draw order is fixed: null trial first (when the column is
// nullable), then the value.

func (c *ColumnSpec) drawNull(rng *rand.Rand) bool {
	return c.NullPercent > 0 && rng.Int64N(100) < int64(c.NullPercent)
}

func (c *ColumnSpec) drawID(rng *rand.Rand) int64 {
	return 1 + rng.Int64N(c.Cardinality)
}

func (c *ColumnSpec) drawInt(rng *rand.Rand) int64 {
	return c.Low + rng.Int64N(c.High-c.Low+1)
}

func (c *ColumnSpec) drawFloat(rng *rand.Rand) float64 {
	return c.FloatLow + rng.Float64()*(c.FloatHigh-c.FloatLow)
}

var zeroPad = strings.Repeat("0", 19)

func (c *ColumnSpec) formatID(v int64) string {
	s := strconv.FormatInt(v, 10)
	if pad := c.Width - len(s); pad > 0 {
		s = zeroPad[:pad] + s
	}
	return c.Prefix + s
}

// FillColumn appends rows values for column col to the builder, for the
// batch starting at absolute row rowOffset.
func (p *Plan) FillColumn(col int, bldr array.Builder, seed, rowOffset int64, rows int) error {
	c := p.Columns[col]
	src := rand.NewPCG(0, 0)
	rng := rand.New(src)
	colSeed := c.streamSeed(seed)

	switch c.Kind {
	case KindIDString:
		sb, ok := bldr.(*array.StringBuilder)
		if !ok {
			return errors.Errorf("column %s: unexpected builder type %T", c.Name, bldr)
		}
		sb.Reserve(rows)
		for i := 0; i < rows; i++ {
			src.Seed(colSeed, uint64(rowOffset)+uint64(i))
			if c.drawNull(rng) {
				sb.AppendNull()
				continue
			}
			sb.Append(c.formatID(c.drawID(rng)))
		}
	case KindUniformInt:
		ib, ok := bldr.(*array.Int64Builder)
		if !ok {
			return errors.Errorf("column %s: unexpected builder type %T", c.Name, bldr)
		}
		ib.Reserve(rows)
		for i := 0; i < rows; i++ {
			src.Seed(colSeed, uint64(rowOffset)+uint64(i))
			if c.drawNull(rng) {
				ib.AppendNull()
				continue
			}
			ib.Append(c.drawInt(rng))
		}
	case KindUniformFloat:
		fb, ok := bldr.(*array.Float64Builder)
		if !ok {
			return errors.Errorf("column %s: unexpected builder type %T", c.Name, bldr)
		}
		fb.Reserve(rows)
		for i := 0; i < rows; i++ {
			src.Seed(colSeed, uint64(rowOffset)+uint64(i))
			if c.drawNull(rng) {
				fb.AppendNull()
				continue
			}
			fb.Append(c.drawFloat(rng))
		}
	case KindKeyString:
		sb, ok := bldr.(*array.StringBuilder)
		if !ok {
			return errors.Errorf("column %s: unexpected builder type %T", c.Name, bldr)
		}
		// Replay the key column's stream so the echoed string matches the
		// key value row for row.
		key := p.Columns[c.EchoOf]
		keySeed := key.streamSeed(seed)
		sb.Reserve(rows)
		for i := 0; i < rows; i++ {
			src.Seed(keySeed, uint64(rowOffset)+uint64(i))
			if key.drawNull(rng) {
				sb.AppendNull()
				continue
			}
			sb.Append(c.Prefix + strconv.FormatInt(key.drawInt(rng), 10))
		}
	default:
		return errors.Errorf("column %s: unknown kind %d", c.Name, c.Kind)
	}
	return nil
}

// FillBatch fills all columns of one batch into the record builder.
func (p *Plan) FillBatch(rb *array.RecordBuilder, seed, rowOffset int64, rows int) error {
	for i := range p.Columns {
		if err := p.FillColumn(i, rb.Field(i), seed, rowOffset, rows); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
