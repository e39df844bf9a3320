package spec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/pingcap/errors"
)

// Plan is the declarative description of one dataset table: an ordered list
// of column specs plus the total row count. Column order defines output
// column order.
type Plan struct {
	Name    string
	Rows    int64
	Columns []*ColumnSpec

	schema *arrow.Schema
}

// NewPlan validates the column specs and freezes their order.
func NewPlan(name string, rows int64, columns []*ColumnSpec) (*Plan, error) {
	if rows < 0 {
		return nil, errors.Annotatef(ErrInvalidParameter,
			"plan %s: negative row count %d", name, rows)
	}
	if len(columns) == 0 {
		return nil, errors.Annotatef(ErrInvalidParameter, "plan %s has no columns", name)
	}

	fields := make([]arrow.Field, 0, len(columns))
	for i, c := range columns {
		if err := c.validate(i); err != nil {
			return nil, errors.Trace(err)
		}
		if c.Kind == KindKeyString && columns[c.EchoOf].Kind != KindUniformInt {
			return nil, errors.Annotatef(ErrInvalidParameter,
				"plan %s: column %s echoes non-int column %s",
				name, c.Name, columns[c.EchoOf].Name)
		}
		c.pos = i
		field := c.arrowField()
		if c.Kind == KindKeyString {
			// An echo column is NULL exactly when its key column is.
			field.Nullable = columns[c.EchoOf].NullPercent > 0
		}
		fields = append(fields, field)
	}

	return &Plan{
		Name:    name,
		Rows:    rows,
		Columns: columns,
		schema:  arrow.NewSchema(fields, nil),
	}, nil
}

// Schema returns the Arrow schema derived from the column specs.
func (p *Plan) Schema() *arrow.Schema {
	return p.schema
}

// EstimateRowBytes returns a rough in-memory size of one row, used to warn
// before formats that buffer the whole table.
func (p *Plan) EstimateRowBytes() int64 {
	var total int64
	for _, c := range p.Columns {
		switch c.Kind {
		case KindIDString:
			total += int64(len(c.Prefix) + max(c.Width, 10))
		case KindKeyString:
			total += int64(len(c.Prefix)) + 10
		default:
			total += 8
		}
	}
	return total
}

// GroupByPlan builds the h2o groupby table: n rows, k grouping keys,
// nas percent of NULLs in the six id columns.
//
//	id1  utf8    id%03d, k distinct
//	id2  utf8    id%03d, n/k distinct
//	id3  utf8    id%010d, n/k distinct
//	id4  int64   1..k
//	id5  int64   1..k
//	id6  int64   1..n/k
//	v1   int64   1..5
//	v2   int64   1..15
//	v3   float64 0..100
func GroupByPlan(n, k int64, nas int) (*Plan, error) {
	if n <= 0 {
		return nil, errors.Annotatef(ErrInvalidParameter, "row count must be positive, got %d", n)
	}
	if k <= 0 || k > n {
		return nil, errors.Annotatef(ErrInvalidParameter,
			"group count k must be in [1, %d], got %d", n, k)
	}

	nk := n / k
	columns := []*ColumnSpec{
		{Name: "id1", Kind: KindIDString, Prefix: "id", Width: 3, Cardinality: k, NullPercent: nas},
		{Name: "id2", Kind: KindIDString, Prefix: "id", Width: 3, Cardinality: nk, NullPercent: nas},
		{Name: "id3", Kind: KindIDString, Prefix: "id", Width: 10, Cardinality: nk, NullPercent: nas},
		{Name: "id4", Kind: KindUniformInt, Low: 1, High: k, NullPercent: nas},
		{Name: "id5", Kind: KindUniformInt, Low: 1, High: k, NullPercent: nas},
		{Name: "id6", Kind: KindUniformInt, Low: 1, High: nk, NullPercent: nas},
		{Name: "v1", Kind: KindUniformInt, Low: 1, High: 5},
		{Name: "v2", Kind: KindUniformInt, Low: 1, High: 15},
		{Name: "v3", Kind: KindUniformFloat, FloatLow: 0, FloatHigh: 100},
	}
	return NewPlan("groupby", n, columns)
}

// Join tables share three key spaces derived from the dataset size n. The
// key ranges carry a 10% surplus over n/divisor so that left and right
// tables overlap without matching completely.
func joinKeyHigh(n, divisor int64) int64 {
	high := n / divisor * 11 / 10
	if high < 1 {
		high = 1
	}
	return high
}

func joinKeyColumns(n int64, keys int) []*ColumnSpec {
	divisors := []int64{1_000_000, 1_000, 1}
	columns := make([]*ColumnSpec, 0, 2*keys+1)
	for i := 0; i < keys; i++ {
		columns = append(columns, &ColumnSpec{
			Name: "id" + string(rune('1'+i)),
			Kind: KindUniformInt,
			Low:  1,
			High: joinKeyHigh(n, divisors[i]),
		})
	}
	for i := 0; i < keys; i++ {
		columns = append(columns, &ColumnSpec{
			Name:   "id" + string(rune('4'+i)),
			Kind:   KindKeyString,
			Prefix: "id",
			EchoOf: i,
		})
	}
	return columns
}

// JoinLHSPlan builds the h2o join left-hand-side table: n rows with three
// int keys, their string forms, and a float value column.
func JoinLHSPlan(n int64) (*Plan, error) {
	if n <= 0 {
		return nil, errors.Annotatef(ErrInvalidParameter, "row count must be positive, got %d", n)
	}
	columns := append(joinKeyColumns(n, 3),
		&ColumnSpec{Name: "v1", Kind: KindUniformFloat, FloatLow: 1, FloatHigh: 100})
	return NewPlan("join_lhs", n, columns)
}

// JoinSmallPlan builds the small join right-hand side: n/1e6 rows keyed on id1.
func JoinSmallPlan(n int64) (*Plan, error) {
	if n <= 0 {
		return nil, errors.Annotatef(ErrInvalidParameter, "row count must be positive, got %d", n)
	}
	columns := append(joinKeyColumns(n, 1),
		&ColumnSpec{Name: "v2", Kind: KindUniformFloat, FloatLow: 1, FloatHigh: 100})
	return NewPlan("join_small", n/1_000_000, columns)
}

// JoinMediumPlan builds the medium join right-hand side: n/1e3 rows keyed on
// id1 and id2.
func JoinMediumPlan(n int64) (*Plan, error) {
	if n <= 0 {
		return nil, errors.Annotatef(ErrInvalidParameter, "row count must be positive, got %d", n)
	}
	columns := append(joinKeyColumns(n, 2),
		&ColumnSpec{Name: "v2", Kind: KindUniformFloat, FloatLow: 1, FloatHigh: 100})
	return NewPlan("join_medium", n/1_000, columns)
}

// JoinBigPlan builds the big join right-hand side: n rows keyed on id1..id3,
// with nas percent of NULLs in the key columns.
func JoinBigPlan(n int64, nas int) (*Plan, error) {
	if n <= 0 {
		return nil, errors.Annotatef(ErrInvalidParameter, "row count must be positive, got %d", n)
	}
	columns := append(joinKeyColumns(n, 3),
		&ColumnSpec{Name: "v2", Kind: KindUniformFloat, FloatLow: 1, FloatHigh: 100})
	for _, c := range columns[:3] {
		c.NullPercent = nas
	}
	return NewPlan("join_big", n, columns)
}
