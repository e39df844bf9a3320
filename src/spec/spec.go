package spec

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/pingcap/errors"
)

// ErrInvalidParameter is the cause of every plan/column validation failure.
// It is raised before any row is generated.
var ErrInvalidParameter = errors.New("invalid parameter")

// ColumnKind defines how values of a column are generated.
type ColumnKind int

const (
	// KindIDString emits a zero-padded identifier string drawn uniformly
	// from a fixed set of Cardinality values, e.g. "id042".
	KindIDString ColumnKind = iota
	// KindUniformInt emits an int64 drawn uniformly from [Low, High].
	KindUniformInt
	// KindUniformFloat emits a float64 drawn uniformly from [FloatLow, FloatHigh).
	KindUniformFloat
	// KindKeyString emits the string form of an earlier int column's value
	// for the same row, e.g. "id7" when the key column holds 7.
	KindKeyString
)

// ColumnSpec defines the properties of a column to generate.
type ColumnSpec struct {
	Name string
	Kind ColumnKind

	Cardinality int64  // number of distinct identifiers, KindIDString
	Width       int    // zero-pad width for identifiers, 0 disables padding
	Prefix      string // identifier prefix, usually "id"

	Low, High           int64   // inclusive range, KindUniformInt
	FloatLow, FloatHigh float64 // range, KindUniformFloat

	// NullPercent is the chance (0-100) that a row is emitted as NULL
	// instead of a value.
	NullPercent int

	// EchoOf is the index of the int column echoed by a KindKeyString
	// column. Must point at an earlier KindUniformInt column.
	EchoOf int

	// pos is the column's offset in its plan, set by NewPlan. It keys the
	// column's random stream, so reordering columns changes their values.
	pos int
}

func (c *ColumnSpec) validate(pos int) error {
	if c.Name == "" {
		return errors.Annotatef(ErrInvalidParameter, "column %d has no name", pos)
	}
	if c.NullPercent < 0 || c.NullPercent > 100 {
		return errors.Annotatef(ErrInvalidParameter,
			"column %s: null percent %d outside [0, 100]", c.Name, c.NullPercent)
	}

	switch c.Kind {
	case KindIDString:
		if c.Cardinality <= 0 {
			return errors.Annotatef(ErrInvalidParameter,
				"column %s: cardinality must be positive, got %d", c.Name, c.Cardinality)
		}
	case KindUniformInt:
		if c.Low > c.High {
			return errors.Annotatef(ErrInvalidParameter,
				"column %s: empty int range [%d, %d]", c.Name, c.Low, c.High)
		}
	case KindUniformFloat:
		if c.FloatLow > c.FloatHigh {
			return errors.Annotatef(ErrInvalidParameter,
				"column %s: empty float range [%g, %g]", c.Name, c.FloatLow, c.FloatHigh)
		}
	case KindKeyString:
		if c.EchoOf < 0 || c.EchoOf >= pos {
			return errors.Annotatef(ErrInvalidParameter,
				"column %s: echo target %d must precede the column", c.Name, c.EchoOf)
		}
	default:
		return errors.Annotatef(ErrInvalidParameter,
			"column %s: unknown kind %d", c.Name, c.Kind)
	}
	return nil
}

func (c *ColumnSpec) arrowField() arrow.Field {
	f := arrow.Field{Name: c.Name, Nullable: c.NullPercent > 0}
	switch c.Kind {
	case KindIDString, KindKeyString:
		f.Type = arrow.BinaryTypes.String
	case KindUniformInt:
		f.Type = arrow.PrimitiveTypes.Int64
	case KindUniformFloat:
		f.Type = arrow.PrimitiveTypes.Float64
	}
	return f
}

// String returns a string representation of the ColumnSpec.
func (c *ColumnSpec) String() string {
	var builder strings.Builder

	builder.WriteString("ColumnSpec{")
	builder.WriteString("Name: " + c.Name)

	switch c.Kind {
	case KindIDString:
		builder.WriteString(", Kind: id")
		builder.WriteString(", Cardinality: " + strconv.FormatInt(c.Cardinality, 10))
		if c.Width > 0 {
			builder.WriteString(", Width: " + strconv.Itoa(c.Width))
		}
	case KindUniformInt:
		builder.WriteString(", Kind: int")
		builder.WriteString(", Range: [" + strconv.FormatInt(c.Low, 10) +
			", " + strconv.FormatInt(c.High, 10) + "]")
	case KindUniformFloat:
		builder.WriteString(", Kind: float")
		builder.WriteString(", Range: [" + strconv.FormatFloat(c.FloatLow, 'g', -1, 64) +
			", " + strconv.FormatFloat(c.FloatHigh, 'g', -1, 64) + "]")
	case KindKeyString:
		builder.WriteString(", Kind: key")
		builder.WriteString(", EchoOf: " + strconv.Itoa(c.EchoOf))
	}

	if c.NullPercent > 0 {
		builder.WriteString(", NullPercent: " + strconv.Itoa(c.NullPercent))
	}

	builder.WriteString("}")
	return builder.String()
}

func (c *ColumnSpec) Clone() *ColumnSpec {
	clone := *c
	return &clone
}
