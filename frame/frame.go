// Package frame is a small in-memory columnar table engine. It backs the
// lineage package with four table representations: Frame (eager),
// LazyFrame (deferred), and their document-designated counterparts
// DocFrame and DocLazyFrame.
package frame

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrColumnNotFound = errors.New("frame: column not found")
	ErrColumnType     = errors.New("frame: column has wrong type")
	ErrLengthMismatch = errors.New("frame: series lengths do not match")
	ErrDuplicateName  = errors.New("frame: duplicate column name")
	ErrUnknownJoin    = errors.New("frame: unknown join type")
)

// DType is the type of a column's values.
type DType int

const (
	Number DType = iota
	String
	Bool
)

func (t DType) String() string {
	switch t {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "boolean"
	default:
		return "unknown"
	}
}

// DTypeFromString parses the string form produced by DType.String.
func DTypeFromString(s string) (DType, error) {
	switch s {
	case "number":
		return Number, nil
	case "string":
		return String, nil
	case "boolean":
		return Bool, nil
	default:
		return Number, fmt.Errorf("frame: unknown dtype %q", s)
	}
}

// Field describes one column of a schema.
type Field struct {
	Name  string
	DType DType
}

// Schema is an ordered list of column descriptions.
type Schema []Field

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Field returns the field with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Series is one named column of values. Number values are stored as float64.
type Series struct {
	Name   string
	DType  DType
	Values []any
}

// NewSeries builds a series, normalizing numeric values to float64.
func NewSeries(name string, dtype DType, values ...any) Series {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = normalize(dtype, v)
	}
	return Series{Name: name, DType: dtype, Values: vs}
}

func normalize(dtype DType, v any) any {
	if v == nil || dtype != Number {
		return v
	}
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// Frame is an eager table: an ordered set of equally-long series.
type Frame struct {
	series []Series
}

// New builds a frame from series, validating lengths and name uniqueness.
func New(series ...Series) (*Frame, error) {
	seen := make(map[string]bool, len(series))
	for i, s := range series {
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, s.Name)
		}
		seen[s.Name] = true
		if i > 0 && len(s.Values) != len(series[0].Values) {
			return nil, ErrLengthMismatch
		}
	}
	return &Frame{series: series}, nil
}

// FromRows builds a frame from a schema and row-major values.
func FromRows(schema Schema, rows [][]any) (*Frame, error) {
	series := make([]Series, len(schema))
	for i, f := range schema {
		vs := make([]any, len(rows))
		for j, row := range rows {
			if len(row) != len(schema) {
				return nil, ErrLengthMismatch
			}
			vs[j] = normalize(f.DType, row[i])
		}
		series[i] = Series{Name: f.Name, DType: f.DType, Values: vs}
	}
	return New(series...)
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.series))
	for i, s := range f.series {
		names[i] = s.Name
	}
	return names
}

// Schema returns the frame's schema.
func (f *Frame) Schema() Schema {
	schema := make(Schema, len(f.series))
	for i, s := range f.series {
		schema[i] = Field{Name: s.Name, DType: s.DType}
	}
	return schema
}

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) {
	return f.Height(), len(f.series)
}

// Height returns the row count.
func (f *Frame) Height() int {
	if len(f.series) == 0 {
		return 0
	}
	return len(f.series[0].Values)
}

// Width returns the column count.
func (f *Frame) Width() int { return len(f.series) }

// Column returns the series with the given name.
func (f *Frame) Column(name string) (Series, bool) {
	for _, s := range f.series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}

// Row is one row of a frame keyed by column name.
type Row map[string]any

// RowAt materializes row i as a name-to-value map.
func (f *Frame) RowAt(i int) Row {
	row := make(Row, len(f.series))
	for _, s := range f.series {
		row[s.Name] = s.Values[i]
	}
	return row
}

// Rows returns all rows in row-major schema order.
func (f *Frame) Rows() [][]any {
	h := f.Height()
	rows := make([][]any, h)
	for i := 0; i < h; i++ {
		row := make([]any, len(f.series))
		for j, s := range f.series {
			row[j] = s.Values[i]
		}
		rows[i] = row
	}
	return rows
}

func (f *Frame) takeRows(idx []int) *Frame {
	series := make([]Series, len(f.series))
	for j, s := range f.series {
		vs := make([]any, len(idx))
		for i, k := range idx {
			vs[i] = s.Values[k]
		}
		series[j] = Series{Name: s.Name, DType: s.DType, Values: vs}
	}
	return &Frame{series: series}
}

// Filter returns the rows matching the predicate.
func (f *Frame) Filter(pred Predicate) *Frame {
	var idx []int
	for i := 0; i < f.Height(); i++ {
		if pred(f.RowAt(i)) {
			idx = append(idx, i)
		}
	}
	return f.takeRows(idx)
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	series := make([]Series, 0, len(cols))
	for _, name := range cols {
		s, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		series = append(series, s)
	}
	return &Frame{series: series}, nil
}

// WithColumn returns a frame with an extra column computed per row.
// An existing column of the same name is replaced.
func (f *Frame) WithColumn(name string, dtype DType, fn func(Row) any) *Frame {
	vs := make([]any, f.Height())
	for i := range vs {
		vs[i] = normalize(dtype, fn(f.RowAt(i)))
	}
	out := make([]Series, 0, len(f.series)+1)
	replaced := false
	for _, s := range f.series {
		if s.Name == name {
			out = append(out, Series{Name: name, DType: dtype, Values: vs})
			replaced = true
			continue
		}
		out = append(out, s)
	}
	if !replaced {
		out = append(out, Series{Name: name, DType: dtype, Values: vs})
	}
	return &Frame{series: out}
}

// Slice returns length rows starting at offset. Out-of-range bounds clamp.
func (f *Frame) Slice(offset, length int) *Frame {
	h := f.Height()
	if offset < 0 {
		offset = 0
	}
	if offset > h {
		offset = h
	}
	end := offset + length
	if length < 0 || end > h {
		end = h
	}
	idx := make([]int, 0, end-offset)
	for i := offset; i < end; i++ {
		idx = append(idx, i)
	}
	return f.takeRows(idx)
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	return f.Slice(0, n)
}

// Sort returns the frame stably sorted by one column.
func (f *Frame) Sort(col string, desc bool) (*Frame, error) {
	s, ok := f.Column(col)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	idx := make([]int, f.Height())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		less := lessValue(s.Values[idx[a]], s.Values[idx[b]])
		if desc {
			return lessValue(s.Values[idx[b]], s.Values[idx[a]])
		}
		return less
	})
	return f.takeRows(idx), nil
}

func lessValue(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av < bv
	case string:
		bv, ok := b.(string)
		return ok && av < bv
	case bool:
		bv, ok := b.(bool)
		return ok && !av && bv
	default:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
}

// Unique returns the distinct rows, keeping first occurrences in order.
func (f *Frame) Unique() *Frame {
	seen := make(map[string]bool)
	var idx []int
	for i := 0; i < f.Height(); i++ {
		key := f.rowKey(i, f.Columns())
		if !seen[key] {
			seen[key] = true
			idx = append(idx, i)
		}
	}
	return f.takeRows(idx)
}

func (f *Frame) rowKey(i int, cols []string) string {
	key := ""
	for _, c := range cols {
		s, _ := f.Column(c)
		key += fmt.Sprintf("%v\x00", s.Values[i])
	}
	return key
}

// Lazy wraps the frame in a deferred plan with no pending steps.
func (f *Frame) Lazy() *LazyFrame {
	return &LazyFrame{src: f, schema: f.Schema()}
}

// GroupBy starts a grouped aggregation over the key columns.
func (f *Frame) GroupBy(cols ...string) *GroupedFrame {
	return &GroupedFrame{src: f, keys: cols}
}

// Equal reports whether two frames have identical schema and values.
func (f *Frame) Equal(other *Frame) bool {
	if other == nil || f.Width() != other.Width() || f.Height() != other.Height() {
		return false
	}
	for i, s := range f.series {
		o := other.series[i]
		if s.Name != o.Name || s.DType != o.DType {
			return false
		}
		for j := range s.Values {
			if s.Values[j] != o.Values[j] {
				return false
			}
		}
	}
	return true
}
