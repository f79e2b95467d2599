package frame

import "fmt"

// AggOp names an aggregation.
type AggOp string

const (
	AggSum   AggOp = "sum"
	AggMean  AggOp = "mean"
	AggMin   AggOp = "min"
	AggMax   AggOp = "max"
	AggCount AggOp = "count"
)

// Aggregation applies one op to one column, emitting the As column.
type Aggregation struct {
	Col string
	Op  AggOp
	As  string
}

// Sum aggregates a numeric column by summation.
func Sum(col string) Aggregation { return Aggregation{Col: col, Op: AggSum, As: col + "_sum"} }

// Mean aggregates a numeric column by arithmetic mean.
func Mean(col string) Aggregation { return Aggregation{Col: col, Op: AggMean, As: col + "_mean"} }

// Min aggregates a numeric column by minimum.
func Min(col string) Aggregation { return Aggregation{Col: col, Op: AggMin, As: col + "_min"} }

// Max aggregates a numeric column by maximum.
func Max(col string) Aggregation { return Aggregation{Col: col, Op: AggMax, As: col + "_max"} }

// Count counts rows per group. Col is ignored.
func Count() Aggregation { return Aggregation{Op: AggCount, As: "count"} }

// Alias renames the output column.
func (a Aggregation) Alias(name string) Aggregation {
	a.As = name
	return a
}

// GroupedFrame is the intermediate handle between GroupBy and Agg on an
// eager frame. It is not a table: only Agg yields one.
type GroupedFrame struct {
	src  *Frame
	keys []string
}

// Keys returns the grouping columns.
func (g *GroupedFrame) Keys() []string {
	return append([]string{}, g.keys...)
}

// Agg runs the grouped aggregation and returns the result table. Groups keep
// first-seen order.
func (g *GroupedFrame) Agg(aggs ...Aggregation) (*Frame, error) {
	for _, key := range g.keys {
		if _, ok := g.src.Column(key); !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, key)
		}
	}
	for _, a := range aggs {
		if a.Op != AggCount {
			if _, ok := g.src.Column(a.Col); !ok {
				return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, a.Col)
			}
		}
	}

	var order []string
	groups := make(map[string][]int)
	for i := 0; i < g.src.Height(); i++ {
		key := g.src.rowKey(i, g.keys)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	schema := make(Schema, 0, len(g.keys)+len(aggs))
	for _, key := range g.keys {
		fld, _ := g.src.Schema().Field(key)
		schema = append(schema, fld)
	}
	for _, a := range aggs {
		schema = append(schema, Field{Name: a.As, DType: Number})
	}

	rows := make([][]any, 0, len(order))
	for _, key := range order {
		idx := groups[key]
		row := make([]any, 0, len(schema))
		for _, k := range g.keys {
			s, _ := g.src.Column(k)
			row = append(row, s.Values[idx[0]])
		}
		for _, a := range aggs {
			v, err := aggregate(g.src, a, idx)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return FromRows(schema, rows)
}

func aggregate(f *Frame, a Aggregation, idx []int) (any, error) {
	if a.Op == AggCount {
		return float64(len(idx)), nil
	}
	s, _ := f.Column(a.Col)
	var nums []float64
	for _, i := range idx {
		if n, ok := s.Values[i].(float64); ok {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return nil, nil
	}
	switch a.Op {
	case AggSum, AggMean:
		total := 0.0
		for _, n := range nums {
			total += n
		}
		if a.Op == AggMean {
			return total / float64(len(nums)), nil
		}
		return total, nil
	case AggMin:
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return m, nil
	case AggMax:
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("frame: unknown aggregation %q", a.Op)
	}
}

// GroupedLazyFrame is the deferred counterpart of GroupedFrame.
type GroupedLazyFrame struct {
	src  *LazyFrame
	keys []string
}

// Keys returns the grouping columns.
func (g *GroupedLazyFrame) Keys() []string {
	return append([]string{}, g.keys...)
}

// Agg appends the grouped aggregation to the plan and returns the lazy
// result table.
func (g *GroupedLazyFrame) Agg(aggs ...Aggregation) (*LazyFrame, error) {
	schema := make(Schema, 0, len(g.keys)+len(aggs))
	for _, key := range g.keys {
		fld, ok := g.src.schema.Field(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, key)
		}
		schema = append(schema, fld)
	}
	for _, a := range aggs {
		if a.Op != AggCount {
			if _, ok := g.src.schema.Field(a.Col); !ok {
				return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, a.Col)
			}
		}
		schema = append(schema, Field{Name: a.As, DType: Number})
	}
	keys := append([]string{}, g.keys...)
	return g.src.with("group_by.agg", schema, func(f *Frame) (*Frame, error) {
		return f.GroupBy(keys...).Agg(aggs...)
	}), nil
}
