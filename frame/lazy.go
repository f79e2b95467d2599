package frame

import "fmt"

// LazyFrame is a deferred plan over a source frame. Steps accumulate and run
// only at Collect. The output schema is tracked alongside the plan so schema
// and column queries never execute it.
type LazyFrame struct {
	src    *Frame
	steps  []step
	schema Schema
}

type step struct {
	op  string
	run func(*Frame) (*Frame, error)
}

// Scan starts a lazy plan over an eager frame.
func Scan(f *Frame) *LazyFrame {
	return f.Lazy()
}

// Columns returns the plan's output column names without executing it.
func (lf *LazyFrame) Columns() []string {
	return lf.schema.Names()
}

// Schema returns the plan's output schema without executing it.
func (lf *LazyFrame) Schema() Schema {
	return append(Schema{}, lf.schema...)
}

// Shape returns (-1, columns): the row count is unknown until Collect.
func (lf *LazyFrame) Shape() (int, int) {
	return -1, len(lf.schema)
}

func (lf *LazyFrame) with(op string, schema Schema, run func(*Frame) (*Frame, error)) *LazyFrame {
	steps := make([]step, len(lf.steps), len(lf.steps)+1)
	copy(steps, lf.steps)
	return &LazyFrame{
		src:    lf.src,
		steps:  append(steps, step{op: op, run: run}),
		schema: schema,
	}
}

// Filter appends a row filter to the plan.
func (lf *LazyFrame) Filter(pred Predicate) *LazyFrame {
	return lf.with("filter", lf.schema, func(f *Frame) (*Frame, error) {
		return f.Filter(pred), nil
	})
}

// Select narrows the plan to the named columns. Unknown columns fail now,
// against the tracked schema, not at Collect.
func (lf *LazyFrame) Select(cols ...string) (*LazyFrame, error) {
	schema := make(Schema, 0, len(cols))
	for _, name := range cols {
		fld, ok := lf.schema.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		schema = append(schema, fld)
	}
	return lf.with("select", schema, func(f *Frame) (*Frame, error) {
		return f.Select(cols...)
	}), nil
}

// WithColumn appends a computed column to the plan.
func (lf *LazyFrame) WithColumn(name string, dtype DType, fn func(Row) any) *LazyFrame {
	schema := append(Schema{}, lf.schema...)
	if _, ok := schema.Field(name); !ok {
		schema = append(schema, Field{Name: name, DType: dtype})
	}
	return lf.with("with_column", schema, func(f *Frame) (*Frame, error) {
		return f.WithColumn(name, dtype, fn), nil
	})
}

// Slice appends a row slice to the plan.
func (lf *LazyFrame) Slice(offset, length int) *LazyFrame {
	return lf.with("slice", lf.schema, func(f *Frame) (*Frame, error) {
		return f.Slice(offset, length), nil
	})
}

// Head appends a first-n-rows step to the plan.
func (lf *LazyFrame) Head(n int) *LazyFrame {
	return lf.Slice(0, n)
}

// Sort appends a stable single-column sort to the plan.
func (lf *LazyFrame) Sort(col string, desc bool) (*LazyFrame, error) {
	if _, ok := lf.schema.Field(col); !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	return lf.with("sort", lf.schema, func(f *Frame) (*Frame, error) {
		return f.Sort(col, desc)
	}), nil
}

// Unique appends a distinct-rows step to the plan.
func (lf *LazyFrame) Unique() *LazyFrame {
	return lf.with("unique", lf.schema, func(f *Frame) (*Frame, error) {
		return f.Unique(), nil
	})
}

// Join appends a join against another lazy plan. The other side is collected
// when this plan runs.
func (lf *LazyFrame) Join(other *LazyFrame, on []string, how JoinType) (*LazyFrame, error) {
	switch how {
	case JoinInner, JoinLeft, JoinFull:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJoin, how)
	}
	keySet := make(map[string]bool, len(on))
	for _, key := range on {
		if _, ok := lf.schema.Field(key); !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, key)
		}
		if _, ok := other.schema.Field(key); !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, key)
		}
		keySet[key] = true
	}
	schema := append(Schema{}, lf.schema...)
	for _, fld := range other.schema {
		if keySet[fld.Name] {
			continue
		}
		name := fld.Name
		if _, ok := lf.schema.Field(name); ok {
			name += "_right"
		}
		schema = append(schema, Field{Name: name, DType: fld.DType})
	}
	return lf.with("join", schema, func(f *Frame) (*Frame, error) {
		rhs, err := other.Collect()
		if err != nil {
			return nil, err
		}
		return f.Join(rhs, on, how)
	}), nil
}

// GroupBy starts a deferred grouped aggregation over the key columns.
func (lf *LazyFrame) GroupBy(cols ...string) *GroupedLazyFrame {
	return &GroupedLazyFrame{src: lf, keys: cols}
}

// Collect runs the plan and returns the eager result.
func (lf *LazyFrame) Collect() (*Frame, error) {
	f := lf.src
	for _, st := range lf.steps {
		out, err := st.run(f)
		if err != nil {
			return nil, fmt.Errorf("frame: collect %s: %w", st.op, err)
		}
		f = out
	}
	return f, nil
}
