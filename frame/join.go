package frame

import "fmt"

// JoinType selects the join semantics.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinFull  JoinType = "full"
)

// Join combines two frames on equal key columns. Non-key right columns that
// collide with a left column name get a "_right" suffix. Left and full joins
// fill unmatched sides with nil.
func (f *Frame) Join(other *Frame, on []string, how JoinType) (*Frame, error) {
	switch how {
	case JoinInner, JoinLeft, JoinFull:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJoin, how)
	}
	if len(on) == 0 {
		return nil, fmt.Errorf("frame: join requires at least one key column")
	}
	for _, key := range on {
		if _, ok := f.Column(key); !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, key)
		}
		if _, ok := other.Column(key); !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, key)
		}
	}

	// Output schema: all left columns, then right non-key columns.
	leftSchema := f.Schema()
	rightExtra := make(Schema, 0, other.Width())
	leftNames := make(map[string]bool, f.Width())
	keySet := make(map[string]bool, len(on))
	for _, name := range f.Columns() {
		leftNames[name] = true
	}
	for _, key := range on {
		keySet[key] = true
	}
	for _, fld := range other.Schema() {
		if keySet[fld.Name] {
			continue
		}
		name := fld.Name
		if leftNames[name] {
			name += "_right"
		}
		rightExtra = append(rightExtra, Field{Name: name, DType: fld.DType})
	}
	outSchema := append(append(Schema{}, leftSchema...), rightExtra...)

	// Index right rows by key.
	rightByKey := make(map[string][]int)
	for i := 0; i < other.Height(); i++ {
		rightByKey[other.rowKey(i, on)] = append(rightByKey[other.rowKey(i, on)], i)
	}

	rightValues := func(i int) []any {
		vals := make([]any, 0, len(rightExtra))
		for _, fld := range other.Schema() {
			if keySet[fld.Name] {
				continue
			}
			s, _ := other.Column(fld.Name)
			vals = append(vals, s.Values[i])
		}
		return vals
	}

	var rows [][]any
	matchedRight := make(map[int]bool)
	for i := 0; i < f.Height(); i++ {
		left := make([]any, f.Width())
		for j, s := range f.series {
			left[j] = s.Values[i]
		}
		matches := rightByKey[f.rowKey(i, on)]
		if len(matches) == 0 {
			if how == JoinLeft || how == JoinFull {
				rows = append(rows, append(left, make([]any, len(rightExtra))...))
			}
			continue
		}
		for _, ri := range matches {
			matchedRight[ri] = true
			rows = append(rows, append(append([]any{}, left...), rightValues(ri)...))
		}
	}

	if how == JoinFull {
		for i := 0; i < other.Height(); i++ {
			if matchedRight[i] {
				continue
			}
			row := make([]any, f.Width())
			// Keys come from the right side, the rest of the left stays nil.
			for j, fld := range leftSchema {
				if keySet[fld.Name] {
					s, _ := other.Column(fld.Name)
					row[j] = s.Values[i]
				}
			}
			rows = append(rows, append(row, rightValues(i)...))
		}
	}

	return FromRows(outSchema, rows)
}
