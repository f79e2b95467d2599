package frame

import "strings"

// Predicate decides whether a row is kept by Filter.
type Predicate func(Row) bool

// ColRef builds predicates against one column.
type ColRef struct {
	name string
}

// Col references a column for predicate construction.
func Col(name string) ColRef { return ColRef{name: name} }

// Gt keeps rows where the column's numeric value is greater than v.
func (c ColRef) Gt(v float64) Predicate {
	return func(r Row) bool {
		n, ok := r[c.name].(float64)
		return ok && n > v
	}
}

// Lt keeps rows where the column's numeric value is less than v.
func (c ColRef) Lt(v float64) Predicate {
	return func(r Row) bool {
		n, ok := r[c.name].(float64)
		return ok && n < v
	}
}

// GtEq keeps rows where the column's numeric value is at least v.
func (c ColRef) GtEq(v float64) Predicate {
	return func(r Row) bool {
		n, ok := r[c.name].(float64)
		return ok && n >= v
	}
}

// LtEq keeps rows where the column's numeric value is at most v.
func (c ColRef) LtEq(v float64) Predicate {
	return func(r Row) bool {
		n, ok := r[c.name].(float64)
		return ok && n <= v
	}
}

// Eq keeps rows where the column equals v. Numeric v is normalized so
// Eq(2) and Eq(2.0) behave the same.
func (c ColRef) Eq(v any) Predicate {
	v = normalize(Number, v)
	return func(r Row) bool { return r[c.name] == v }
}

// Neq keeps rows where the column does not equal v.
func (c ColRef) Neq(v any) Predicate {
	eq := c.Eq(v)
	return func(r Row) bool { return !eq(r) }
}

// Contains keeps rows where the column's string value contains sub.
func (c ColRef) Contains(sub string) Predicate {
	return func(r Row) bool {
		s, ok := r[c.name].(string)
		return ok && strings.Contains(s, sub)
	}
}

// IsNull keeps rows where the column is nil.
func (c ColRef) IsNull() Predicate {
	return func(r Row) bool { return r[c.name] == nil }
}

// And keeps rows matching every predicate.
func And(preds ...Predicate) Predicate {
	return func(r Row) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Or keeps rows matching at least one predicate.
func Or(preds ...Predicate) Predicate {
	return func(r Row) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(r Row) bool { return !p(r) }
}
