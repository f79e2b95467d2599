package lineage

import (
	"fmt"

	"github.com/meikuraledutech/lineage/frame"
)

// Kind tags the four supported table representations.
type Kind int

const (
	KindEagerTable Kind = iota
	KindLazyTable
	KindEagerDocumentTable
	KindLazyDocumentTable
)

func (k Kind) String() string {
	switch k {
	case KindEagerTable:
		return "EagerTable"
	case KindLazyTable:
		return "LazyTable"
	case KindEagerDocumentTable:
		return "EagerDocumentTable"
	case KindLazyDocumentTable:
		return "LazyDocumentTable"
	default:
		return "unknown"
	}
}

func kindFromString(s string) (Kind, bool) {
	switch s {
	case "EagerTable":
		return KindEagerTable, true
	case "LazyTable":
		return KindLazyTable, true
	case "EagerDocumentTable":
		return KindEagerDocumentTable, true
	case "LazyDocumentTable":
		return KindLazyDocumentTable, true
	default:
		return KindEagerTable, false
	}
}

// Data wraps exactly one engine table behind a single capability surface.
// The tag is fixed at construction; eager holds the table for eager kinds,
// lazy for lazy kinds, and docCol is non-empty for document kinds.
type Data struct {
	kind   Kind
	eager  *frame.Frame
	lazy   *frame.LazyFrame
	docCol string
}

// NewData classifies an engine value into a Data wrapper. Anything outside
// the four table kinds is rejected immediately with ErrUnsupportedData.
func NewData(v any) (*Data, error) {
	switch t := v.(type) {
	case *frame.Frame:
		return &Data{kind: KindEagerTable, eager: t}, nil
	case *frame.LazyFrame:
		return &Data{kind: KindLazyTable, lazy: t}, nil
	case *frame.DocFrame:
		return &Data{kind: KindEagerDocumentTable, eager: t.Frame(), docCol: t.DocColumn()}, nil
	case *frame.DocLazyFrame:
		return &Data{kind: KindLazyDocumentTable, lazy: t.LazyFrame(), docCol: t.DocColumn()}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedData, v)
	}
}

// isTableValue reports whether v is one of the four engine table kinds.
func isTableValue(v any) bool {
	switch v.(type) {
	case *frame.Frame, *frame.LazyFrame, *frame.DocFrame, *frame.DocLazyFrame:
		return true
	default:
		return false
	}
}

// Kind returns the variant tag.
func (d *Data) Kind() Kind { return d.kind }

// IsLazy reports whether the wrapped table is deferred.
func (d *Data) IsLazy() bool {
	return d.kind == KindLazyTable || d.kind == KindLazyDocumentTable
}

// DocColumn returns the document designation, or "" for plain kinds.
func (d *Data) DocColumn() string { return d.docCol }

// Columns returns the column names. Cheap for lazy kinds: the plan's tracked
// schema answers without executing it.
func (d *Data) Columns() []string {
	if d.IsLazy() {
		return d.lazy.Columns()
	}
	return d.eager.Columns()
}

// Schema returns the table schema without forcing evaluation.
func (d *Data) Schema() frame.Schema {
	if d.IsLazy() {
		return d.lazy.Schema()
	}
	return d.eager.Schema()
}

// Shape returns (rows, columns). Lazy kinds report -1 rows: the count is
// unknown until collection.
func (d *Data) Shape() (int, int) {
	if d.IsLazy() {
		return d.lazy.Shape()
	}
	return d.eager.Shape()
}

// Value reconstructs the wrapped engine value.
func (d *Data) Value() any {
	switch d.kind {
	case KindEagerTable:
		return d.eager
	case KindLazyTable:
		return d.lazy
	case KindEagerDocumentTable:
		doc, err := frame.NewDocFrame(d.eager, d.docCol)
		if err != nil {
			return d.eager
		}
		return doc
	case KindLazyDocumentTable:
		doc, err := frame.NewDocLazyFrame(d.lazy, d.docCol)
		if err != nil {
			return d.lazy
		}
		return doc
	default:
		return nil
	}
}

// Collect returns the eager counterpart, preserving any document
// designation. Already-eager data returns itself.
func (d *Data) Collect() (*Data, error) {
	if !d.IsLazy() {
		return d, nil
	}
	f, err := d.lazy.Collect()
	if err != nil {
		return nil, err
	}
	if d.docCol != "" {
		return NewData(mustDoc(f, d.docCol))
	}
	return NewData(f)
}

// mustDoc rewraps a document designation known to be valid for f; if the
// column no longer survives, the plain frame is returned instead.
func mustDoc(f *frame.Frame, docCol string) any {
	doc, err := frame.NewDocFrame(f, docCol)
	if err != nil {
		return f
	}
	return doc
}

// rewrapEager re-applies the document designation to an eager result when
// the designated column survived the operation.
func (d *Data) rewrapEager(f *frame.Frame) any {
	if d.docCol == "" {
		return f
	}
	return mustDoc(f, d.docCol)
}

func (d *Data) rewrapLazy(lf *frame.LazyFrame) any {
	if d.docCol == "" {
		return lf
	}
	doc, err := frame.NewDocLazyFrame(lf, d.docCol)
	if err != nil {
		return lf
	}
	return doc
}

// The operation set below delegates to whichever representation is wrapped,
// matching the input's laziness and carrying the document designation
// forward where the column survives.

func (d *Data) filter(pred frame.Predicate) (any, error) {
	if d.IsLazy() {
		return d.rewrapLazy(d.lazy.Filter(pred)), nil
	}
	return d.rewrapEager(d.eager.Filter(pred)), nil
}

func (d *Data) selectCols(cols []string) (any, error) {
	if d.IsLazy() {
		out, err := d.lazy.Select(cols...)
		if err != nil {
			return nil, err
		}
		return d.rewrapLazy(out), nil
	}
	out, err := d.eager.Select(cols...)
	if err != nil {
		return nil, err
	}
	return d.rewrapEager(out), nil
}

func (d *Data) withColumn(name string, dtype frame.DType, fn func(frame.Row) any) (any, error) {
	if d.IsLazy() {
		return d.rewrapLazy(d.lazy.WithColumn(name, dtype, fn)), nil
	}
	return d.rewrapEager(d.eager.WithColumn(name, dtype, fn)), nil
}

func (d *Data) slice(offset, length int) (any, error) {
	if d.IsLazy() {
		return d.rewrapLazy(d.lazy.Slice(offset, length)), nil
	}
	return d.rewrapEager(d.eager.Slice(offset, length)), nil
}

func (d *Data) sort(col string, desc bool) (any, error) {
	if d.IsLazy() {
		out, err := d.lazy.Sort(col, desc)
		if err != nil {
			return nil, err
		}
		return d.rewrapLazy(out), nil
	}
	out, err := d.eager.Sort(col, desc)
	if err != nil {
		return nil, err
	}
	return d.rewrapEager(out), nil
}

func (d *Data) head(n int) (any, error) {
	return d.slice(0, n)
}

func (d *Data) unique() (any, error) {
	if d.IsLazy() {
		return d.rewrapLazy(d.lazy.Unique()), nil
	}
	return d.rewrapEager(d.eager.Unique()), nil
}

func (d *Data) groupBy(cols []string) (any, error) {
	if d.IsLazy() {
		return d.lazy.GroupBy(cols...), nil
	}
	return d.eager.GroupBy(cols...), nil
}
