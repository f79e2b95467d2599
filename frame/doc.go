package frame

import "fmt"

// DocFrame is an eager frame with one designated document column. The
// designation is a column name into the frame's own schema; the column must
// exist and be string-typed. Both are checked here, at wrap time, never
// deferred.
type DocFrame struct {
	frame  *Frame
	docCol string
}

// NewDocFrame wraps a frame with a document designation. An empty docCol
// picks the first string column.
func NewDocFrame(f *Frame, docCol string) (*DocFrame, error) {
	col, err := resolveDocColumn(f.Schema(), docCol)
	if err != nil {
		return nil, err
	}
	return &DocFrame{frame: f, docCol: col}, nil
}

func resolveDocColumn(schema Schema, docCol string) (string, error) {
	if docCol == "" {
		for _, fld := range schema {
			if fld.DType == String {
				return fld.Name, nil
			}
		}
		return "", fmt.Errorf("%w: no string column to designate as document", ErrColumnNotFound)
	}
	fld, ok := schema.Field(docCol)
	if !ok {
		return "", fmt.Errorf("%w: document column %q", ErrColumnNotFound, docCol)
	}
	if fld.DType != String {
		return "", fmt.Errorf("%w: document column %q is %s, want string", ErrColumnType, docCol, fld.DType)
	}
	return docCol, nil
}

// Frame returns the underlying eager frame.
func (d *DocFrame) Frame() *Frame { return d.frame }

// DocColumn returns the designated document column name.
func (d *DocFrame) DocColumn() string { return d.docCol }

// Columns returns the column names in order.
func (d *DocFrame) Columns() []string { return d.frame.Columns() }

// Schema returns the underlying schema.
func (d *DocFrame) Schema() Schema { return d.frame.Schema() }

// Shape returns (rows, columns).
func (d *DocFrame) Shape() (int, int) { return d.frame.Shape() }

// Documents returns the document column's values.
func (d *DocFrame) Documents() []any {
	s, _ := d.frame.Column(d.docCol)
	return append([]any{}, s.Values...)
}

// Lazy wraps the document frame in a deferred plan, keeping the designation.
func (d *DocFrame) Lazy() *DocLazyFrame {
	return &DocLazyFrame{lazy: d.frame.Lazy(), docCol: d.docCol}
}

// DocLazyFrame is a deferred plan with a designated document column.
// Designation validity is checked against the tracked schema at wrap time.
type DocLazyFrame struct {
	lazy   *LazyFrame
	docCol string
}

// NewDocLazyFrame wraps a lazy plan with a document designation. An empty
// docCol picks the first string column of the tracked schema.
func NewDocLazyFrame(lf *LazyFrame, docCol string) (*DocLazyFrame, error) {
	col, err := resolveDocColumn(lf.schema, docCol)
	if err != nil {
		return nil, err
	}
	return &DocLazyFrame{lazy: lf, docCol: col}, nil
}

// LazyFrame returns the underlying deferred plan.
func (d *DocLazyFrame) LazyFrame() *LazyFrame { return d.lazy }

// DocColumn returns the designated document column name.
func (d *DocLazyFrame) DocColumn() string { return d.docCol }

// Columns returns the tracked column names without executing the plan.
func (d *DocLazyFrame) Columns() []string { return d.lazy.Columns() }

// Schema returns the tracked schema without executing the plan.
func (d *DocLazyFrame) Schema() Schema { return d.lazy.Schema() }

// Shape returns (-1, columns).
func (d *DocLazyFrame) Shape() (int, int) { return d.lazy.Shape() }

// Collect runs the plan and returns the eager document frame, keeping the
// designation.
func (d *DocLazyFrame) Collect() (*DocFrame, error) {
	f, err := d.lazy.Collect()
	if err != nil {
		return nil, err
	}
	return NewDocFrame(f, d.docCol)
}
