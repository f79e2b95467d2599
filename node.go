// Package lineage tracks the provenance of transformations applied to
// tabular data. Every derived table is a Node remembering which node(s)
// produced it and how; a Workspace owns the resulting graph and can persist
// and restore it.
package lineage

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/lineage/frame"
)

// Node is one addressed computation step: exactly one data variant plus its
// lineage edges. Edges hold direct references so they survive nodes moving
// between workspaces; the id-list accessors are projections over them. A
// node never owns another node: ownership lives in the workspace registry.
type Node struct {
	id        string
	name      string
	operation string
	data      *Data
	parents   []*Node
	children  []*Node
	ws        *Workspace
}

// NewNode wraps an engine table in a node and registers it with the given
// workspace. The workspace is required; parents, name and operation are
// optional. The node is wired as a child of every parent.
func NewNode(data any, name string, ws *Workspace, parents []*Node, operation string) (*Node, error) {
	if ws == nil {
		return nil, ErrNoWorkspace
	}
	d, err := NewData(data)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if name == "" {
		name = "node_" + id[:8]
	}
	n := &Node{
		id:        id,
		name:      name,
		operation: operation,
		data:      d,
	}
	ws.AddNode(n)
	for _, p := range parents {
		link(p, n)
	}
	return n, nil
}

// ID returns the node's immutable identifier.
func (n *Node) ID() string { return n.id }

// Name returns the node's human-readable label.
func (n *Node) Name() string { return n.name }

// SetName relabels the node. Names are not required to be unique.
func (n *Node) SetName(name string) { n.name = name }

// Operation returns the label describing how this node was produced.
func (n *Node) Operation() string { return n.operation }

// Data returns the node's variant wrapper.
func (n *Node) Data() *Data { return n.data }

// Workspace returns the node's owning workspace.
func (n *Node) Workspace() *Workspace { return n.ws }

// IsLazy reports whether the node's data is deferred.
func (n *Node) IsLazy() bool { return n.data.IsLazy() }

// DocColumn returns the document designation, or "" for plain kinds.
func (n *Node) DocColumn() string { return n.data.DocColumn() }

// Columns returns the column names without forcing evaluation.
func (n *Node) Columns() []string { return n.data.Columns() }

// Schema returns the table schema without forcing evaluation.
func (n *Node) Schema() frame.Schema { return n.data.Schema() }

// Shape returns (rows, columns); lazy nodes report -1 rows.
func (n *Node) Shape() (int, int) { return n.data.Shape() }

// ParentIDs returns the parent node ids in order, including parents owned
// by another workspace.
func (n *Node) ParentIDs() []string { return nodeIDs(n.parents) }

// ChildIDs returns the child node ids in order.
func (n *Node) ChildIDs() []string { return nodeIDs(n.children) }

// Parents returns the parent nodes owned by the same workspace. A parent
// living in another workspace is skipped.
func (n *Node) Parents() []*Node { return n.sameWorkspace(n.parents) }

// Children returns the child nodes owned by the same workspace.
func (n *Node) Children() []*Node { return n.sameWorkspace(n.children) }

func nodeIDs(nodes []*Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.id)
	}
	return ids
}

func (n *Node) sameWorkspace(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, m := range nodes {
		if m.ws == n.ws {
			out = append(out, m)
		}
	}
	return out
}

// derive runs one operation against the node's data and wraps a table-shaped
// result as a new child node in the same workspace. Engine errors propagate
// unchanged; no node is created on failure.
func (n *Node) derive(op string, fn func(*Data) (any, error)) (*Node, error) {
	res, err := fn(n.data)
	if err != nil {
		return nil, err
	}
	out, err := n.classify(op, res)
	if err != nil {
		return nil, err
	}
	child, ok := out.(*Node)
	if !ok {
		return nil, fmt.Errorf("%w: %s did not produce a table", ErrCapabilityNotFound, op)
	}
	return child, nil
}

// classify pattern-matches an operation result against the closed set of
// table kinds, intermediate handles, and plain values. Tables become child
// nodes, a bare series is promoted to a single-column table, grouped handles
// become transient proxies, and anything else is returned as-is.
func (n *Node) classify(op string, res any) (any, error) {
	switch v := res.(type) {
	case *frame.Frame, *frame.LazyFrame, *frame.DocFrame, *frame.DocLazyFrame:
		return n.newChild(op, res)
	case frame.Series:
		f, err := frame.New(v)
		if err != nil {
			return nil, err
		}
		return n.newChild(op, f)
	case *frame.GroupedFrame:
		return &GroupedNode{parent: n, op: op, eager: v}, nil
	case *frame.GroupedLazyFrame:
		return &GroupedNode{parent: n, op: op, lazy: v}, nil
	default:
		return v, nil
	}
}

func (n *Node) newChild(op string, value any) (*Node, error) {
	return NewNode(
		value,
		fmt.Sprintf("%s_%s", op, n.name),
		n.ws,
		[]*Node{n},
		fmt.Sprintf("%s(%s)", op, n.name),
	)
}

// Filter derives a child holding the rows matching the predicate. The
// result's laziness matches this node's.
func (n *Node) Filter(pred frame.Predicate) (*Node, error) {
	return n.derive("filter", func(d *Data) (any, error) { return d.filter(pred) })
}

// Select derives a child holding only the named columns.
func (n *Node) Select(cols ...string) (*Node, error) {
	return n.derive("select", func(d *Data) (any, error) { return d.selectCols(cols) })
}

// WithColumn derives a child with an extra computed column.
func (n *Node) WithColumn(name string, dtype frame.DType, fn func(frame.Row) any) (*Node, error) {
	return n.derive("with_column", func(d *Data) (any, error) { return d.withColumn(name, dtype, fn) })
}

// Slice derives a child holding length rows starting at offset.
func (n *Node) Slice(offset, length int) (*Node, error) {
	return n.derive("slice", func(d *Data) (any, error) { return d.slice(offset, length) })
}

// Range is a half-open row range accepted by SliceRange. A negative Stop
// means "to the end".
type Range struct {
	Start int
	Stop  int
}

// SliceRange translates a half-open range into (offset, length) and slices.
func (n *Node) SliceRange(r Range) (*Node, error) {
	offset := r.Start
	if offset < 0 {
		offset = 0
	}
	length := -1
	if r.Stop >= 0 {
		length = r.Stop - offset
		if length < 0 {
			length = 0
		}
	}
	return n.Slice(offset, length)
}

// Sort derives a child stably sorted by one column.
func (n *Node) Sort(col string, desc bool) (*Node, error) {
	return n.derive("sort", func(d *Data) (any, error) { return d.sort(col, desc) })
}

// Head derives a child holding the first count rows.
func (n *Node) Head(count int) (*Node, error) {
	return n.derive("head", func(d *Data) (any, error) { return d.head(count) })
}

// Column derives a single-column child. On eager data the bare column value
// is promoted to a one-column table; on lazy data the plan is narrowed
// instead, so nothing is evaluated.
func (n *Node) Column(name string) (*Node, error) {
	return n.derive("column", func(d *Data) (any, error) {
		if d.IsLazy() {
			return d.lazy.Select(name)
		}
		s, ok := d.eager.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", frame.ErrColumnNotFound, name)
		}
		return s, nil
	})
}

// Unique derives a child holding the distinct rows.
func (n *Node) Unique() (*Node, error) {
	return n.derive("unique", func(d *Data) (any, error) { return d.unique() })
}

// GroupBy returns a transient grouped handle. No node is created until Agg
// yields a table, so a fluent group-then-aggregate chain produces exactly
// one node.
func (n *Node) GroupBy(cols ...string) (*GroupedNode, error) {
	res, err := n.data.groupBy(cols)
	if err != nil {
		return nil, err
	}
	out, err := n.classify("group_by", res)
	if err != nil {
		return nil, err
	}
	g, ok := out.(*GroupedNode)
	if !ok {
		return nil, fmt.Errorf("%w: group_by", ErrCapabilityNotFound)
	}
	return g, nil
}

// Join derives a child from both nodes with parents [n, other] in that
// order. Mixed laziness forces the lazy side eager before joining; two lazy
// inputs stay lazy. Any document designation is dropped: joining a
// document-designated table with anything yields a plain table.
func (n *Node) Join(other *Node, on []string, how frame.JoinType) (*Node, error) {
	var joined any
	switch {
	case n.IsLazy() && other.IsLazy():
		out, err := n.data.lazy.Join(other.data.lazy, on, how)
		if err != nil {
			return nil, err
		}
		joined = out
	default:
		left, err := eagerFrame(n.data)
		if err != nil {
			return nil, err
		}
		right, err := eagerFrame(other.data)
		if err != nil {
			return nil, err
		}
		out, err := left.Join(right, on, how)
		if err != nil {
			return nil, err
		}
		joined = out
	}
	return NewNode(
		joined,
		fmt.Sprintf("join_%s_%s", n.name, other.name),
		n.ws,
		[]*Node{n, other},
		fmt.Sprintf("join(%s, %s)", n.name, other.name),
	)
}

func eagerFrame(d *Data) (*frame.Frame, error) {
	collected, err := d.Collect()
	if err != nil {
		return nil, err
	}
	return collected.eager, nil
}

// Collect materializes a lazy node into a new eager child, so the lineage
// visibly records where materialization happened; the calling node stays
// lazy. On an already-eager node it is a no-op returning the same node.
func (n *Node) Collect() (*Node, error) {
	if !n.IsLazy() {
		return n, nil
	}
	collected, err := n.data.Collect()
	if err != nil {
		return nil, err
	}
	return NewNode(
		collected.Value(),
		"collect_"+n.name,
		n.ws,
		[]*Node{n},
		fmt.Sprintf("collect(%s)", n.name),
	)
}

// Materialize forces a lazy node eager in place. No node or edge is
// created; the same node is returned. Eager nodes are untouched.
func (n *Node) Materialize() (*Node, error) {
	if !n.IsLazy() {
		return n, nil
	}
	collected, err := n.data.Collect()
	if err != nil {
		return nil, err
	}
	n.data = collected
	return n, nil
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(id=%s, name=%q, kind=%s, lazy=%t, parents=%d, children=%d)",
		n.id[:8], n.name, n.data.Kind(), n.IsLazy(), len(n.parents), len(n.children))
}

// GroupedNode is the transient proxy between GroupBy and Agg. It is not a
// node and is never registered; Agg applies the same classify-and-wrap rule
// as any other operation.
type GroupedNode struct {
	parent *Node
	op     string
	eager  *frame.GroupedFrame
	lazy   *frame.GroupedLazyFrame
}

// Keys returns the grouping columns.
func (g *GroupedNode) Keys() []string {
	if g.lazy != nil {
		return g.lazy.Keys()
	}
	return g.eager.Keys()
}

// Agg runs the aggregation and wraps the resulting table as a child of the
// node that started the chain.
func (g *GroupedNode) Agg(aggs ...frame.Aggregation) (*Node, error) {
	return g.parent.derive(g.op+".agg", func(d *Data) (any, error) {
		if g.lazy != nil {
			out, err := g.lazy.Agg(aggs...)
			if err != nil {
				return nil, err
			}
			return d.rewrapLazy(out), nil
		}
		out, err := g.eager.Agg(aggs...)
		if err != nil {
			return nil, err
		}
		return d.rewrapEager(out), nil
	})
}
