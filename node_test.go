package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/lineage/frame"
)

func rootFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.NewSeries("id", frame.Number, 1, 2, 3),
		frame.NewSeries("v", frame.Number, 10, 20, 30),
	)
	require.NoError(t, err)
	return f
}

func docRootFrame(t *testing.T) *frame.DocFrame {
	t.Helper()
	f, err := frame.New(
		frame.NewSeries("id", frame.Number, 1, 2),
		frame.NewSeries("text", frame.String, "hello world", "goodbye"),
	)
	require.NoError(t, err)
	doc, err := frame.NewDocFrame(f, "text")
	require.NoError(t, err)
	return doc
}

// eagerRows pulls the rows out of an eager node.
func eagerRows(t *testing.T, n *Node) [][]any {
	t.Helper()
	require.False(t, n.IsLazy())
	switch v := n.Data().Value().(type) {
	case *frame.Frame:
		return v.Rows()
	case *frame.DocFrame:
		return v.Frame().Rows()
	default:
		t.Fatalf("unexpected value %T", v)
		return nil
	}
}

// assertEdgeSymmetry checks that for every owned pair, B is in A's children
// exactly when A is in B's parents.
func assertEdgeSymmetry(t *testing.T, w *Workspace) {
	t.Helper()
	for _, a := range w.Nodes() {
		for _, cid := range a.ChildIDs() {
			if b := w.GetNode(cid); b != nil {
				assert.Contains(t, b.ParentIDs(), a.ID())
			}
		}
		for _, pid := range a.ParentIDs() {
			if b := w.GetNode(pid); b != nil {
				assert.Contains(t, b.ChildIDs(), a.ID())
			}
		}
	}
}

func TestNewNodeRequiresWorkspace(t *testing.T) {
	_, err := NewNode(rootFrame(t), "root", nil, nil, "")
	require.ErrorIs(t, err, ErrNoWorkspace)
}

func TestNewNodeRejectsUnsupportedData(t *testing.T) {
	w := NewWorkspace("w")
	_, err := NewNode(42, "nope", w, nil, "")
	require.ErrorIs(t, err, ErrUnsupportedData)
	assert.Equal(t, 0, w.Len())
}

func TestNewNodeDefaults(t *testing.T) {
	w := NewWorkspace("w")
	n, err := NewNode(rootFrame(t), "", w, nil, "")
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID())
	assert.Equal(t, "node_"+n.ID()[:8], n.Name())
	assert.Same(t, w, n.Workspace())
	assert.Same(t, n, w.GetNode(n.ID()))
}

func TestFilterAndSliceLineage(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t), "root")
	require.NoError(t, err)

	filtered, err := root.Filter(frame.Col("v").Gt(15))
	require.NoError(t, err)
	assert.Equal(t, "filter_root", filtered.Name())
	assert.Equal(t, "filter(root)", filtered.Operation())
	assert.Equal(t, []string{root.ID()}, filtered.ParentIDs())
	assert.Equal(t, [][]any{{2.0, 20.0}, {3.0, 30.0}}, eagerRows(t, filtered))

	sliced, err := root.Slice(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "slice_root", sliced.Name())
	assert.Equal(t, [][]any{{1.0, 10.0}, {2.0, 20.0}}, eagerRows(t, sliced))

	assert.Equal(t, []string{filtered.ID(), sliced.ID()}, root.ChildIDs())
	assert.ElementsMatch(t, []*Node{filtered, sliced}, w.LeafNodes())
	assert.Equal(t, []*Node{root}, w.RootNodes())
	assertEdgeSymmetry(t, w)
}

func TestOperationFailureCreatesNoNode(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t), "root")
	require.NoError(t, err)

	_, err = root.Select("missing")
	require.ErrorIs(t, err, frame.ErrColumnNotFound)
	assert.Equal(t, 1, w.Len())
	assert.Empty(t, root.ChildIDs())
}

func TestOperationNeverMutatesCaller(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t), "root")
	require.NoError(t, err)

	_, err = root.Filter(frame.Col("v").Gt(100))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{1.0, 10.0}, {2.0, 20.0}, {3.0, 30.0}}, eagerRows(t, root))
}

func TestLazyOperationStaysLazy(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t).Lazy(), "lazyroot")
	require.NoError(t, err)

	filtered, err := root.Filter(frame.Col("v").Gt(15))
	require.NoError(t, err)
	assert.True(t, filtered.IsLazy())
	assert.Equal(t, KindLazyTable, filtered.Data().Kind())

	rows, cols := filtered.Shape()
	assert.Equal(t, -1, rows)
	assert.Equal(t, 2, cols)
}

func TestSliceRange(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t), "root")
	require.NoError(t, err)

	n, err := root.SliceRange(Range{Start: 1, Stop: 3})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{2.0, 20.0}, {3.0, 30.0}}, eagerRows(t, n))

	open, err := root.SliceRange(Range{Start: 1, Stop: -1})
	require.NoError(t, err)
	assert.Equal(t, 2, len(eagerRows(t, open)))
}

func TestColumnPromotion(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t), "root")
	require.NoError(t, err)

	col, err := root.Column("v")
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, col.Columns())
	assert.Equal(t, [][]any{{10.0}, {20.0}, {30.0}}, eagerRows(t, col))
	assert.Equal(t, []string{root.ID()}, col.ParentIDs())
}

func TestJoinParents(t *testing.T) {
	w := NewWorkspace("w")
	a, err := w.SpawnRoot(rootFrame(t), "a")
	require.NoError(t, err)
	bf, err := frame.New(
		frame.NewSeries("id", frame.Number, 2, 3),
		frame.NewSeries("extra", frame.String, "two", "three"),
	)
	require.NoError(t, err)
	b, err := w.SpawnRoot(bf, "b")
	require.NoError(t, err)

	joined, err := a.Join(b, []string{"id"}, frame.JoinInner)
	require.NoError(t, err)
	assert.Equal(t, "join_a_b", joined.Name())
	assert.Equal(t, "join(a, b)", joined.Operation())
	assert.Equal(t, []string{a.ID(), b.ID()}, joined.ParentIDs())
	assertEdgeSymmetry(t, w)
}

func TestJoinMixedLazinessForcesEager(t *testing.T) {
	w := NewWorkspace("w")
	a, err := w.SpawnRoot(rootFrame(t).Lazy(), "a")
	require.NoError(t, err)
	b, err := w.SpawnRoot(rootFrame(t), "b")
	require.NoError(t, err)

	joined, err := a.Join(b, []string{"id"}, frame.JoinInner)
	require.NoError(t, err)
	assert.False(t, joined.IsLazy())
	// The lazy caller itself is untouched.
	assert.True(t, a.IsLazy())
}

func TestJoinBothLazyStaysLazy(t *testing.T) {
	w := NewWorkspace("w")
	a, err := w.SpawnRoot(rootFrame(t).Lazy(), "a")
	require.NoError(t, err)
	b, err := w.SpawnRoot(rootFrame(t).Lazy(), "b")
	require.NoError(t, err)

	joined, err := a.Join(b, []string{"id"}, frame.JoinInner)
	require.NoError(t, err)
	assert.True(t, joined.IsLazy())
}

func TestJoinDropsDocumentDesignation(t *testing.T) {
	w := NewWorkspace("w")
	doc, err := w.SpawnRoot(docRootFrame(t), "doc")
	require.NoError(t, err)
	plain, err := w.SpawnRoot(rootFrame(t), "plain")
	require.NoError(t, err)

	joined, err := doc.Join(plain, []string{"id"}, frame.JoinInner)
	require.NoError(t, err)
	assert.Equal(t, KindEagerTable, joined.Data().Kind())
	assert.Empty(t, joined.DocColumn())
}

func TestCollectAsymmetry(t *testing.T) {
	w := NewWorkspace("w")
	lazyRoot, err := w.SpawnRoot(rootFrame(t).Lazy(), "lazyroot")
	require.NoError(t, err)

	c, err := lazyRoot.Collect()
	require.NoError(t, err)
	assert.False(t, c.IsLazy())
	assert.True(t, lazyRoot.IsLazy())
	assert.Equal(t, "collect_lazyroot", c.Name())
	assert.Equal(t, []string{lazyRoot.ID()}, c.ParentIDs())

	// Collecting an eager node is a no-op returning the same instance.
	c2, err := c.Collect()
	require.NoError(t, err)
	assert.Same(t, c, c2)
	assert.Empty(t, c.ChildIDs())

	// Collecting the lazy node twice yields two distinct, content-equal
	// eager children.
	other, err := lazyRoot.Collect()
	require.NoError(t, err)
	assert.NotEqual(t, c.ID(), other.ID())
	assert.Equal(t, eagerRows(t, c), eagerRows(t, other))
	assert.Equal(t, []string{c.ID(), other.ID()}, lazyRoot.ChildIDs())
	assertEdgeSymmetry(t, w)
}

func TestCollectKeepsDocumentDesignation(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(docRootFrame(t).Lazy(), "lazydoc")
	require.NoError(t, err)
	assert.Equal(t, KindLazyDocumentTable, root.Data().Kind())

	c, err := root.Collect()
	require.NoError(t, err)
	assert.Equal(t, KindEagerDocumentTable, c.Data().Kind())
	assert.Equal(t, "text", c.DocColumn())
}

func TestMaterializeIsInPlace(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t).Lazy(), "lazyroot")
	require.NoError(t, err)
	before := w.Len()

	same, err := root.Materialize()
	require.NoError(t, err)
	assert.Same(t, root, same)
	assert.False(t, root.IsLazy())
	assert.Equal(t, before, w.Len())
	assert.Empty(t, root.ChildIDs())

	// Materializing an eager node is a no-op.
	same, err = root.Materialize()
	require.NoError(t, err)
	assert.Same(t, root, same)
}

func TestGroupByAggCreatesOneNode(t *testing.T) {
	w := NewWorkspace("w")
	f, err := frame.New(
		frame.NewSeries("tag", frame.String, "a", "b", "a"),
		frame.NewSeries("v", frame.Number, 1, 2, 3),
	)
	require.NoError(t, err)
	root, err := w.SpawnRoot(f, "root")
	require.NoError(t, err)

	g, err := root.GroupBy("tag")
	require.NoError(t, err)
	// The grouped handle is transient: no node yet.
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, []string{"tag"}, g.Keys())

	agg, err := g.Agg(frame.Sum("v"))
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, []string{root.ID()}, agg.ParentIDs())
	assert.Equal(t, [][]any{{"a", 4.0}, {"b", 2.0}}, eagerRows(t, agg))
}

func TestLazyGroupByAggStaysLazy(t *testing.T) {
	w := NewWorkspace("w")
	f, err := frame.New(
		frame.NewSeries("tag", frame.String, "a", "b", "a"),
		frame.NewSeries("v", frame.Number, 1, 2, 3),
	)
	require.NoError(t, err)
	root, err := w.SpawnRoot(f.Lazy(), "root")
	require.NoError(t, err)

	g, err := root.GroupBy("tag")
	require.NoError(t, err)
	agg, err := g.Agg(frame.Sum("v"))
	require.NoError(t, err)
	assert.True(t, agg.IsLazy())
	assert.Equal(t, []string{"tag", "v_sum"}, agg.Columns())
}

func TestDocFilterKeepsDesignation(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(docRootFrame(t), "doc")
	require.NoError(t, err)

	filtered, err := root.Filter(frame.Col("text").Contains("world"))
	require.NoError(t, err)
	assert.Equal(t, KindEagerDocumentTable, filtered.Data().Kind())
	assert.Equal(t, "text", filtered.DocColumn())
}

func TestDocSelectDroppingColumnDropsDesignation(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(docRootFrame(t), "doc")
	require.NoError(t, err)

	selected, err := root.Select("id")
	require.NoError(t, err)
	assert.Equal(t, KindEagerTable, selected.Data().Kind())
	assert.Empty(t, selected.DocColumn())
}

func TestNodeSummaryBestEffort(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(docRootFrame(t), "doc")
	require.NoError(t, err)

	s := root.Summary()
	assert.Equal(t, root.ID(), s.ID)
	assert.Equal(t, "EagerDocumentTable", s.Kind)
	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, []string{"id", "text"}, s.Columns)
	assert.Equal(t, "text", s.DocumentColumn)
	assert.True(t, s.IsRoot)
	assert.True(t, s.IsLeaf)
}
