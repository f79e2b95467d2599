package lineage

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/lineage/frame"
)

func TestNodeSerializeRecord(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t), "root")
	require.NoError(t, err)

	rec, err := root.Serialize()
	require.NoError(t, err)
	assert.Equal(t, root.ID(), rec.NodeMetadata.ID)
	assert.Equal(t, "root", rec.NodeMetadata.Name)
	assert.Equal(t, "load_data", rec.NodeMetadata.Operation)
	assert.Equal(t, "EagerTable", rec.DataMetadata.Type)
	assert.False(t, rec.NodeMetadata.IsLazy)
	assert.Empty(t, rec.Error)

	var payload struct {
		Rows [][]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.SerializedData, &payload))
	assert.Len(t, payload.Rows, 3)
}

func TestLazyNodeSerializesCollectedPayload(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t).Lazy(), "root")
	require.NoError(t, err)

	rec, err := root.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "LazyTable", rec.DataMetadata.Type)
	assert.True(t, rec.NodeMetadata.IsLazy)
	assert.NotEmpty(t, rec.SerializedData)

	// And the node itself is still lazy afterwards.
	assert.True(t, root.IsLazy())
}

func TestRoundTripAllVariantKinds(t *testing.T) {
	w := NewWorkspace("mixed")
	w.SetMetadata("source", "unit")

	eager, err := w.SpawnRoot(rootFrame(t), "eager")
	require.NoError(t, err)
	child, err := eager.Filter(frame.Col("v").Gt(15))
	require.NoError(t, err)
	lazy, err := w.SpawnRoot(rootFrame(t).Lazy(), "lazy")
	require.NoError(t, err)
	doc, err := w.SpawnRoot(docRootFrame(t), "doc")
	require.NoError(t, err)
	lazyDoc, err := w.SpawnRoot(docRootFrame(t).Lazy(), "lazydoc")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Serialize(&buf))

	out, warnings, err := DeserializeWorkspace(&buf)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, w.ID(), out.ID())
	assert.Equal(t, "mixed", out.Name())
	assert.Equal(t, "unit", out.Metadata("source"))
	require.Equal(t, 5, out.Len())

	for _, want := range []struct {
		id   string
		kind Kind
	}{
		{eager.ID(), KindEagerTable},
		{lazy.ID(), KindLazyTable},
		{doc.ID(), KindEagerDocumentTable},
		{lazyDoc.ID(), KindLazyDocumentTable},
	} {
		n := out.GetNode(want.id)
		require.NotNil(t, n)
		assert.Equal(t, want.kind, n.Data().Kind())
	}

	// Content survives, including the document designation.
	assert.Equal(t, "text", out.GetNode(doc.ID()).DocColumn())
	assert.Equal(t, eagerRows(t, child), eagerRows(t, out.GetNode(child.ID())))

	// A lazy node decodes back to a deferred plan over the stored rows.
	restored := out.GetNode(lazy.ID())
	require.True(t, restored.IsLazy())
	collected, err := restored.Collect()
	require.NoError(t, err)
	assert.Equal(t, [][]any{{1.0, 10.0}, {2.0, 20.0}, {3.0, 30.0}}, eagerRows(t, collected))

	// Edges come back from the relationship list alone.
	assert.Equal(t, []string{child.ID()}, out.GetNode(eager.ID()).ChildIDs())
	assert.Equal(t, []string{eager.ID()}, out.GetNode(child.ID()).ParentIDs())
	assertEdgeSymmetry(t, out)
}

func TestDocumentCapturesPerNodeErrors(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t), "root")
	require.NoError(t, err)
	// A channel-valued cell cannot be marshaled to JSON.
	bad, err := root.WithColumn("bad", frame.String, func(frame.Row) any { return make(chan int) })
	require.NoError(t, err)

	doc := w.Document()
	require.Len(t, doc.Nodes, 2)

	good := doc.Nodes[root.ID()]
	assert.Empty(t, good.Error)
	assert.Equal(t, "EagerTable", good.DataMetadata.Type)

	rec := doc.Nodes[bad.ID()]
	assert.Equal(t, "error", rec.DataMetadata.Type)
	assert.NotEmpty(t, rec.Error)
	assert.Nil(t, rec.SerializedData)

	// The healthy nodes and the edge list are still present.
	assert.Equal(t, []Edge{{ParentID: root.ID(), ChildID: bad.ID()}}, doc.Relationships)
}

func TestFromDocumentSkipsMarkedNodes(t *testing.T) {
	w := NewWorkspace("w")
	root, err := w.SpawnRoot(rootFrame(t), "root")
	require.NoError(t, err)
	bad, err := root.WithColumn("bad", frame.String, func(frame.Row) any { return make(chan int) })
	require.NoError(t, err)

	out, warnings := FromDocument(w.Document())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], bad.ID())

	assert.Equal(t, 1, out.Len())
	assert.Nil(t, out.GetNode(bad.ID()))
	// The edge to the skipped node is dropped, not dangling.
	assert.Empty(t, out.GetNode(root.ID()).ChildIDs())
}

func TestDecodeNodeRejectsErrorMarker(t *testing.T) {
	w := NewWorkspace("w")
	rec := NodeRecord{
		NodeMetadata: NodeMetadata{ID: "x"},
		DataMetadata: DataMetadata{Type: "error"},
		Error:        "boom",
	}
	_, err := DecodeNode(rec, w)
	require.Error(t, err)
	assert.Equal(t, 0, w.Len())

	_, err = DecodeNode(NodeRecord{}, nil)
	require.ErrorIs(t, err, ErrNoWorkspace)
}

func TestDecodeStringFallbackPayload(t *testing.T) {
	raw, err := json.Marshal("plain text payload")
	require.NoError(t, err)
	w := NewWorkspace("w")
	n, err := DecodeNode(NodeRecord{
		NodeMetadata:   NodeMetadata{ID: "f1", Name: "fallback"},
		DataMetadata:   DataMetadata{Type: "stringFallback"},
		SerializedData: raw,
	}, w)
	require.NoError(t, err)
	assert.Equal(t, KindEagerTable, n.Data().Kind())
	assert.Equal(t, []string{"data"}, n.Columns())
	assert.Equal(t, [][]any{{"plain text payload"}}, eagerRows(t, n))
}

func TestDecodeUnknownTypeFails(t *testing.T) {
	w := NewWorkspace("w")
	_, err := DecodeNode(NodeRecord{
		NodeMetadata: NodeMetadata{ID: "x"},
		DataMetadata: DataMetadata{Type: "Mystery"},
	}, w)
	require.Error(t, err)
}

func TestDeserializeWorkspaceBadJSON(t *testing.T) {
	_, _, err := DeserializeWorkspace(bytes.NewReader([]byte("{not json")))
	require.Error(t, err)
}
