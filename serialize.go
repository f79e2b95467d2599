package lineage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/meikuraledutech/lineage/frame"
)

// NodeMetadata is the persisted identity of one node.
type NodeMetadata struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Operation string `json:"operation,omitempty"`
	DataType  string `json:"dataType"`
	IsLazy    bool   `json:"isLazy"`
}

// DataMetadata tags a node's serialized payload with its variant kind.
type DataMetadata struct {
	Type string `json:"type"`
}

// NodeRecord is the persisted form of one node: identity, variant tag, and
// an opaque per-variant payload. A record carrying Error holds no payload.
type NodeRecord struct {
	NodeMetadata   NodeMetadata    `json:"nodeMetadata"`
	DataMetadata   DataMetadata    `json:"dataMetadata"`
	SerializedData json.RawMessage `json:"serializedData,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Edge is one persisted parent/child relationship. The recorded edge list is
// authoritative on load; per-node id arrays are never replayed.
type Edge struct {
	ParentID string `json:"parentId"`
	ChildID  string `json:"childId"`
}

// WorkspaceDocument is the persisted form of a whole workspace.
type WorkspaceDocument struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Metadata      map[string]any        `json:"metadata"`
	Nodes         map[string]NodeRecord `json:"nodes"`
	Relationships []Edge                `json:"relationships"`
}

const typeStringFallback = "stringFallback"

type framePayload struct {
	Schema         []fieldPayload `json:"schema"`
	Rows           [][]any        `json:"rows"`
	DocumentColumn string         `json:"documentColumn,omitempty"`
}

type fieldPayload struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

// Serialize encodes the node into its persisted record. Lazy data is
// collected for the payload; the record still marks the node lazy so it
// decodes back to a deferred plan.
func (n *Node) Serialize() (NodeRecord, error) {
	rec := NodeRecord{
		NodeMetadata: NodeMetadata{
			ID:        n.id,
			Name:      n.name,
			Operation: n.operation,
			DataType:  n.data.Kind().String(),
			IsLazy:    n.IsLazy(),
		},
		DataMetadata: DataMetadata{Type: n.data.Kind().String()},
	}
	collected, err := n.data.Collect()
	if err != nil {
		return rec, err
	}
	payload := framePayload{
		Rows:           collected.eager.Rows(),
		DocumentColumn: n.data.DocColumn(),
	}
	for _, fld := range collected.eager.Schema() {
		payload.Schema = append(payload.Schema, fieldPayload{Name: fld.Name, DType: fld.DType.String()})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return rec, err
	}
	rec.SerializedData = raw
	return rec, nil
}

// DecodeNode reconstructs a node from its record by dispatching on the
// recorded variant tag, and registers it with the workspace. Edges are not
// rebuilt here; the caller replays the recorded edge list.
func DecodeNode(rec NodeRecord, ws *Workspace) (*Node, error) {
	if ws == nil {
		return nil, ErrNoWorkspace
	}
	if rec.Error != "" {
		return nil, fmt.Errorf("lineage: node %s carries error marker: %s", rec.NodeMetadata.ID, rec.Error)
	}
	d, err := decodeData(rec.DataMetadata, rec.SerializedData)
	if err != nil {
		return nil, err
	}
	n := &Node{
		id:        rec.NodeMetadata.ID,
		name:      rec.NodeMetadata.Name,
		operation: rec.NodeMetadata.Operation,
		data:      d,
	}
	ws.insert(n)
	return n, nil
}

func decodeData(meta DataMetadata, raw json.RawMessage) (*Data, error) {
	if meta.Type == typeStringFallback {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("lineage: decode fallback payload: %w", err)
		}
		f, err := frame.New(frame.NewSeries("data", frame.String, s))
		if err != nil {
			return nil, err
		}
		return NewData(f)
	}

	kind, ok := kindFromString(meta.Type)
	if !ok {
		return nil, fmt.Errorf("lineage: unknown data type %q", meta.Type)
	}
	var payload framePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("lineage: decode payload: %w", err)
	}
	schema := make(frame.Schema, 0, len(payload.Schema))
	for _, fld := range payload.Schema {
		dt, err := frame.DTypeFromString(fld.DType)
		if err != nil {
			return nil, err
		}
		schema = append(schema, frame.Field{Name: fld.Name, DType: dt})
	}
	f, err := frame.FromRows(schema, payload.Rows)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindEagerTable:
		return NewData(f)
	case KindLazyTable:
		return NewData(f.Lazy())
	case KindEagerDocumentTable:
		doc, err := frame.NewDocFrame(f, payload.DocumentColumn)
		if err != nil {
			return nil, err
		}
		return NewData(doc)
	case KindLazyDocumentTable:
		doc, err := frame.NewDocLazyFrame(f.Lazy(), payload.DocumentColumn)
		if err != nil {
			return nil, err
		}
		return NewData(doc)
	default:
		return nil, fmt.Errorf("lineage: unknown data type %q", meta.Type)
	}
}

// Document builds the workspace's persisted form. A node whose content fails
// to serialize is captured as an inline error marker; the rest of the
// workspace is still emitted.
func (w *Workspace) Document() WorkspaceDocument {
	doc := WorkspaceDocument{
		ID:            w.id,
		Name:          w.name,
		Metadata:      w.meta,
		Nodes:         make(map[string]NodeRecord, len(w.nodes)),
		Relationships: []Edge{},
	}
	for _, n := range w.Nodes() {
		rec, err := n.Serialize()
		if err != nil {
			rec.DataMetadata = DataMetadata{Type: "error"}
			rec.SerializedData = nil
			rec.Error = err.Error()
		}
		doc.Nodes[n.id] = rec
	}
	for _, n := range w.Nodes() {
		for _, child := range n.children {
			doc.Relationships = append(doc.Relationships, Edge{ParentID: n.id, ChildID: child.id})
		}
	}
	return doc
}

// Serialize writes the workspace document as JSON.
func (w *Workspace) Serialize(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(w.Document()); err != nil {
		return fmt.Errorf("lineage: serialize workspace: %w", err)
	}
	return nil
}

// FromDocument reconstructs a workspace from its persisted form. Node
// entries carrying error markers, or that fail to decode, are skipped with a
// recorded warning; edges are rebuilt strictly from the relationship list,
// ignoring pairs whose endpoints did not load.
func FromDocument(doc WorkspaceDocument) (*Workspace, []string) {
	w := &Workspace{
		id:    doc.ID,
		name:  doc.Name,
		nodes: make(map[string]*Node),
		meta:  doc.Metadata,
	}
	if w.meta == nil {
		w.meta = make(map[string]any)
	}

	var warnings []string
	for id, rec := range doc.Nodes {
		if rec.Error != "" || rec.DataMetadata.Type == "error" {
			warnings = append(warnings, fmt.Sprintf("node %s skipped: %s", id, rec.Error))
			continue
		}
		if _, err := DecodeNode(rec, w); err != nil {
			warnings = append(warnings, fmt.Sprintf("node %s skipped: %v", id, err))
		}
	}
	for _, edge := range doc.Relationships {
		parent := w.nodes[edge.ParentID]
		child := w.nodes[edge.ChildID]
		if parent == nil || child == nil {
			continue
		}
		link(parent, child)
	}
	return w, warnings
}

// DeserializeWorkspace reads a JSON workspace document and reconstructs the
// workspace. The returned warnings list one entry per skipped node.
func DeserializeWorkspace(in io.Reader) (*Workspace, []string, error) {
	var doc WorkspaceDocument
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("lineage: deserialize workspace: %w", err)
	}
	w, warnings := FromDocument(doc)
	return w, warnings, nil
}
