package lineage

// NodeSummary is a flattened read projection of one node, consumed by
// presentation layers. It is derived state, never owned.
type NodeSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Kind           string   `json:"kind"`
	IsLazy         bool     `json:"isLazy"`
	Rows           int      `json:"rows"`
	Cols           int      `json:"cols"`
	Columns        []string `json:"columns"`
	Operation      string   `json:"operation,omitempty"`
	DocumentColumn string   `json:"documentColumn,omitempty"`
	ParentIDs      []string `json:"parentIds"`
	ChildIDs       []string `json:"childIds"`
	IsRoot         bool     `json:"isRoot"`
	IsLeaf         bool     `json:"isLeaf"`
}

// Summary projects the node for display. It is best-effort: it backs
// non-critical UI projections, so internal failures degrade to empty fields
// rather than raising.
func (n *Node) Summary() NodeSummary {
	s := NodeSummary{
		ID:        n.id,
		Name:      n.name,
		Operation: n.operation,
		ParentIDs: n.ParentIDs(),
		ChildIDs:  n.ChildIDs(),
		IsRoot:    len(n.parents) == 0,
		IsLeaf:    len(n.children) == 0,
	}
	if n.data == nil {
		return s
	}
	s.Kind = n.data.Kind().String()
	s.IsLazy = n.data.IsLazy()
	s.Rows, s.Cols = n.data.Shape()
	s.Columns = n.data.Columns()
	s.DocumentColumn = n.data.DocColumn()
	return s
}

// WorkspaceSummary is a flattened read projection of a workspace.
type WorkspaceSummary struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	TotalNodes   int            `json:"totalNodes"`
	RootNodes    int            `json:"rootNodes"`
	LeafNodes    int            `json:"leafNodes"`
	KindCounts   map[string]int `json:"kindCounts"`
	LazyNodes    int            `json:"lazyNodes"`
	EagerNodes   int            `json:"eagerNodes"`
	MetadataKeys []string       `json:"metadataKeys"`
}

// Summary projects the workspace for display.
func (w *Workspace) Summary() WorkspaceSummary {
	s := WorkspaceSummary{
		ID:           w.id,
		Name:         w.name,
		TotalNodes:   len(w.nodes),
		RootNodes:    len(w.RootNodes()),
		LeafNodes:    len(w.LeafNodes()),
		KindCounts:   make(map[string]int),
		MetadataKeys: w.MetadataKeys(),
	}
	for _, n := range w.Nodes() {
		s.KindCounts[n.data.Kind().String()]++
		if n.IsLazy() {
			s.LazyNodes++
		} else {
			s.EagerNodes++
		}
	}
	return s
}

// GraphView is the one-way graph projection: node summaries plus edge list.
type GraphView struct {
	Nodes     []NodeSummary    `json:"nodes"`
	Edges     []GraphEdge      `json:"edges"`
	Workspace WorkspaceSummary `json:"workspaceInfo"`
}

// GraphEdge is one displayed parent/child edge.
type GraphEdge struct {
	ParentID  string `json:"parentId"`
	ChildID   string `json:"childId"`
	Operation string `json:"operation,omitempty"`
}

// Graph projects the whole workspace as a graph record for display.
func (w *Workspace) Graph() GraphView {
	view := GraphView{
		Nodes:     make([]NodeSummary, 0, len(w.nodes)),
		Edges:     []GraphEdge{},
		Workspace: w.Summary(),
	}
	for _, n := range w.Nodes() {
		view.Nodes = append(view.Nodes, n.Summary())
		for _, child := range n.children {
			view.Edges = append(view.Edges, GraphEdge{ParentID: n.id, ChildID: child.id, Operation: child.operation})
		}
	}
	return view
}
