package lineage

import (
	"github.com/google/uuid"
)

// Workspace is the exclusive-ownership registry and persistence boundary for
// a set of nodes. Nodes are held in an arena keyed by id; insertion order is
// kept so listings and persistence are deterministic.
type Workspace struct {
	id    string
	name  string
	nodes map[string]*Node
	order []string
	meta  map[string]any
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(name string) *Workspace {
	id := uuid.NewString()
	if name == "" {
		name = "workspace_" + id[:8]
	}
	return &Workspace{
		id:    id,
		name:  name,
		nodes: make(map[string]*Node),
		meta:  make(map[string]any),
	}
}

// SpawnRoot wraps engine data in a root node registered with this
// workspace. This is the explicit replacement for constructing a node
// without a workspace.
func (w *Workspace) SpawnRoot(data any, name string) (*Node, error) {
	return NewNode(data, name, w, nil, "load_data")
}

// ID returns the workspace's identifier.
func (w *Workspace) ID() string { return w.id }

// Name returns the workspace's label.
func (w *Workspace) Name() string { return w.name }

// SetName relabels the workspace.
func (w *Workspace) SetName(name string) { w.name = name }

// Len returns the number of owned nodes.
func (w *Workspace) Len() int { return len(w.nodes) }

// Metadata returns the value stored under key, or nil.
func (w *Workspace) Metadata(key string) any { return w.meta[key] }

// SetMetadata stores a value in the workspace's open metadata map.
func (w *Workspace) SetMetadata(key string, value any) { w.meta[key] = value }

// MetadataKeys returns the metadata keys in unspecified order.
func (w *Workspace) MetadataKeys() []string {
	keys := make([]string, 0, len(w.meta))
	for k := range w.meta {
		keys = append(keys, k)
	}
	return keys
}

// GetNode returns the node with the given id, or nil if not owned here.
func (w *Workspace) GetNode(id string) *Node { return w.nodes[id] }

// GetNodeByName returns the first owned node with the given name, or nil.
func (w *Workspace) GetNodeByName(name string) *Node {
	for _, id := range w.order {
		if n := w.nodes[id]; n.name == name {
			return n
		}
	}
	return nil
}

// Nodes returns all owned nodes in insertion order.
func (w *Workspace) Nodes() []*Node {
	return w.resolve(w.order)
}

// resolve maps ids to owned nodes, skipping ids not registered here.
func (w *Workspace) resolve(ids []string) []*Node {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := w.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// AddNode registers a node, idempotently. A node owned elsewhere is detached
// from its prior workspace first, and every node reachable from it via child
// edges is pulled in the same way, so an inserted node and its descendants
// never diverge in ownership. Ancestors are deliberately not moved: this
// permits exporting a downstream slice of a pipeline into a fresh workspace,
// leaving a child whose parent lives elsewhere.
func (w *Workspace) AddNode(n *Node) *Node {
	if _, ok := w.nodes[n.id]; ok {
		return n
	}
	w.adopt(n)
	return n
}

func (w *Workspace) adopt(n *Node) {
	if n.ws != nil && n.ws != w {
		n.ws.forget(n.id)
	}
	w.insert(n)
	// Edges carry direct references, so each child is detached from its own
	// current owner, wherever it has moved in the meantime.
	for _, child := range n.children {
		if child.ws == w {
			continue
		}
		w.adopt(child)
	}
}

// insert registers a node directly, without edge or descendant handling.
func (w *Workspace) insert(n *Node) {
	w.nodes[n.id] = n
	w.order = append(w.order, n.id)
	n.ws = w
}

func (w *Workspace) forget(id string) {
	delete(w.nodes, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// RemoveNode removes a node from the registry and severs it from its
// parents' child lists and its children's parent lists, including edges to
// nodes owned by other workspaces. With materializeChildren set, every
// direct child that is lazy is forced eager first so a deferred chain is
// not orphaned; children that fail to materialize are left lazy. Reports
// whether a removal occurred.
func (w *Workspace) RemoveNode(id string, materializeChildren bool) bool {
	n, ok := w.nodes[id]
	if !ok {
		return false
	}
	if materializeChildren {
		for _, child := range n.children {
			if child.IsLazy() {
				// Best effort: a child that fails to materialize stays lazy.
				_, _ = child.Materialize()
			}
		}
	}
	for _, p := range n.parents {
		p.children = removeNode(p.children, n)
	}
	for _, c := range n.children {
		c.parents = removeNode(c.parents, n)
	}
	n.parents = nil
	n.children = nil
	w.forget(id)
	return true
}

func removeNode(nodes []*Node, n *Node) []*Node {
	for i, v := range nodes {
		if v == n {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}

// link wires a parent/child edge in both directions. All edge mutation goes
// through here so the two lists cannot drift apart.
func link(parent, child *Node) {
	if !containsNode(parent.children, child) {
		parent.children = append(parent.children, child)
	}
	if !containsNode(child.parents, parent) {
		child.parents = append(child.parents, parent)
	}
}

func containsNode(nodes []*Node, n *Node) bool {
	for _, v := range nodes {
		if v == n {
			return true
		}
	}
	return false
}

// RootNodes returns all owned nodes with no parents.
func (w *Workspace) RootNodes() []*Node {
	var roots []*Node
	for _, id := range w.order {
		if n := w.nodes[id]; len(n.parents) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// LeafNodes returns all owned nodes with no children.
func (w *Workspace) LeafNodes() []*Node {
	var leaves []*Node
	for _, id := range w.order {
		if n := w.nodes[id]; len(n.children) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// Descendants returns every owned node reachable from id via child edges.
// The visited guard keeps the walk finite even if edges were manipulated
// into a cycle.
func (w *Workspace) Descendants(id string) []*Node {
	return w.reach(id, func(n *Node) []*Node { return n.children })
}

// Ancestors returns every owned node reachable from id via parent edges.
func (w *Workspace) Ancestors(id string) []*Node {
	return w.reach(id, func(n *Node) []*Node { return n.parents })
}

func (w *Workspace) reach(id string, next func(*Node) []*Node) []*Node {
	start, ok := w.nodes[id]
	if !ok {
		return nil
	}
	var out []*Node
	visited := map[string]bool{start.id: true}
	var walk func(*Node)
	walk = func(n *Node) {
		for _, m := range next(n) {
			if m.ws != w || visited[m.id] {
				continue
			}
			visited[m.id] = true
			out = append(out, m)
			walk(m)
		}
	}
	walk(start)
	return out
}

// TopologicalOrder returns root nodes first, then the remaining nodes in
// registry insertion order. This is a simplified roots-first ordering, not a
// full topological sort for deep multi-parent graphs.
func (w *Workspace) TopologicalOrder() []*Node {
	roots := w.RootNodes()
	isRoot := make(map[string]bool, len(roots))
	for _, r := range roots {
		isRoot[r.id] = true
	}
	out := append([]*Node{}, roots...)
	for _, id := range w.order {
		if !isRoot[id] {
			out = append(out, w.nodes[id])
		}
	}
	return out
}
