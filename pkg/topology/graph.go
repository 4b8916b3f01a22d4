package topology

import (
	"github.com/chazu/spool/pkg/geom"
)

// EdgeKey identifies an undirected edge. U is always the smaller ID.
type EdgeKey struct {
	U, V NodeID
}

// MakeEdgeKey returns the canonical key for the edge between a and b.
func MakeEdgeKey(a, b NodeID) EdgeKey {
	if b < a {
		a, b = b, a
	}
	return EdgeKey{U: a, V: b}
}

// Edge is one pipe run between two nodes.
type Edge struct {
	U            NodeID   `json:"u"`
	V            NodeID   `json:"v"`
	SegmentID    string   `json:"segment_id"`
	Spec         string   `json:"spec"`
	Construction bool     `json:"construction,omitempty"`
	Length       *float64 `json:"length,omitempty"` // sketch dimension, nil for shortcuts
}

// Key returns the edge's canonical key.
func (e *Edge) Key() EdgeKey { return MakeEdgeKey(e.U, e.V) }

// Other returns the end of the edge that is not id.
func (e *Edge) Other(id NodeID) NodeID {
	if e.U == id {
		return e.V
	}
	return e.U
}

// Graph is the classified 3D pipe graph. Nodes, edges and neighbour lists
// keep insertion order so that planning is deterministic.
type Graph struct {
	nodes     map[NodeID]*Node
	order     []NodeID
	byPos     map[geom.Vec]NodeID
	edges     map[EdgeKey]*Edge
	edgeOrder []EdgeKey
	adj       map[NodeID][]NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		byPos: make(map[geom.Vec]NodeID),
		edges: make(map[EdgeKey]*Edge),
		adj:   make(map[NodeID][]NodeID),
	}
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// NodeAt returns the node placed at pos, compared after rounding to the
// builder's precision.
func (g *Graph) NodeAt(pos geom.Vec) (*Node, bool) {
	id, ok := g.byPos[geom.Round(pos, coordPlaces)]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		out = append(out, g.edges[k])
	}
	return out
}

// Edge returns the edge between a and b in either direction.
func (g *Graph) Edge(a, b NodeID) (*Edge, bool) {
	e, ok := g.edges[MakeEdgeKey(a, b)]
	return e, ok
}

// Neighbors returns the neighbours of id in edge insertion order.
func (g *Graph) Neighbors(id NodeID) []NodeID { return g.adj[id] }

// Degree returns the number of edges incident to id.
func (g *Graph) Degree(id NodeID) int { return len(g.adj[id]) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edgeOrder) }

// Distance returns the straight-line distance between two nodes.
func (g *Graph) Distance(a, b NodeID) float64 {
	return geom.Distance(g.nodes[a].Pos, g.nodes[b].Pos)
}

// ---------------------------------------------------------------------------
// Construction (builder only)
// ---------------------------------------------------------------------------

func (g *Graph) nodeAt(pos geom.Vec, newID func() NodeID) *Node {
	if id, ok := g.byPos[pos]; ok {
		return g.nodes[id]
	}
	n := &Node{ID: newID(), Pos: pos}
	for g.nodes[n.ID] != nil {
		n.ID = newID()
	}
	g.nodes[n.ID] = n
	g.byPos[pos] = n.ID
	g.order = append(g.order, n.ID)
	return n
}

func (g *Graph) addEdge(e *Edge) bool {
	k := e.Key()
	if _, dup := g.edges[k]; dup {
		return false
	}
	g.edges[k] = e
	g.edgeOrder = append(g.edgeOrder, k)
	g.adj[e.U] = append(g.adj[e.U], e.V)
	g.adj[e.V] = append(g.adj[e.V], e.U)
	return true
}

func (g *Graph) removeEdgesWhere(drop func(*Edge) bool) int {
	kept := g.edgeOrder[:0]
	removed := 0
	for _, k := range g.edgeOrder {
		if drop(g.edges[k]) {
			delete(g.edges, k)
			g.adj[k.U] = without(g.adj[k.U], k.V)
			g.adj[k.V] = without(g.adj[k.V], k.U)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	g.edgeOrder = kept
	return removed
}

func (g *Graph) pruneIsolated() int {
	kept := g.order[:0]
	removed := 0
	for _, id := range g.order {
		if len(g.adj[id]) == 0 {
			delete(g.byPos, g.nodes[id].Pos)
			delete(g.nodes, id)
			delete(g.adj, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	g.order = kept
	return removed
}

func without(ids []NodeID, drop NodeID) []NodeID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
