package planner

import (
	"go.uber.org/zap"

	"github.com/chazu/spool/pkg/topology"
)

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for planning diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// WithEndFitting sets the catalog key fitted to open pipe ends, for example
// catalog.KeyClamp. The empty string leaves ends open.
func WithEndFitting(key string) Option {
	return func(p *Planner) { p.endFitting = key }
}

// Planner decomposes graphs into branches.
type Planner struct {
	log        *zap.Logger
	endFitting string
}

// New returns a Planner with the given options applied.
func New(opts ...Option) *Planner {
	p := &Planner{log: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// walker holds the visited-edge set shared by all walks of one Plan call.
type walker struct {
	g       *topology.Graph
	visited map[topology.EdgeKey]bool
}

// Plan returns edge-disjoint walks that together cover every edge of g.
// Walks start at open ends in node order; edges not reachable that way are
// picked up from tees and then from any remaining node.
func (p *Planner) Plan(g *topology.Graph) []ConceptualPlan {
	w := &walker{g: g, visited: make(map[topology.EdgeKey]bool, g.EdgeCount())}
	var plans []ConceptualPlan

	seed := func(n *topology.Node) {
		for w.hasUnvisited(n.ID) {
			cp := w.walk(n.ID)
			if len(cp.Items) < 3 {
				return
			}
			plans = append(plans, cp)
		}
	}

	for _, n := range g.Nodes() {
		if n.Kind == topology.NodeEndpoint {
			seed(n)
		}
	}
	primary := len(plans)
	for _, n := range g.Nodes() {
		if n.Kind == topology.NodeTee {
			seed(n)
		}
	}
	for _, n := range g.Nodes() {
		seed(n)
	}

	p.log.Debug("planned branches",
		zap.Int("from_ends", primary),
		zap.Int("total", len(plans)))
	return plans
}

func (w *walker) hasUnvisited(id topology.NodeID) bool {
	for _, m := range w.g.Neighbors(id) {
		if !w.visited[topology.MakeEdgeKey(id, m)] {
			return true
		}
	}
	return false
}

// walk follows unvisited edges from start until it gets stuck.
func (w *walker) walk(start topology.NodeID) ConceptualPlan {
	cp := ConceptualPlan{Items: []Item{{Kind: ItemNode, Node: start}}}
	prev, cur := topology.ZeroID, start
	for {
		next, ok := w.choose(cur, prev)
		if !ok {
			return cp
		}
		k := topology.MakeEdgeKey(cur, next)
		w.visited[k] = true
		cp.Items = append(cp.Items,
			Item{Kind: ItemEdge, Edge: k},
			Item{Kind: ItemNode, Node: next})
		prev, cur = cur, next
	}
}

// choose picks the next neighbour of cur. At a tee an unvisited run
// neighbour wins; otherwise the first unvisited neighbour other than prev.
func (w *walker) choose(cur, prev topology.NodeID) (topology.NodeID, bool) {
	n := w.g.Node(cur)
	open := func(m topology.NodeID) bool {
		return m != prev && !w.visited[topology.MakeEdgeKey(cur, m)]
	}
	if td, ok := n.Data.(topology.TeeData); ok {
		for _, m := range td.Run {
			if open(m) {
				return m, true
			}
		}
	}
	for _, m := range w.g.Neighbors(cur) {
		if open(m) {
			return m, true
		}
	}
	return topology.ZeroID, false
}
