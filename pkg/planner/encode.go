package planner

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/topology"
)

// InlineThreshold is the deflection in degrees below which a bend node is
// treated as a straight pass-through.
const InlineThreshold = 0.5

// Encode turns a conceptual plan into a build plan: one component item per
// node, one straight item per edge, and a reducer wherever the pipe spec
// changes along the walk.
func (p *Planner) Encode(g *topology.Graph, cp ConceptualPlan, branch int) (*BuildPlan, error) {
	path := cp.Nodes()
	if len(path) < 2 {
		return nil, fmt.Errorf("planner: branch %d: plan has no edges", branch)
	}

	bp := &BuildPlan{Branch: branch, Path: path}
	for i, id := range path {
		n := g.Node(id)
		if n == nil {
			return nil, fmt.Errorf("planner: branch %d: unknown node %s", branch, id)
		}

		var prev, next topology.NodeID
		var in, out *topology.Edge
		if i > 0 {
			prev = path[i-1]
			in, _ = g.Edge(prev, id)
		}
		if i < len(path)-1 {
			next = path[i+1]
			out, _ = g.Edge(id, next)
		}
		if (i > 0 && in == nil) || (next != topology.ZeroID && out == nil) {
			return nil, fmt.Errorf("planner: branch %d: node %s is not connected along the plan", branch, id)
		}

		key := p.componentKey(n)
		spec := n.Spec
		if n.Kind != topology.NodeTee {
			if in != nil {
				spec = in.Spec
			} else {
				spec = out.Spec
			}
		}
		before, after := reducers(n, in, out, prev, next)

		if before {
			bp.Items = append(bp.Items, BuildItem{
				Kind:     KindComponent,
				Key:      KeyReducer,
				Name:     KeyReducer + "_" + in.Spec + "_" + spec,
				NodeID:   id,
				Prev:     prev,
				Next:     id,
				Spec:     in.Spec,
				ToSpec:   spec,
				Upstream: true,
			})
			p.logReducer(branch, id, in.Spec, spec)
		}

		bp.Items = append(bp.Items, BuildItem{
			Kind:   KindComponent,
			Key:    key,
			Name:   key + "_" + spec,
			NodeID: id,
			Prev:   prev,
			Next:   next,
			Spec:   spec,
		})

		if after {
			bp.Items = append(bp.Items, BuildItem{
				Kind:   KindComponent,
				Key:    KeyReducer,
				Name:   KeyReducer + "_" + spec + "_" + out.Spec,
				NodeID: id,
				Prev:   id,
				Next:   next,
				Spec:   spec,
				ToSpec: out.Spec,
			})
			p.logReducer(branch, id, spec, out.Spec)
		}

		if out != nil {
			bp.Items = append(bp.Items, BuildItem{
				Kind:         KindStraight,
				Spec:         out.Spec,
				Drawn:        out.Length,
				Construction: out.Construction,
				Edge:         out.Key(),
			})
		}
	}
	return bp, nil
}

func (p *Planner) componentKey(n *topology.Node) string {
	switch d := n.Data.(type) {
	case topology.EndpointData:
		if p.endFitting != "" {
			return p.endFitting
		}
		return KeyEndpoint
	case topology.BendData:
		switch {
		case d.Angle < InlineThreshold:
			return KeyInline
		case math.Round(d.Angle) == 90:
			return catalog.KeyBend90
		case math.Round(d.Angle) == 45:
			return catalog.KeyBend45
		default:
			return KeyBendCustom
		}
	case topology.TeeData:
		return catalog.KeyTee
	}
	return KeyEndpoint
}

func (p *Planner) logReducer(branch int, id topology.NodeID, from, to string) {
	p.log.Debug("reducer inserted",
		zap.Int("branch", branch),
		zap.String("node", string(id)),
		zap.String("from", from),
		zap.String("to", to))
}

// reducers reports whether a reducer goes before and after n along the
// walk. A bend or inline node takes its incoming spec, so any change is
// reduced after it. A tee has one spec for the whole fitting: a run port
// of another spec gets a reducer on that side, whichever way the walk
// passes. The branch port changes spec inside the reduced tee itself.
func reducers(n *topology.Node, in, out *topology.Edge, prev, next topology.NodeID) (before, after bool) {
	td, ok := n.Data.(topology.TeeData)
	if !ok {
		return false, in != nil && out != nil && in.Spec != out.Spec
	}
	before = in != nil && td.IsRun(prev) && in.Spec != n.Spec
	after = out != nil && td.IsRun(next) && out.Spec != n.Spec
	return before, after
}
