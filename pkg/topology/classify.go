package topology

import (
	"fmt"

	"github.com/chazu/spool/pkg/geom"
)

// classify assigns kind, spec and kind-specific data to every node. It is
// idempotent: running it twice yields the same classification.
func classify(g *Graph) error {
	for _, n := range g.Nodes() {
		nbrs := g.Neighbors(n.ID)
		specs := make([]string, len(nbrs))
		for i, m := range nbrs {
			e, _ := g.Edge(n.ID, m)
			specs[i] = e.Spec
		}

		n.Spec = specs[0]
		n.RequiresReducer = !allEqual(specs)

		switch len(nbrs) {
		case 1:
			n.Kind = NodeEndpoint
			n.Data = EndpointData{
				Direction: g.direction(n.ID, nbrs[0]),
				Neighbor:  nbrs[0],
			}
		case 2:
			a, b := g.direction(n.ID, nbrs[0]), g.direction(n.ID, nbrs[1])
			n.Kind = NodeBend
			n.Data = BendData{
				Angle:     180 - geom.AngleBetween(a, b),
				Vectors:   [2]geom.Vec{a, b},
				Neighbors: [2]NodeID{nbrs[0], nbrs[1]},
			}
		case 3:
			n.Kind = NodeTee
			td := splitTee(g, n.ID, nbrs)
			r0, _ := g.Edge(n.ID, td.Run[0])
			r1, _ := g.Edge(n.ID, td.Run[1])
			n.Spec = r0.Spec
			td.RunReducer = r0.Spec != r1.Spec
			n.Data = td
		default:
			return fmt.Errorf("node %s at (%g, %g, %g) has %d connections: %w",
				n.ID, n.Pos.X, n.Pos.Y, n.Pos.Z, len(nbrs), ErrUnsupportedJunction)
		}
	}
	return nil
}

// splitTee picks the two most nearly opposite neighbours as the run. On a
// tie the earlier pair wins.
func splitTee(g *Graph, id NodeID, nbrs []NodeID) TeeData {
	vecs := [3]geom.Vec{}
	for i, m := range nbrs {
		vecs[i] = g.direction(id, m)
	}
	pairs := [3][3]int{{0, 1, 2}, {0, 2, 1}, {1, 2, 0}}
	best := pairs[0]
	bestDot := vecs[0].Dot(vecs[1])
	for _, p := range pairs[1:] {
		if d := vecs[p[0]].Dot(vecs[p[1]]); d < bestDot {
			best, bestDot = p, d
		}
	}
	return TeeData{
		Run:    [2]NodeID{nbrs[best[0]], nbrs[best[1]]},
		Branch: nbrs[best[2]],
	}
}

func (g *Graph) direction(from, to NodeID) geom.Vec {
	return geom.Direction(g.nodes[from].Pos, g.nodes[to].Pos)
}

func allEqual(ss []string) bool {
	for _, s := range ss[1:] {
		if s != ss[0] {
			return false
		}
	}
	return true
}
