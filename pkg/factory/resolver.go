package factory

import (
	"fmt"

	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/planner"
	"github.com/chazu/spool/pkg/topology"
)

// Resolver resolves build plan components of one graph against a catalog.
// It is safe for concurrent use.
type Resolver struct {
	cat catalog.SpecCatalog
	g   *topology.Graph
}

// NewResolver returns a Resolver for plans of g.
func NewResolver(cat catalog.SpecCatalog, g *topology.Graph) *Resolver {
	return &Resolver{cat: cat, g: g}
}

// Resolve computes the fitting of a component item.
func (r *Resolver) Resolve(it planner.BuildItem) (Fitting, error) {
	if !it.IsComponent() {
		return Fitting{}, fmt.Errorf("factory: item is %s, not a component", it.Kind)
	}
	n := r.g.Node(it.NodeID)
	if n == nil {
		return Fitting{}, fmt.Errorf("factory: %s: unknown node %s", it.Name, it.NodeID)
	}

	f := Fitting{Key: it.Key, NodeID: n.ID, Pos: n.Pos}
	if it.Prev != topology.ZeroID && it.Key != planner.KeyReducer {
		f.In.Present = true
		f.UIn = r.dir(n.ID, it.Prev)
	}
	if it.Next != topology.ZeroID {
		f.Out.Present = true
		f.UOut = r.dir(n.ID, it.Next)
	}

	var err error
	switch it.Key {
	case planner.KeyEndpoint, planner.KeyInline:
		f.In.Present, f.Out.Present = false, false
	case catalog.KeyBend90, catalog.KeyBend45, planner.KeyBendCustom:
		err = r.bend(&f, n, it)
	case catalog.KeyTee:
		err = r.tee(&f, n, it)
	case planner.KeyReducer:
		err = r.reducer(&f, it)
	default:
		err = r.endFitting(&f, it)
	}
	if err != nil {
		return Fitting{}, fmt.Errorf("factory: %s at %s: %w", it.Name, n.ID, err)
	}
	return f, nil
}

func (r *Resolver) dir(from, to topology.NodeID) geom.Vec {
	return geom.Direction(r.g.Node(from).Pos, r.g.Node(to).Pos)
}

func (r *Resolver) bend(f *Fitting, n *topology.Node, it planner.BuildItem) error {
	bd, ok := n.Data.(topology.BendData)
	if !ok {
		return fmt.Errorf("node is a %s, not a bend", n.Kind)
	}

	// A bend at either end of a closed loop walk only has one side in the
	// plan; the other neighbour is the one the walk is not on.
	inNb, outNb := it.Prev, it.Next
	if inNb == topology.ZeroID {
		inNb = other(bd.Neighbors, outNb)
	}
	if outNb == topology.ZeroID {
		outNb = other(bd.Neighbors, inNb)
	}
	f.UIn = r.dir(n.ID, inNb)
	f.UOut = r.dir(n.ID, outNb)

	key := it.Key
	if key == planner.KeyBendCustom {
		key = catalog.KeyBend90
	}
	_, comp, err := catalog.Lookup(r.cat, it.Spec, key)
	if err != nil {
		return err
	}
	c, ok := comp.(catalog.Cappable)
	if !ok {
		return fmt.Errorf("%s is not a bend", key)
	}

	var radius float64
	switch b := comp.(type) {
	case catalog.Bend90:
		radius = b.Radius
	case catalog.Bend45:
		radius = b.Radius
	default:
		return fmt.Errorf("%s is not a bend", key)
	}

	arc, err := BendArc(n.Pos, f.UIn.MulScalar(-1), bd.Vectors, radius, bd.Angle)
	if err != nil {
		return err
	}
	f.Arc = &arc
	f.Component = comp

	inTan, outTan := c.Tangent(), c.Tangent()
	if it.Key == planner.KeyBendCustom {
		// Only one tangent: on the side with the shorter drawn straight,
		// outgoing when that cannot be decided.
		inEdge, _ := r.g.Edge(n.ID, inNb)
		outEdge, _ := r.g.Edge(n.ID, outNb)
		if inEdge.Length != nil && outEdge.Length != nil && *inEdge.Length < *outEdge.Length {
			outTan = 0
		} else {
			inTan = 0
		}
	}
	f.In = bendSide(f.In.Present, arc.Setback, inTan, c)
	f.Out = bendSide(f.Out.Present, arc.Setback, outTan, c)
	return nil
}

func bendSide(present bool, setback, tangent float64, c catalog.Cappable) Side {
	return Side{
		Present:   present,
		Arc:       setback,
		Tangent:   tangent,
		Preferred: c.PreferredMinTangent(),
		Physical:  c.PhysicalMinTangent(),
		Cappable:  tangent > geom.Epsilon,
	}
}

func other(pair [2]topology.NodeID, id topology.NodeID) topology.NodeID {
	if pair[0] == id {
		return pair[1]
	}
	return pair[0]
}

func (r *Resolver) tee(f *Fitting, n *topology.Node, it planner.BuildItem) error {
	td, ok := n.Data.(topology.TeeData)
	if !ok {
		return fmt.Errorf("node is a %s, not a tee", n.Kind)
	}
	_, comp, err := catalog.Lookup(r.cat, it.Spec, catalog.KeyTee)
	if err != nil {
		return err
	}
	tee, ok := comp.(catalog.Tee)
	if !ok {
		return fmt.Errorf("%s is not a tee", catalog.KeyTee)
	}
	f.Component = tee

	ports := [3]topology.NodeID{td.Run[0], td.Run[1], td.Branch}
	f.tee = &teePorts{
		run:    [2]geom.Vec{r.dir(n.ID, td.Run[0]), r.dir(n.ID, td.Run[1])},
		branch: r.dir(n.ID, td.Branch),
		in:     -1,
		out:    -1,
	}
	for i, nb := range ports {
		switch {
		case f.In.Present && nb == it.Prev:
			f.tee.in = i
		case f.Out.Present && nb == it.Next:
			f.tee.out = i
		}
	}

	port := func(nb topology.NodeID) (Side, error) {
		s := Side{
			Present:   true,
			Tangent:   tee.RunCTE,
			Preferred: tee.PreferredMinTangent(),
			Physical:  tee.PhysicalMinTangent(),
			Cappable:  true,
		}
		if td.IsRun(nb) {
			return s, nil
		}
		s.Tangent = tee.BranchCTE
		e, _ := r.g.Edge(n.ID, nb)
		if e.Spec == it.Spec {
			return s, nil
		}
		_, rc, err := catalog.Lookup(r.cat, it.Spec, catalog.ReducedTeeKey(e.Spec))
		if err != nil {
			return Side{}, err
		}
		rt, ok := rc.(catalog.ReducedTee)
		if !ok {
			return Side{}, fmt.Errorf("%s is not a reduced tee", catalog.ReducedTeeKey(e.Spec))
		}
		s.Tangent = rt.BranchCTE
		s.Preferred = rt.PreferredMin
		if bs, ok := r.cat.GetSpec(e.Spec); ok {
			s.Physical = bs.Diameter / 2
		}
		return s, nil
	}

	if f.In.Present {
		if f.In, err = port(it.Prev); err != nil {
			return err
		}
	}
	if f.Out.Present {
		if f.Out, err = port(it.Next); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) reducer(f *Fitting, it planner.BuildItem) error {
	from, ok := r.cat.GetSpec(it.Spec)
	if !ok {
		return fmt.Errorf("spec %q: %w", it.Spec, catalog.ErrSpecNotFound)
	}
	to, ok := r.cat.GetSpec(it.ToSpec)
	if !ok {
		return fmt.Errorf("spec %q: %w", it.ToSpec, catalog.ErrSpecNotFound)
	}
	comp, err := from.Component(catalog.ReducerKey(from.Diameter, to.Diameter))
	if err != nil {
		return err
	}
	red, ok := comp.(catalog.Reducer)
	if !ok {
		return fmt.Errorf("%s is not a reducer", catalog.ReducerKey(from.Diameter, to.Diameter))
	}
	f.Component = red
	f.Fixed = red.Length()
	f.Out.Present = false
	if it.Upstream {
		f.UOut = r.dir(it.Prev, f.NodeID)
	}
	return nil
}

// endFitting resolves a fitting welded to an open end, such as a clamp.
func (r *Resolver) endFitting(f *Fitting, it planner.BuildItem) error {
	_, comp, err := catalog.Lookup(r.cat, it.Spec, it.Key)
	if err != nil {
		return err
	}
	c, ok := comp.(catalog.Cappable)
	if !ok {
		return fmt.Errorf("%s cannot be fitted to a pipe end", it.Key)
	}
	f.Component = comp
	side := Side{
		Present:   true,
		Tangent:   c.Tangent(),
		Preferred: c.PreferredMinTangent(),
		Physical:  c.PhysicalMinTangent(),
		Cappable:  true,
	}
	if f.In.Present {
		f.In = side
	} else {
		f.Out = side
	}
	return nil
}
