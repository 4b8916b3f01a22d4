package factory

import (
	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/topology"
)

// Side is the take-up of a fitting on one side of its node. Arc is the part
// inside the fitting body that can never be cut; Tangent is the straight
// stub that may be cut down towards the floors.
type Side struct {
	Present   bool
	Arc       float64
	Tangent   float64
	Preferred float64 // comfort floor for Tangent
	Physical  float64 // hard floor for Tangent
	Cappable  bool
}

// TakeUp is the nominal length of pipe run the side occupies, measured
// from the node.
func (s Side) TakeUp() float64 {
	if !s.Present {
		return 0
	}
	return s.Arc + s.Tangent
}

// Fitting is one resolved component occurrence of a build plan.
type Fitting struct {
	Key       string
	NodeID    topology.NodeID
	Pos       geom.Vec
	Component catalog.Component // nil for open ends and pass-throughs

	In, Out Side
	Fixed   float64 // uncuttable length placed after the node (reducers)

	UIn  geom.Vec // unit vector from the node towards the incoming neighbour
	UOut geom.Vec // unit vector from the node towards the outgoing neighbour

	Arc *Arc // bends only
	tee *teePorts
}

type teePorts struct {
	run     [2]geom.Vec
	branch  geom.Vec
	in, out int // port index of each present side, -1 if absent
}

// Consumption is the total nominal pipe length the fitting takes up along
// the plan.
func (f Fitting) Consumption() float64 {
	return f.In.TakeUp() + f.Out.TakeUp() + f.Fixed
}

// Sides returns pointers to the present cappable sides, incoming first.
func (f *Fitting) Sides() []*Side {
	var out []*Side
	for _, s := range []*Side{&f.In, &f.Out} {
		if s.Present && s.Cappable && s.Tangent > geom.Epsilon {
			out = append(out, s)
		}
	}
	return out
}

// Recipe is the drawable geometry of one fitting occurrence.
type Recipe struct {
	Prims []geom.Primitive
	Entry geom.Vec // where the incoming straight pipe ends
	Exit  geom.Vec // where the outgoing straight pipe starts
}

// Recipe draws the fitting with the given final tangent lengths. pen is the
// current pen position, used by fittings placed along the run rather than
// at their node.
func (f Fitting) Recipe(pen geom.Vec, inTangent, outTangent float64) Recipe {
	switch {
	case f.Arc != nil:
		return f.bendRecipe(inTangent, outTangent)
	case f.tee != nil:
		return f.teeRecipe(inTangent, outTangent)
	case f.Fixed > 0:
		end := pen.Add(f.UOut.MulScalar(f.Fixed))
		return Recipe{Prims: []geom.Primitive{geom.Line(pen, end)}, Entry: pen, Exit: end}
	}

	r := Recipe{Entry: f.Pos, Exit: f.Pos}
	if f.In.Present && inTangent > geom.Epsilon {
		r.Entry = f.Pos.Add(f.UIn.MulScalar(inTangent))
		r.Prims = append(r.Prims, geom.Line(r.Entry, f.Pos))
	}
	if f.Out.Present && outTangent > geom.Epsilon {
		r.Exit = f.Pos.Add(f.UOut.MulScalar(outTangent))
		r.Prims = append(r.Prims, geom.Line(f.Pos, r.Exit))
	}
	return r
}

func (f Fitting) bendRecipe(inTangent, outTangent float64) Recipe {
	a := f.Arc
	r := Recipe{Entry: a.Mid, Exit: a.Mid}

	if f.In.Present {
		r.Entry = a.Start.Add(f.UIn.MulScalar(inTangent))
		if inTangent > geom.Epsilon {
			r.Prims = append(r.Prims, geom.Line(r.Entry, a.Start))
		}
	}
	switch {
	case f.In.Present && f.Out.Present:
		r.Prims = append(r.Prims, a.Primitive())
	case f.In.Present:
		r.Prims = append(r.Prims, a.FirstHalf())
	case f.Out.Present:
		r.Prims = append(r.Prims, a.SecondHalf())
	}
	if f.Out.Present {
		r.Exit = a.End.Add(f.UOut.MulScalar(outTangent))
		if outTangent > geom.Epsilon {
			r.Prims = append(r.Prims, geom.Line(a.End, r.Exit))
		}
	}
	return r
}

// teeRecipe keeps only the ports this occurrence walks through; the third
// belongs to the branch that leaves through it. The incoming port is drawn
// towards the centre so the pen path stays continuous.
func (f Fitting) teeRecipe(inTangent, outTangent float64) Recipe {
	t := f.tee
	var lengths [3]float64
	if t.in >= 0 {
		lengths[t.in] = inTangent
	}
	if t.out >= 0 {
		lengths[t.out] = outTangent
	}
	prims, center, _ := TeeRecipe(f.Pos, t.run, t.branch, lengths)

	r := Recipe{Entry: center, Exit: center}
	var inLine, outLine []geom.Primitive
	k := 0
	for i, l := range lengths {
		if l <= geom.Epsilon {
			continue
		}
		p := prims[k]
		k++
		switch i {
		case t.in:
			r.Entry = p.End
			inLine = []geom.Primitive{geom.Line(p.End, p.Start)}
		case t.out:
			r.Exit = p.End
			outLine = []geom.Primitive{p}
		}
	}
	r.Prims = append(inLine, outLine...)
	return r
}
