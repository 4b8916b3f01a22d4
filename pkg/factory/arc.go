package factory

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/spool/pkg/geom"
)

// ErrDegenerateBend is returned for a bend that folds the pipe back on
// itself or does not turn at all.
var ErrDegenerateBend = errors.New("degenerate bend")

// Arc is the centerline geometry of a bend between two straight runs.
type Arc struct {
	Corner geom.Vec // theoretical intersection of the two runs
	Start  geom.Vec // tangent point on the incoming run
	Mid    geom.Vec // midpoint of the minor arc
	End    geom.Vec // tangent point on the outgoing run
	Center geom.Vec

	DirIn  geom.Vec // travel direction into the corner
	DirOut geom.Vec // travel direction out of the corner

	Radius     float64
	Deflection float64 // degrees
	Setback    float64 // corner to either tangent point
}

// BendArc computes the arc of radius r that turns from dirIn onto whichever
// of the two neighbour vectors is not the way back. deflection is the turn
// angle in degrees.
func BendArc(corner, dirIn geom.Vec, vectors [2]geom.Vec, r, deflection float64) (Arc, error) {
	if deflection <= geom.Epsilon || deflection >= 180-geom.Epsilon {
		return Arc{}, fmt.Errorf("deflection %.6g°: %w", deflection, ErrDegenerateBend)
	}
	back := geom.Normalize(dirIn).MulScalar(-1)
	out := vectors[1]
	if vectors[1].Dot(back) > vectors[0].Dot(back) {
		out = vectors[0]
	}
	out = geom.Normalize(out)

	internal := math.Pi - geom.Radians(deflection)
	setback := r / math.Tan(internal/2)
	toCenter := r / math.Sin(internal/2)

	a := Arc{
		Corner:     corner,
		Start:      corner.Add(back.MulScalar(setback)),
		End:        corner.Add(out.MulScalar(setback)),
		Center:     corner.Add(geom.Normalize(back.Add(out)).MulScalar(toCenter)),
		DirIn:      back.MulScalar(-1),
		DirOut:     out,
		Radius:     r,
		Deflection: deflection,
		Setback:    setback,
	}
	a.Mid = a.Center.Add(geom.Normalize(corner.Sub(a.Center)).MulScalar(r))
	return a, nil
}

// onArc projects the midpoint of p and q onto the arc.
func (a Arc) onArc(p, q geom.Vec) geom.Vec {
	return a.Center.Add(geom.Normalize(geom.Midpoint(p, q).Sub(a.Center)).MulScalar(a.Radius))
}

// FirstHalf is the arc from the incoming tangent point to the midpoint.
func (a Arc) FirstHalf() geom.Primitive {
	return geom.Arc(a.Start, a.onArc(a.Start, a.Mid), a.Mid)
}

// SecondHalf is the arc from the midpoint to the outgoing tangent point.
func (a Arc) SecondHalf() geom.Primitive {
	return geom.Arc(a.Mid, a.onArc(a.Mid, a.End), a.End)
}

// Primitive is the whole arc.
func (a Arc) Primitive() geom.Primitive {
	return geom.Arc(a.Start, a.Mid, a.End)
}

// TeeRecipe returns the three port stubs of a tee, each drawn outward from
// the centre: run[0], run[1], then branch. lengths are the port lengths in
// the same order. The pen goes back to the centre afterwards and the
// returned direction is the run direction, for continuity only.
func TeeRecipe(center geom.Vec, run [2]geom.Vec, branch geom.Vec, lengths [3]float64) ([]geom.Primitive, geom.Vec, geom.Vec) {
	dirs := [3]geom.Vec{run[0], run[1], branch}
	prims := make([]geom.Primitive, 0, 3)
	for i, d := range dirs {
		if lengths[i] <= geom.Epsilon {
			continue
		}
		prims = append(prims, geom.Line(center, center.Add(geom.Normalize(d).MulScalar(lengths[i]))))
	}
	return prims, center, geom.Normalize(run[1])
}
