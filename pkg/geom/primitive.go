package geom

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// PrimitiveKind distinguishes straight and curved centerline pieces.
type PrimitiveKind int

const (
	KindLine PrimitiveKind = iota
	KindArc
)

func (k PrimitiveKind) String() string {
	switch k {
	case KindLine:
		return "LINE"
	case KindArc:
		return "ARC"
	default:
		return fmt.Sprintf("PrimitiveKind(%d)", int(k))
	}
}

// Primitive is one piece of an explicit centerline. Arcs are defined by
// three points; Mid is unused for lines.
type Primitive struct {
	Kind  PrimitiveKind
	Start Vec
	Mid   Vec
	End   Vec
}

// Line returns a LINE primitive from a to b.
func Line(a, b Vec) Primitive {
	return Primitive{Kind: KindLine, Start: a, End: b}
}

// Arc returns a three-point ARC primitive.
func Arc(start, mid, end Vec) Primitive {
	return Primitive{Kind: KindArc, Start: start, Mid: mid, End: end}
}

// Length returns the length of the primitive along the centerline.
// Arcs are measured on the circle through their three points.
func (p Primitive) Length() float64 {
	if p.Kind == KindLine {
		return Distance(p.Start, p.End)
	}
	a := Distance(p.Start, p.Mid)
	b := Distance(p.Mid, p.End)
	c := Distance(p.Start, p.End)
	area2 := p.Mid.Sub(p.Start).Cross(p.End.Sub(p.Start)).Length()
	if area2 < Epsilon {
		return a + b // collinear: degenerate arc
	}
	radius := a * b * c / (2 * area2)
	half := Clamp(c/(2*radius), -1, 1)
	return 2 * math.Asin(half) * radius
}

type primitiveJSON struct {
	Kind  string      `json:"kind"`
	Start [3]float64  `json:"start"`
	Mid   *[3]float64 `json:"mid,omitempty"`
	End   [3]float64  `json:"end"`
}

func triple(v Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// MarshalJSON encodes the primitive as {kind, start, mid?, end}.
func (p Primitive) MarshalJSON() ([]byte, error) {
	out := primitiveJSON{Kind: p.Kind.String(), Start: triple(p.Start), End: triple(p.End)}
	if p.Kind == KindArc {
		m := triple(p.Mid)
		out.Mid = &m
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the {kind, start, mid?, end} form.
func (p *Primitive) UnmarshalJSON(data []byte) error {
	var in primitiveJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "LINE":
		p.Kind = KindLine
	case "ARC":
		p.Kind = KindArc
	default:
		return fmt.Errorf("geom: unknown primitive kind %q", in.Kind)
	}
	p.Start = Vec{X: in.Start[0], Y: in.Start[1], Z: in.Start[2]}
	p.End = Vec{X: in.End[0], Y: in.End[1], Z: in.End[2]}
	if in.Mid != nil {
		p.Mid = Vec{X: in.Mid[0], Y: in.Mid[1], Z: in.Mid[2]}
	}
	return nil
}

// Extent returns the axis-aligned bounding box of a primitive sequence.
// An empty sequence yields the zero box.
func Extent(prims []Primitive) sdf.Box3 {
	if len(prims) == 0 {
		return sdf.Box3{}
	}
	box := sdf.Box3{Min: prims[0].Start, Max: prims[0].Start}
	for _, p := range prims {
		pts := []Vec{p.Start, p.End}
		if p.Kind == KindArc {
			pts = append(pts, p.Mid)
		}
		for _, v := range pts {
			box.Min = box.Min.Min(v)
			box.Max = box.Max.Max(v)
		}
	}
	return box
}

// PathLength sums the lengths of a primitive sequence.
func PathLength(prims []Primitive) float64 {
	var total float64
	for _, p := range prims {
		total += p.Length()
	}
	return total
}
