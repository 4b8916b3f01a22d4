package catalog

import (
	"math"
	"strconv"
)

// Component keys as they appear in a spec's component table.
const (
	KeyBend90     = "BEND_90"
	KeyBend45     = "BEND_45"
	KeyTee        = "TEE"
	KeyClamp      = "SMS_CLAMP"
	reducedTeePfx = "REDUCED_TEE_"
	reducerPfx    = "REDUCER_"
)

// ReducedTeeKey returns the key of the reduced-tee entry for a branch of the
// given spec.
func ReducedTeeKey(branchSpec string) string {
	return reducedTeePfx + branchSpec
}

// ReducerKey returns the key of the reducer between two pipe diameters.
// The larger diameter always comes first.
func ReducerKey(a, b float64) string {
	if b > a {
		a, b = b, a
	}
	return reducerPfx + formatDim(a) + "_" + formatDim(b)
}

func formatDim(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// Component is the catalog data for one fitting type of a spec.
type Component interface {
	component() // marker method restricting implementations to this package
}

// Cappable is implemented by components whose straight tangent may be cut
// during length reconciliation.
type Cappable interface {
	Component
	Tangent() float64             // nominal take-up
	PreferredMinTangent() float64 // comfort floor
	PhysicalMinTangent() float64  // hard floor
}

// ---------------------------------------------------------------------------
// Bends
// ---------------------------------------------------------------------------

// Bend90 is a right-angle bend. CenterToEnd is measured from the theoretical
// corner to the end of the tangent.
type Bend90 struct {
	Radius       float64 `json:"radius"`
	CenterToEnd  float64 `json:"center_to_end"`
	PreferredMin float64 `json:"preferred_min_tangent"`
}

func (Bend90) component() {}

func (b Bend90) Tangent() float64             { return math.Max(0, b.CenterToEnd-b.Radius) }
func (b Bend90) PreferredMinTangent() float64 { return b.PreferredMin }
func (b Bend90) PhysicalMinTangent() float64  { return 0 }

// Bend45 is a 45° bend dimensioned by its B measure.
type Bend45 struct {
	Radius       float64 `json:"radius"`
	BDimension   float64 `json:"b_dimension"`
	PreferredMin float64 `json:"preferred_min_tangent"`
}

func (Bend45) component() {}

// CenterToEnd returns the true corner-to-end distance, B × √2.
func (b Bend45) CenterToEnd() float64 { return b.BDimension * math.Sqrt2 }

// ArcSetback is the distance from the corner to where the 45° arc starts.
func (b Bend45) ArcSetback() float64 {
	return b.Radius / math.Tan((math.Pi-math.Pi/4)/2)
}

func (b Bend45) Tangent() float64             { return math.Max(0, b.CenterToEnd()-b.ArcSetback()) }
func (b Bend45) PreferredMinTangent() float64 { return b.PreferredMin }
func (b Bend45) PhysicalMinTangent() float64  { return 0 }

// ---------------------------------------------------------------------------
// Tees
// ---------------------------------------------------------------------------

// Tee is an equal tee. Its ports are measured from the tee centre.
type Tee struct {
	RunCTE       float64 `json:"run_cte"`
	BranchCTE    float64 `json:"branch_cte"`
	PipeDiameter float64 `json:"pipe_diameter"`
	PreferredMin float64 `json:"preferred_min_tangent"`
}

func (Tee) component() {}

func (t Tee) Tangent() float64             { return t.RunCTE }
func (t Tee) PreferredMinTangent() float64 { return t.PreferredMin }

// PhysicalMinTangent is half the pipe diameter: a port cannot be shorter
// than the body of the tee it leaves.
func (t Tee) PhysicalMinTangent() float64 { return t.PipeDiameter / 2 }

// ReducedTee overrides the branch port of a tee whose branch is a smaller
// spec. It is stored on the run spec under ReducedTeeKey(branch spec).
type ReducedTee struct {
	BranchCTE    float64 `json:"branch_cte"`
	PreferredMin float64 `json:"preferred_min_tangent"`
}

func (ReducedTee) component() {}

// ---------------------------------------------------------------------------
// End fittings and reducers
// ---------------------------------------------------------------------------

// Clamp is an SMS clamp ferrule welded to a pipe end.
type Clamp struct {
	TangentLength float64 `json:"tangent"`
	PhysicalMin   float64 `json:"min_tangent"`
	PreferredMin  float64 `json:"preferred_min_tangent"`
}

func (Clamp) component() {}

func (c Clamp) Tangent() float64             { return c.TangentLength }
func (c Clamp) PreferredMinTangent() float64 { return c.PreferredMin }
func (c Clamp) PhysicalMinTangent() float64  { return c.PhysicalMin }

// Reducer is a concentric reducer between two diameters. It is never cut.
type Reducer struct {
	LargeDiameter float64 `json:"large_diameter"`
	SmallDiameter float64 `json:"small_diameter"`
}

func (Reducer) component() {}

// Length is the axial length of the reducer, three times the diameter step.
func (r Reducer) Length() float64 {
	return (r.LargeDiameter - r.SmallDiameter) * 3
}

// Compile-time interface checks.
var (
	_ Cappable  = Bend90{}
	_ Cappable  = Bend45{}
	_ Cappable  = Tee{}
	_ Cappable  = Clamp{}
	_ Component = ReducedTee{}
	_ Component = Reducer{}
)
