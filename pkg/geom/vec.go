package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec is a point or direction in 3D model space (mm).
type Vec = v3.Vec

// Point2 is a point on the 2D sketch plane.
type Point2 = v2.Vec

// Epsilon is the length below which tangents are omitted and vectors are
// treated as zero.
const Epsilon = 1e-6

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged instead of dividing by zero.
func Normalize(v Vec) Vec {
	l := v.Length()
	if l < Epsilon {
		return Vec{}
	}
	return v.DivScalar(l)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return b.Sub(a).Length()
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Vec) Vec {
	return a.Add(b).MulScalar(0.5)
}

// Direction returns the unit vector pointing from a to b.
func Direction(a, b Vec) Vec {
	return Normalize(b.Sub(a))
}

// AngleBetween returns the angle between two vectors in degrees, in [0, 180].
func AngleBetween(a, b Vec) float64 {
	return Degrees(math.Acos(Clamp(Normalize(a).Dot(Normalize(b)), -1, 1)))
}

// Clamp limits x to [lo, hi]. Dot products of unit vectors drift slightly
// outside [-1, 1] and would make math.Acos return NaN.
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// RoundTo rounds x to the given number of decimal places.
func RoundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(x*p) / p
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// Round rounds every component of v to the given number of decimal places.
func Round(v Vec, places int) Vec {
	return Vec{X: RoundTo(v.X, places), Y: RoundTo(v.Y, places), Z: RoundTo(v.Z, places)}
}

// Near reports whether a and b are within tol of each other on every axis.
func Near(a, b Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
