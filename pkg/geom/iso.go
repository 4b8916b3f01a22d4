package geom

import "math"

// IsoAxis maps a sketch bearing on the isometric grid to a model axis.
type IsoAxis struct {
	Bearing float64 // degrees, counter-clockwise from the sketch +x axis
	Dir     Vec
	Name    string
}

// IsoAxes are the six drawing directions of an isometric sketch, 60° apart.
var IsoAxes = [6]IsoAxis{
	{Bearing: 30, Dir: Vec{X: 1}, Name: "+X"},
	{Bearing: 90, Dir: Vec{Z: -1}, Name: "-Z"},
	{Bearing: 150, Dir: Vec{Y: -1}, Name: "-Y"},
	{Bearing: 210, Dir: Vec{X: -1}, Name: "-X"},
	{Bearing: 270, Dir: Vec{Z: 1}, Name: "+Z"},
	{Bearing: 330, Dir: Vec{Y: 1}, Name: "+Y"},
}

// Bearing returns the direction of the 2D vector from a to b in degrees,
// normalised to [0, 360).
func Bearing(a, b Point2) float64 {
	deg := Degrees(math.Atan2(b.Y-a.Y, b.X-a.X))
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Snap picks the isometric axis closest to bearing and returns it together
// with the absolute angular deviation in degrees. Any bearing snaps; the
// caller decides whether the deviation is worth reporting.
func Snap(bearing float64) (IsoAxis, float64) {
	best := IsoAxes[0]
	bestDev := math.Inf(1)
	for _, ax := range IsoAxes {
		d := math.Abs(math.Mod(bearing-ax.Bearing+540, 360) - 180)
		if d < bestDev {
			best, bestDev = ax, d
		}
	}
	return best, bestDev
}

// IsoStep returns the 2D point reached by moving length along the given
// isometric bearing from p.
func IsoStep(p Point2, bearing, length float64) Point2 {
	r := Radians(bearing)
	return Point2{X: p.X + math.Cos(r)*length, Y: p.Y + math.Sin(r)*length}
}

var (
	isoX = Point2{X: math.Cos(Radians(30)), Y: math.Sin(Radians(30))}
	isoY = Point2{X: math.Cos(Radians(330)), Y: math.Sin(Radians(330))}
)

// Project maps a model-space point back onto the isometric sketch plane.
// It inverts Snap: a unit step along an axis projects to a unit step along
// that axis's bearing.
func Project(v Vec) Point2 {
	return Point2{
		X: v.X*isoX.X + v.Y*isoY.X,
		Y: v.X*isoX.Y + v.Y*isoY.Y - v.Z,
	}
}
