// Package sdfx renders centerlines as solid tubes using the
// github.com/deadsy/sdfx SDF-based CAD library and writes the resulting
// triangle meshes as JSON.
package sdfx

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/sink"
)

var _ sink.Sink = (*TubeSink)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// chordFactor scales the tube radius into the arc flattening chord.
const chordFactor = 0.5

// TubeSink sweeps a sphere of the given radius along every branch.
type TubeSink struct {
	w      io.Writer
	radius float64
	cells  int
	meshes []sink.Mesh
}

// Option configures a TubeSink.
type Option func(*TubeSink)

// WithCells sets the marching cubes resolution along the longest axis.
func WithCells(n int) Option {
	return func(t *TubeSink) {
		if n > 0 {
			t.cells = n
		}
	}
}

// New returns a tube sink writing meshes to w on Close.
func New(w io.Writer, radius float64, opts ...Option) *TubeSink {
	t := &TubeSink{w: w, radius: radius, cells: defaultMeshCells}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *TubeSink) Branch(index int, prims []geom.Primitive) error {
	solid, err := Tube(prims, t.radius)
	if err != nil {
		return fmt.Errorf("sink: tube branch %d: %w", index, err)
	}
	if solid == nil {
		return nil
	}
	m := ToMesh(solid, t.cells)
	m.Branch = index
	t.meshes = append(t.meshes, *m)
	return nil
}

// Meshes returns the meshes built so far.
func (t *TubeSink) Meshes() []sink.Mesh { return t.meshes }

func (t *TubeSink) Close() error {
	meshes := t.meshes
	if meshes == nil {
		meshes = []sink.Mesh{}
	}
	if err := json.NewEncoder(t.w).Encode(meshes); err != nil {
		return fmt.Errorf("sink: tube: %w", err)
	}
	return nil
}

// Tube builds the solid swept by a sphere of radius r along prims. Arcs
// are flattened into chords first. It returns nil for an empty path.
func Tube(prims []geom.Primitive, r float64) (sdf.SDF3, error) {
	if r <= 0 {
		return nil, fmt.Errorf("radius %g must be positive", r)
	}
	var parts []sdf.SDF3
	for _, poly := range sink.Flatten(prims, r*chordFactor) {
		for i := 1; i < len(poly); i++ {
			seg, err := segment(poly[i-1], poly[i], r)
			if err != nil {
				return nil, err
			}
			if seg != nil {
				parts = append(parts, seg)
			}
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return sdf.Union3D(parts...), nil
}

// segment returns a round-capped cylinder from a to b. Zero-length
// segments produce nil.
func segment(a, b v3.Vec, r float64) (sdf.SDF3, error) {
	d := b.Sub(a)
	length := d.Length()
	if length < geom.Epsilon {
		return nil, nil
	}
	s, err := sdf.Capsule3D(length+2*r, r)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Capsule3D: %w", err)
	}
	// Cylinder3D and Capsule3D are centred on the origin along Z.
	u := d.DivScalar(length)
	polar := math.Acos(geom.Clamp(u.Z, -1, 1))
	azimuth := math.Atan2(u.Y, u.X)
	m := sdf.Translate3d(geom.Midpoint(a, b)).
		Mul(sdf.RotateZ(azimuth)).
		Mul(sdf.RotateY(polar))
	return sdf.Transform3D(s, m), nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func ToMesh(s sdf.SDF3, cells int) *sink.Mesh {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}
	return &sink.Mesh{Vertices: vertices, Normals: normals, Indices: indices}
}
