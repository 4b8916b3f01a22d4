package centerline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/spool/pkg/adjust"
	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/centerline"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/planner"
	"github.com/chazu/spool/pkg/sketch"
	tt "github.com/chazu/spool/pkg/topology/topologytest"
)

func draw(t *testing.T, sk *sketch.Sketch, opts ...planner.Option) [][]geom.Primitive {
	t.Helper()
	cat, err := catalog.Load("../../catalogs/sms.hcl")
	require.NoError(t, err)

	g := tt.Build(t, sk)
	p := planner.New(opts...)
	var out [][]geom.Primitive
	for i, cp := range p.Plan(g) {
		bp, err := p.Encode(g, cp, i)
		require.NoError(t, err)
		adj, err := adjust.New(cat).Adjust(g, bp)
		require.NoError(t, err)
		prims, warns, err := centerline.Assemble(bp, adj)
		require.NoError(t, err)
		assert.Empty(t, warns)
		out = append(out, prims)
	}
	return out
}

func kinds(prims []geom.Primitive) []string {
	out := make([]string, len(prims))
	for i, p := range prims {
		out[i] = p.Kind.String()
	}
	return out
}

// assertContinuous checks that every primitive starts where the previous
// one ended.
func assertContinuous(t *testing.T, prims []geom.Primitive) {
	t.Helper()
	for i := 1; i < len(prims); i++ {
		assert.True(t, geom.Near(prims[i-1].End, prims[i].Start, 1e-9),
			"gap between %d and %d: %v -> %v", i-1, i, prims[i-1].End, prims[i].Start)
	}
}

func TestAssembleBend(t *testing.T) {
	branches := draw(t, tt.L("SMS_25", 100, 100))
	require.Len(t, branches, 1)
	prims := branches[0]

	assert.Equal(t, []string{"LINE", "LINE", "ARC", "LINE", "LINE"}, kinds(prims))
	assertContinuous(t, prims)
	assert.True(t, geom.Near(geom.Vec{}, prims[0].Start, 1e-9))
	assert.True(t, geom.Near(geom.Vec{X: 49}, prims[0].End, 1e-9))
	assert.True(t, geom.Near(geom.Vec{X: 100, Y: 100}, prims[4].End, 1e-9))
}

func TestAssemblePathLengthMatchesPlan(t *testing.T) {
	prims := draw(t, tt.L("SMS_25", 100, 100))[0]
	// Two 49 mm straights, two 13 mm tangents and a quarter circle of r 38.
	want := 2*49 + 2*13 + 3.141592653589793/2*38
	assert.InDelta(t, want, geom.PathLength(prims), 1e-6)
}

func TestAssembleClampedShortfall(t *testing.T) {
	// Each leg is 3 mm short; the cuts close both legs exactly.
	prims := draw(t, tt.L("SMS_25", 68, 68), planner.WithEndFitting(catalog.KeyClamp))[0]
	assertContinuous(t, prims)
	assert.Equal(t, []string{"LINE", "LINE", "ARC", "LINE", "LINE"}, kinds(prims))
	assert.True(t, geom.Near(geom.Vec{}, prims[0].Start, 1e-9))
	assert.True(t, geom.Near(geom.Vec{X: 68, Y: 68}, prims[4].End, 1e-9))
}

func TestAssembleReportsOverlap(t *testing.T) {
	cat, err := catalog.Load("../../catalogs/sms.hcl")
	require.NoError(t, err)

	// The cuts are spread over the whole branch, but the second leg is
	// shorter than the first, so its fittings run into each other.
	g := tt.Build(t, tt.L("SMS_25", 70, 65))
	p := planner.New(planner.WithEndFitting(catalog.KeyClamp))
	bp, err := p.Encode(g, p.Plan(g)[0], 0)
	require.NoError(t, err)
	adj, err := adjust.New(cat).Adjust(g, bp)
	require.NoError(t, err)

	_, warns, err := centerline.Assemble(bp, adj)
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, 4, warns[0].Item)
	assert.Contains(t, warns[0].Message, "overlap")
}

func TestAssembleTee(t *testing.T) {
	branches := draw(t, tt.Tee("SMS_38", "SMS_25"))
	require.Len(t, branches, 2)

	run := branches[0]
	assertContinuous(t, run)
	assert.True(t, geom.Near(geom.Vec{}, run[0].Start, 1e-9))
	assert.True(t, geom.Near(geom.Vec{X: 200}, run[len(run)-1].End, 1e-9))

	branch := branches[1]
	assertContinuous(t, branch)
	assert.True(t, geom.Near(geom.Vec{X: 100, Y: 100}, branch[0].Start, 1e-9))
	assert.True(t, geom.Near(geom.Vec{X: 100}, branch[len(branch)-1].End, 1e-9), "branch stub ends at the tee centre")
}

func TestAssembleReducer(t *testing.T) {
	sk := tt.NewPen("SMS_38").Draw(tt.PlusX, 200).Spec("SMS_25").Draw(tt.PlusY, 200).Sketch()
	prims := draw(t, sk)[0]
	assertContinuous(t, prims)
	// straight, tangent, arc, tangent, reducer, straight
	require.Len(t, prims, 6)
	assert.InDelta(t, 39, prims[4].Length(), 1e-9)
	assert.True(t, geom.Near(geom.Vec{X: 200, Y: 200}, prims[5].End, 1e-9))
}

func TestAssembleReducerFeedsTee(t *testing.T) {
	branches := draw(t, tt.FedTee("SMS_25", "SMS_38"))
	require.Len(t, branches, 2)
	run := branches[0]
	assertContinuous(t, run)
	assert.True(t, geom.Near(geom.Vec{}, run[0].Start, 1e-9))
	assert.True(t, geom.Near(geom.Vec{X: 300}, run[len(run)-1].End, 1e-9))

	// The 39 mm reducer ends where the tee's 60 mm run tangent begins.
	entry := geom.Vec{X: 200 - 60}
	var reducer *geom.Primitive
	for i := range run {
		if geom.Near(run[i].End, entry, 1e-9) {
			reducer = &run[i]
		}
	}
	require.NotNil(t, reducer, "no primitive ends at the tee entry")
	assert.InDelta(t, 39, reducer.Length(), 1e-9)
	assert.True(t, geom.Near(geom.Vec{X: 200 - 60 - 39}, reducer.Start, 1e-9))
}

func TestAssembleRejectsInfeasible(t *testing.T) {
	_, _, err := centerline.Assemble(&planner.BuildPlan{}, &adjust.Adjustment{State: adjust.StateInfeasible})
	assert.Error(t, err)
}
