package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/spool/pkg/adjust"
	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/pipeline"
	"github.com/chazu/spool/pkg/planner"
	"github.com/chazu/spool/pkg/sketch"
	"github.com/chazu/spool/pkg/topology"
	tt "github.com/chazu/spool/pkg/topology/topologytest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPipeline(t *testing.T, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	cat, err := catalog.Load("../../catalogs/sms.hcl")
	require.NoError(t, err)
	opts = append([]pipeline.Option{
		pipeline.WithLogger(zaptest.NewLogger(t)),
		pipeline.WithBuilderOptions(topology.WithIDFunc(tt.SeqIDs())),
	}, opts...)
	return pipeline.New(cat, opts...)
}

// stubbyTee has a run long enough for its fittings and a branch too short
// for the tee's branch port even when cut to its floor.
func stubbyTee(branch float64) *sketch.Sketch {
	p := tt.NewPen("SMS_25").Draw(tt.PlusX, 200)
	mid := p.At()
	p.Draw(tt.PlusX, 200)
	return p.MoveTo(mid).Draw(tt.PlusY, branch).Sketch()
}

func TestRunTee(t *testing.T) {
	res, err := newPipeline(t).Run(context.Background(), tt.Tee("SMS_38", "SMS_25"))
	require.NoError(t, err)
	require.Len(t, res.Branches, 2)
	assert.Equal(t, 4, res.Graph.NodeCount())

	for i, b := range res.Branches {
		assert.Equal(t, i, b.Index)
		require.NoError(t, b.Err)
		assert.NotEmpty(t, b.Primitives)
		assert.Equal(t, adjust.StateSurplus, b.Adjustment.State)
	}
	assert.Len(t, res.Primitives(), 2)
}

func TestRunReportsInfeasibleBranch(t *testing.T) {
	res, err := newPipeline(t).Run(context.Background(), stubbyTee(10))
	require.Error(t, err)

	var ibe *adjust.ImpossibleBuildError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, 1, ibe.Branch)
	assert.InDelta(t, 2.5, ibe.Shortfall, 1e-9)

	require.NotNil(t, res, "other branches are still returned")
	require.Len(t, res.Branches, 2)
	assert.NoError(t, res.Branches[0].Err)
	assert.NotEmpty(t, res.Branches[0].Primitives)
	assert.Empty(t, res.Branches[1].Primitives)
	assert.Equal(t, adjust.StateInfeasible, res.Branches[1].Adjustment.State)
}

func TestRunReturnsLowestInfeasibleBranch(t *testing.T) {
	p := tt.NewPen("SMS_25").Draw(tt.PlusX, 5)
	a := p.At()
	p.Draw(tt.PlusX, 5)
	sk := p.MoveTo(a).Draw(tt.PlusY, 5).Sketch()

	res, err := newPipeline(t, pipeline.WithWorkers(4)).Run(context.Background(), sk)
	var ibe *adjust.ImpossibleBuildError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, 0, ibe.Branch)
	for _, b := range res.Branches {
		assert.Error(t, b.Err)
	}
}

func TestRunKeepsInputDefectsInBranch(t *testing.T) {
	res, err := newPipeline(t).Run(context.Background(), tt.Tee("SMS_25", "SMS_38"))
	require.NoError(t, err, "a missing catalog entry is not an infeasible build")
	require.Len(t, res.Branches, 2)

	assert.NoError(t, res.Branches[0].Err)
	branchErr := res.Branches[1].Err
	require.Error(t, branchErr)
	assert.True(t, errors.Is(branchErr, catalog.ErrComponentNotFound))

	var be *pipeline.BranchError
	require.True(t, errors.As(branchErr, &be))
	assert.Equal(t, 1, be.Branch)
}

func TestRunEndFitting(t *testing.T) {
	p := newPipeline(t, pipeline.WithPlannerOptions(planner.WithEndFitting(catalog.KeyClamp)))
	res, err := p.Run(context.Background(), tt.L("SMS_25", 100, 100))
	require.NoError(t, err)
	plan := res.Branches[0].Plan
	assert.Equal(t, catalog.KeyClamp, plan.Items[0].Key)
	assert.InDelta(t, 142, res.Branches[0].Adjustment.Consumption, 1e-9)
}

func TestRunUnsupportedJunction(t *testing.T) {
	pen := tt.NewPen("SMS_25")
	for _, b := range []float64{tt.PlusX, tt.MinusX, tt.PlusY, tt.MinusY} {
		pen.MoveTo(geom.Point2{}).Draw(b, 100)
	}
	res, err := newPipeline(t).Run(context.Background(), pen.Sketch())
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, topology.ErrUnsupportedJunction))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline(t).Run(ctx, tt.L("SMS_25", 100, 100))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunIsIndependentOfWorkerCount(t *testing.T) {
	sk := stubbyTee(150)
	serial, err := newPipeline(t, pipeline.WithWorkers(1)).Run(context.Background(), sk)
	require.NoError(t, err)
	parallel, err := newPipeline(t, pipeline.WithWorkers(8)).Run(context.Background(), sk)
	require.NoError(t, err)

	if diff := cmp.Diff(serial.Primitives(), parallel.Primitives()); diff != "" {
		t.Errorf("primitives differ (-serial +parallel):\n%s", diff)
	}
}
