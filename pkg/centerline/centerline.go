// Package centerline walks an adjusted build plan and produces the pipe
// centerline as lines and arcs. One primitive list is produced per branch.
package centerline

import (
	"fmt"

	"github.com/chazu/spool/pkg/adjust"
	"github.com/chazu/spool/pkg/factory"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/planner"
	"github.com/chazu/spool/pkg/topology"
)

// Warning is a geometric inconsistency found while drawing a branch.
type Warning struct {
	Item    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("item %d: %s", w.Item, w.Message)
}

// pen tracks the drawing position along a branch.
type pen struct {
	at     geom.Vec
	placed bool // false until the first fitting positions the pen
	prims  []geom.Primitive
	warns  []Warning
}

func (p *pen) emit(prims ...geom.Primitive) {
	p.prims = append(p.prims, prims...)
}

// moveTo draws the straight pipe from the pen to target. travel is the
// direction of the run the pipe belongs to; a connector pointing the other
// way means neighbouring fittings overlap.
func (p *pen) moveTo(item int, target, travel geom.Vec) {
	if !p.placed {
		p.at, p.placed = target, true
		return
	}
	d := target.Sub(p.at)
	if l := d.Length(); l > geom.Epsilon {
		if d.Dot(travel) < 0 {
			p.warns = append(p.warns, Warning{
				Item:    item,
				Message: fmt.Sprintf("fittings overlap by %.3f mm", l),
			})
		}
		p.emit(geom.Line(p.at, target))
	}
	p.at = target
}

// Assemble draws bp using the fittings and tangent lengths in adj. The
// plan and the adjustment are read-only.
func Assemble(bp *planner.BuildPlan, adj *adjust.Adjustment) ([]geom.Primitive, []Warning, error) {
	if adj == nil || adj.State == adjust.StateInfeasible {
		return nil, nil, fmt.Errorf("centerline: branch %d has no feasible adjustment", bp.Branch)
	}

	p := &pen{}
	var travel geom.Vec
	feed := -1
	for _, i := range bp.Components() {
		it := bp.Items[i]
		f, ok := adj.Fittings[i]
		if !ok {
			return nil, nil, fmt.Errorf("centerline: branch %d: item %d (%s) was not resolved", bp.Branch, i, it.Name)
		}
		if it.Upstream {
			feed = i
			continue
		}
		var reducer *factory.Fitting
		if feed >= 0 {
			r := adj.Fittings[feed]
			reducer = &r
		}
		handleComponent(p, i, feed, it, f, reducer, adj, &travel)
		feed = -1
	}
	return p.prims, p.warns, nil
}

// handleComponent connects the pen to the fitting, draws it and leaves the
// pen at its exit. A reducer feeding the fitting is drawn flush against its
// entry.
func handleComponent(p *pen, i, feed int, it planner.BuildItem, f factory.Fitting, reducer *factory.Fitting, adj *adjust.Adjustment, travel *geom.Vec) {
	if it.Prev != topology.ZeroID && it.Key != planner.KeyReducer {
		*travel = f.UIn.MulScalar(-1)
	}
	start, end := adj.Tangent(i)
	r := f.Recipe(p.at, start, end)
	if reducer != nil {
		from := r.Entry.Sub(reducer.UOut.MulScalar(reducer.Fixed))
		p.moveTo(feed, from, *travel)
		p.emit(geom.Line(from, r.Entry))
		p.at = r.Entry
	}
	p.moveTo(i, r.Entry, *travel)
	p.emit(r.Prims...)
	p.at = r.Exit
	if it.Next != topology.ZeroID {
		*travel = f.UOut
	}
}
