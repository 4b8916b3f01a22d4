package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/chazu/spool/pkg/catalog"
)

var (
	okColor    = color.New(color.FgGreen)
	cutColor   = color.New(color.FgYellow)
	failColor  = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
	titleColor = color.New(color.Bold)
)

// writeReport prints a feasibility report: one line per branch, followed by
// its cuts, then every warning and error.
func writeReport(w io.Writer, r EvalResult) {
	for _, e := range r.Errors {
		if e.Line > 0 {
			failColor.Fprintf(w, "✗ line %d: %s\n", e.Line, e.Message)
			continue
		}
		failColor.Fprintf(w, "✗ %s\n", e.Message)
	}

	for _, b := range r.Branches {
		head := fmt.Sprintf("branch %d (%d nodes)", b.Index, len(b.Path))
		switch {
		case b.Shortfall > 0:
			failColor.Fprintf(w, "✗ %s: infeasible, %.3f mm short\n", head, b.Shortfall)
		case b.Failed():
			failColor.Fprintf(w, "✗ %s: %s\n", head, b.Error)
		case len(b.Cuts) > 0:
			cutColor.Fprintf(w, "✓ %s: %s, discrepancy %.3f mm\n", head, b.State, b.Discrepancy)
		default:
			okColor.Fprintf(w, "✓ %s: %s, surplus %.3f mm\n", head, b.State, b.Discrepancy)
		}
		for _, c := range b.Cuts {
			dimColor.Fprintf(w, "    item %d %s: cut %.3f / %.3f mm\n", c.Item, c.Key, c.CutStart, c.CutEnd)
		}
	}

	for _, warn := range r.Warnings {
		where := ""
		switch {
		case warn.Segment != "":
			where = "segment " + warn.Segment + ": "
		case warn.Node != "":
			where = "node " + warn.Node + ": "
		case warn.Branch != nil:
			where = fmt.Sprintf("branch %d: ", *warn.Branch)
		}
		cutColor.Fprintf(w, "! [%s] %s%s\n", warn.Severity, where, warn.Message)
	}

	if r.Feasible {
		okColor.Fprintln(w, "feasible")
	} else {
		failColor.Fprintln(w, "not feasible")
	}
}

// writeCatalog lists every spec and its components.
func writeCatalog(w io.Writer, cat *catalog.Catalog) {
	for _, name := range cat.Names() {
		s, _ := cat.GetSpec(name)
		titleColor.Fprintf(w, "%s", s.Name)
		fmt.Fprintf(w, "  diameter %g, wall %g, bend radius %g, preferred min tangent %g\n",
			s.Diameter, s.Thickness, s.BendRadius, s.DefaultPreferredMinTangent)
		for _, key := range s.Keys() {
			c, _ := s.Component(key)
			fmt.Fprintf(w, "    %-24s ", key)
			dimColor.Fprintln(w, describe(c))
		}
	}
}

func describe(c catalog.Component) string {
	switch c := c.(type) {
	case catalog.Tee:
		return fmt.Sprintf("run %g, branch %g, preferred %g, physical %g",
			c.RunCTE, c.BranchCTE, c.PreferredMin, c.PhysicalMinTangent())
	case catalog.ReducedTee:
		return fmt.Sprintf("branch %g, preferred %g", c.BranchCTE, c.PreferredMin)
	case catalog.Reducer:
		return fmt.Sprintf("%g to %g, length %g", c.LargeDiameter, c.SmallDiameter, c.Length())
	case catalog.Cappable:
		return fmt.Sprintf("take-up %g, preferred %g, physical %g",
			c.Tangent(), c.PreferredMinTangent(), c.PhysicalMinTangent())
	}
	return fmt.Sprintf("%T", c)
}
