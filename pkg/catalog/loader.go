package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// fileSchema is the top level of a catalog file:
//
//	spec "SMS_25" {
//	  diameter    = 25
//	  thickness   = 1.2
//	  bend_radius = 38
//	  default_preferred_min_tangent = 12.5
//
//	  component "BEND_90" {
//	    center_to_end = 51
//	  }
//	}
type fileSchema struct {
	Specs []*specBlock `hcl:"spec,block"`
}

type specBlock struct {
	Name                       string            `hcl:"name,label"`
	Diameter                   float64           `hcl:"diameter"`
	Thickness                  float64           `hcl:"thickness,optional"`
	BendRadius                 float64           `hcl:"bend_radius"`
	DefaultPreferredMinTangent *float64          `hcl:"default_preferred_min_tangent,optional"`
	Components                 []*componentBlock `hcl:"component,block"`
}

type componentBlock struct {
	Key  string   `hcl:"key,label"`
	Body hcl.Body `hcl:",remain"`
}

// Component bodies. build_operation is accepted for compatibility with
// catalogs exported for CAD back ends; the pipeline does not use it.

type bend90Body struct {
	CenterToEnd    float64  `hcl:"center_to_end"`
	Radius         *float64 `hcl:"radius,optional"`
	PreferredMin   *float64 `hcl:"preferred_min_tangent,optional"`
	BuildOperation string   `hcl:"build_operation,optional"`
}

type bend45Body struct {
	BDimension     float64  `hcl:"b_dimension"`
	Radius         *float64 `hcl:"radius,optional"`
	PreferredMin   *float64 `hcl:"preferred_min_tangent,optional"`
	BuildOperation string   `hcl:"build_operation,optional"`
}

type teeBody struct {
	RunCTE         float64  `hcl:"equal_cte_run"`
	BranchCTE      float64  `hcl:"equal_cte_branch"`
	PipeDiameter   *float64 `hcl:"pipe_diameter,optional"`
	PreferredMin   *float64 `hcl:"preferred_min_tangent,optional"`
	BuildOperation string   `hcl:"build_operation,optional"`
}

type reducedTeeBody struct {
	BranchCTE      float64  `hcl:"branch_cte"`
	PreferredMin   *float64 `hcl:"preferred_min_tangent,optional"`
	BuildOperation string   `hcl:"build_operation,optional"`
}

type clampBody struct {
	Tangent        float64  `hcl:"tangent"`
	MinTangent     float64  `hcl:"min_tangent"`
	PreferredMin   *float64 `hcl:"preferred_min_tangent,optional"`
	SketchFile     string   `hcl:"sketch_file,optional"`
	BuildOperation string   `hcl:"build_operation,optional"`
}

type reducerBody struct {
	LargeDiameter  float64 `hcl:"large_diameter"`
	SmallDiameter  float64 `hcl:"small_diameter"`
	BuildOperation string  `hcl:"build_operation,optional"`
}

// Load reads every given catalog file into one Catalog and then generates
// the reducer combinations. Files ending in .json are read as HCL-JSON;
// everything else as native HCL.
func Load(paths ...string) (*Catalog, error) {
	c := New()
	parser := hclparse.NewParser()
	for _, path := range paths {
		var (
			file  *hcl.File
			diags hcl.Diagnostics
		)
		if strings.EqualFold(filepath.Ext(path), ".json") {
			file, diags = parser.ParseJSONFile(path)
		} else {
			file, diags = parser.ParseHCLFile(path)
		}
		if diags.HasErrors() {
			return nil, fmt.Errorf("catalog: failed to parse %s: %w", path, diags)
		}
		if err := c.decode(file); err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", path, err)
		}
	}
	c.GenerateReducers()
	return c, nil
}

// Parse decodes a single catalog from memory. The filename is used for
// diagnostics and to pick the syntax, as in Load.
func Parse(src []byte, filename string) (*Catalog, error) {
	parser := hclparse.NewParser()
	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		file, diags = parser.ParseJSON(src, filename)
	} else {
		file, diags = parser.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("catalog: failed to parse %s: %w", filename, diags)
	}
	c := New()
	if err := c.decode(file); err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", filename, err)
	}
	c.GenerateReducers()
	return c, nil
}

func (c *Catalog) decode(file *hcl.File) error {
	var schema fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return diags
	}
	for _, sb := range schema.Specs {
		spec, err := decodeSpec(sb)
		if err != nil {
			return err
		}
		if err := c.Add(spec); err != nil {
			return err
		}
	}
	return nil
}

// specContext exposes the enclosing spec's dimensions to component
// expressions, so a catalog can write e.g. `min_tangent = spec.diameter / 3`.
func specContext(sb *specBlock) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"spec": cty.ObjectVal(map[string]cty.Value{
				"diameter":    cty.NumberFloatVal(sb.Diameter),
				"thickness":   cty.NumberFloatVal(sb.Thickness),
				"bend_radius": cty.NumberFloatVal(sb.BendRadius),
			}),
		},
		Functions: map[string]function.Function{
			"min": stdlib.MinFunc,
			"max": stdlib.MaxFunc,
		},
	}
}

func decodeSpec(sb *specBlock) (*Spec, error) {
	spec := &Spec{
		Name:       sb.Name,
		Diameter:   sb.Diameter,
		Thickness:  sb.Thickness,
		BendRadius: sb.BendRadius,
		Components: make(map[string]Component, len(sb.Components)),
	}
	if sb.DefaultPreferredMinTangent != nil {
		spec.DefaultPreferredMinTangent = *sb.DefaultPreferredMinTangent
	}
	if spec.Diameter <= 0 || spec.BendRadius <= 0 {
		return nil, fmt.Errorf("spec %q: diameter and bend_radius must be positive", sb.Name)
	}

	ctx := specContext(sb)
	preferred := func(p *float64) float64 {
		if p != nil {
			return *p
		}
		return spec.DefaultPreferredMinTangent
	}
	orDefault := func(p *float64, d float64) float64 {
		if p != nil {
			return *p
		}
		return d
	}

	for _, cb := range sb.Components {
		key := cb.Key
		var (
			comp  Component
			diags hcl.Diagnostics
		)
		switch {
		case key == KeyBend90:
			var b bend90Body
			diags = gohcl.DecodeBody(cb.Body, ctx, &b)
			comp = Bend90{
				Radius:       orDefault(b.Radius, spec.BendRadius),
				CenterToEnd:  b.CenterToEnd,
				PreferredMin: preferred(b.PreferredMin),
			}
		case key == KeyBend45:
			var b bend45Body
			diags = gohcl.DecodeBody(cb.Body, ctx, &b)
			comp = Bend45{
				Radius:       orDefault(b.Radius, spec.BendRadius),
				BDimension:   b.BDimension,
				PreferredMin: preferred(b.PreferredMin),
			}
		case key == KeyTee:
			var b teeBody
			diags = gohcl.DecodeBody(cb.Body, ctx, &b)
			comp = Tee{
				RunCTE:       b.RunCTE,
				BranchCTE:    b.BranchCTE,
				PipeDiameter: orDefault(b.PipeDiameter, spec.Diameter),
				PreferredMin: preferred(b.PreferredMin),
			}
		case strings.HasPrefix(key, reducedTeePfx):
			var b reducedTeeBody
			diags = gohcl.DecodeBody(cb.Body, ctx, &b)
			key = ReducedTeeKey(CleanName(strings.TrimPrefix(key, reducedTeePfx)))
			comp = ReducedTee{BranchCTE: b.BranchCTE, PreferredMin: preferred(b.PreferredMin)}
		case key == KeyClamp:
			var b clampBody
			diags = gohcl.DecodeBody(cb.Body, ctx, &b)
			comp = Clamp{
				TangentLength: b.Tangent,
				PhysicalMin:   b.MinTangent,
				PreferredMin:  preferred(b.PreferredMin),
			}
		case strings.HasPrefix(key, reducerPfx):
			var b reducerBody
			diags = gohcl.DecodeBody(cb.Body, ctx, &b)
			key = ReducerKey(b.LargeDiameter, b.SmallDiameter)
			comp = Reducer{
				LargeDiameter: max(b.LargeDiameter, b.SmallDiameter),
				SmallDiameter: min(b.LargeDiameter, b.SmallDiameter),
			}
		default:
			return nil, fmt.Errorf("spec %q: unknown component %q", sb.Name, key)
		}
		if diags.HasErrors() {
			return nil, fmt.Errorf("spec %q: component %s: %w", sb.Name, cb.Key, diags)
		}
		if _, dup := spec.Components[key]; dup {
			return nil, fmt.Errorf("spec %q: duplicate component %s", sb.Name, key)
		}
		spec.Components[key] = comp
	}
	return spec, nil
}
