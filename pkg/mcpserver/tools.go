package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/chazu/spool/pkg/catalog"
)

// EvalFunc evaluates sketch source in the given format ("lisp" or "json")
// and returns a JSON-serializable report.
type EvalFunc func(ctx context.Context, source, format string) any

// BuildTool handles the build_centerline MCP tool.
type BuildTool struct {
	eval EvalFunc
	log  *zap.Logger
}

// NewBuildTool creates a BuildTool.
func NewBuildTool(eval EvalFunc, log *zap.Logger) *BuildTool {
	return &BuildTool{eval: eval, log: log}
}

// Definition returns the MCP tool definition for build_centerline.
func (t *BuildTool) Definition() mcp.Tool {
	return mcp.NewTool("build_centerline",
		mcp.WithDescription(
			"Build the fabrication centerline of an isometric pipe sketch. "+
				"Returns every branch with its primitives, tangent cuts and errors as JSON.",
		),
		mcp.WithString("sketch",
			mcp.Required(),
			mcp.Description("Sketch source: a Lisp sketch script or a JSON sketch document"),
		),
		mcp.WithString("format",
			mcp.Description("Source format of the sketch"),
			mcp.DefaultString("lisp"),
			mcp.Enum("lisp", "json"),
		),
	)
}

// Handle processes the build_centerline tool call.
func (t *BuildTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := req.GetString("sketch", "")
	if strings.TrimSpace(source) == "" {
		return mcp.NewToolResultError("'sketch' is required"), nil
	}
	format := req.GetString("format", "lisp")
	if format != "lisp" && format != "json" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (valid: lisp, json)", format)), nil
	}

	report := t.eval(ctx, source, format)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		t.log.Error("encode build report", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// SpecsTool handles the list_specs MCP tool.
type SpecsTool struct {
	cat *catalog.Catalog
}

// NewSpecsTool creates a SpecsTool over cat.
func NewSpecsTool(cat *catalog.Catalog) *SpecsTool {
	return &SpecsTool{cat: cat}
}

// Definition returns the MCP tool definition for list_specs.
func (t *SpecsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_specs",
		mcp.WithDescription("List the pipe specs in the catalog with their dimensions and fittings."),
	)
}

// Handle processes the list_specs tool call.
func (t *SpecsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := t.cat.Names()
	if len(names) == 0 {
		return mcp.NewToolResultText("The catalog is empty."), nil
	}

	var sb strings.Builder
	sb.WriteString("## Pipe Specs\n\n")
	for _, name := range names {
		s, _ := t.cat.GetSpec(name)
		sb.WriteString(fmt.Sprintf("- **%s**: diameter %g, wall %g, bend radius %g, preferred min tangent %g\n",
			s.Name, s.Diameter, s.Thickness, s.BendRadius, s.DefaultPreferredMinTangent))
		sb.WriteString(fmt.Sprintf("  - components: %s\n", strings.Join(s.Keys(), ", ")))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
