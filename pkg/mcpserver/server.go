// Package mcpserver exposes the centerline pipeline as MCP tools over
// stdio, so an assistant can build sketches and browse the catalog.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/chazu/spool/pkg/catalog"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every tool registered.
func New(eval EvalFunc, cat *catalog.Catalog, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := server.NewMCPServer(
		"spool",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	build := NewBuildTool(eval, log)
	s.AddTool(build.Definition(), build.Handle)

	specs := NewSpecsTool(cat)
	s.AddTool(specs.Definition(), specs.Handle)

	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `spool turns isometric pipe sketches into fabrication centerlines.

Use list_specs to see which pipe specs and fittings exist, then
build_centerline with a sketch to get the per-branch lines and arcs, the
tangent cuts and, for impossible branches, the shortfall in mm.`
