// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Cortex tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/cortex/internal/apperr"
	"github.com/starford/cortex/internal/graphservice"
)

// Server wraps the MCP server with Cortex tools.
type Server struct {
	mcp *server.MCPServer
	svc *graphservice.Service
}

// New creates a new MCP server with all Cortex tools registered.
func New(svc *graphservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Cortex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List knowledge entries with optional tag and status filters."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by")),
		mcp.WithString("status", mcp.Description("Optional lifecycle status filter (draft, active, deprecated, archived)")),
		mcp.WithString("limit", mcp.Description("Optional page size, default 50")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Read one knowledge entry with its resolved links. "+
			"Entries follow the canonical format; read it via the get_entry_contract "+
			"tool or the cortex://entry-format resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID (e.g. kno-042)")),
	), s.getEntry)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all entries whose valid links point at the specified entry."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("validate_graph",
		mcp.WithDescription("Rescan the workspace, rebuild the knowledge graph, and return the health report "+
			"with scores, broken links, orphans, and hub rankings."),
	), s.validateGraph)

	s.mcp.AddTool(mcp.NewTool("sync_sources",
		mcp.WithDescription("Refresh every entry that declares external sources, merge remote content "+
			"while preserving golden path blocks, then rebuild the graph."),
	), s.syncSources)

	s.mcp.AddTool(mcp.NewTool("run_probe",
		mcp.WithDescription("Run the canary probe: verifies the pipeline reads real workspace files "+
			"instead of hallucinating content."),
	), s.runProbe)

	s.mcp.AddTool(mcp.NewTool("export_report",
		mcp.WithDescription("Write the current health report to the reports/ directory as Markdown and JSON."),
	), s.exportReport)

	s.mcp.AddTool(mcp.NewTool("get_entry_contract",
		mcp.WithDescription("Returns the canonical Cortex knowledge entry format. "+
			"Call this before authoring entries to ensure correct structure."),
	), s.getEntryContract)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource("cortex://entry-format", "Knowledge Entry Format",
			mcp.WithResourceDescription("Canonical Markdown entry format that all knowledge documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, status := "", ""
	if v, err := req.RequireString("tag"); err == nil {
		tag = v
	}
	if v, err := req.RequireString("status"); err == nil {
		status = v
	}
	limit := 0
	if v, err := req.RequireString("limit"); err == nil {
		limit, _ = strconv.Atoi(v)
	}

	entries, total, err := s.svc.ListEntries(ctx, limit, 0, tag, status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"entries": entries, "total": total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(entry, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var ids []string
	for _, l := range bl {
		ids = append(ids, l.SourceID)
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) validateGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) syncSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outcome, report, err := s.svc.SyncSources(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"outcome": outcome, "report": report}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) runProbe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.svc.Probe(ctx)
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mdPath, jsonPath, err := s.svc.ExportReport(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(map[string]string{"markdown_path": mdPath, "json_path": jsonPath})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getEntryContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormatContract), nil
}

func (s *Server) readEntryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "cortex://entry-format",
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}
