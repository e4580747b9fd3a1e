// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes corkboard tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/models"
)

// Server wraps the MCP server with corkboard tools.
type Server struct {
	mcp            *server.MCPServer
	svc            *boardservice.Service
	attachmentsDir string
}

// New creates a new MCP server with all corkboard tools registered.
func New(svc *boardservice.Service, attachmentsDir string) *Server {
	s := &Server{svc: svc, attachmentsDir: attachmentsDir}

	s.mcp = server.NewMCPServer(
		"Corkboard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_cases",
		mcp.WithDescription("List all investigation cases with card/link/task counts and the active case id."),
	), s.listCases)

	s.mcp.AddTool(mcp.NewTool("get_case",
		mcp.WithDescription("Return the full contents of a case: cards, red-string links, and tasks. "+
			"Omit id to read the active case."),
		mcp.WithString("id", mcp.Description("Case id (e.g. IA-0001); empty for the active case")),
	), s.getCase)

	s.mcp.AddTool(mcp.NewTool("add_card",
		mcp.WithDescription("Pin a new evidence card on the active case board. "+
			"Valid types: person, location, document, item, note, photo."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Card type")),
		mcp.WithNumber("x", mcp.Description("Canvas x position (default 0)")),
		mcp.WithNumber("y", mcp.Description("Canvas y position (default 0)")),
		mcp.WithString("title", mcp.Description("Optional title; each type has a placeholder default")),
		mcp.WithString("description", mcp.Description("Optional description text")),
	), s.addCard)

	s.mcp.AddTool(mcp.NewTool("link_cards",
		mcp.WithDescription("Connect two cards on the active case with red string. "+
			"Links are undirected; self-links and duplicates are rejected."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Id of the first card")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Id of the second card")),
	), s.linkCards)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Append a checklist task to the active case."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Task text")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("export_case",
		mcp.WithDescription("Export the active case as a JSON snapshot. The snapshot follows the "+
			"format described by the corkboard://snapshot-format resource."),
	), s.exportCase)

	s.mcp.AddTool(mcp.NewTool("import_case",
		mcp.WithDescription("Import a case from a JSON snapshot. The snapshot MUST follow the "+
			"canonical format; read it first via the get_snapshot_contract tool or the "+
			"corkboard://snapshot-format resource. The imported case gets a fresh id and becomes active."),
		mcp.WithString("snapshot", mcp.Required(), mcp.Description("Snapshot JSON text")),
	), s.importCase)

	s.mcp.AddTool(mcp.NewTool("get_snapshot_contract",
		mcp.WithDescription("Returns the canonical case snapshot format. "+
			"Call this before building snapshots for import_case."),
	), s.getSnapshotContract)

	s.mcp.AddTool(mcp.NewTool("upload_image",
		mcp.WithDescription("Download an image (http/https URL or base64 data URI) into the attachments "+
			"directory and return the imageUrl to set on an evidence card."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data URI")),
		mcp.WithString("filename", mcp.Description("Optional target filename")),
	), s.uploadImage)

	// Resource: snapshot format contract.
	s.mcp.AddResource(
		mcp.NewResource("corkboard://snapshot-format", "Case Snapshot Format",
			mcp.WithResourceDescription("Canonical JSON snapshot format for case import/export."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSnapshotFormatResource,
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

type caseSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cards       int    `json:"cards"`
	Links       int    `json:"links"`
	Tasks       int    `json:"tasks"`
	Active      bool   `json:"active"`
}

func (s *Server) listCases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cases := s.svc.Cases()
	activeID := s.svc.ActiveCaseID()

	summaries := make([]caseSummary, len(cases))
	for i, c := range cases {
		summaries[i] = caseSummary{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Cards:       len(c.Cards),
			Links:       len(c.Links),
			Tasks:       len(c.Tasks),
			Active:      c.ID == activeID,
		}
	}
	out, _ := json.MarshalIndent(summaries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")

	var target *models.Case
	for _, c := range s.svc.Cases() {
		if (id == "" && c.ID == s.svc.ActiveCaseID()) || c.ID == id {
			cp := c
			target = &cp
			break
		}
	}
	if target == nil {
		return mcp.NewToolResultError(fmt.Sprintf("case not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(target, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos := models.Position{
		X: req.GetFloat("x", 0),
		Y: req.GetFloat("y", 0),
	}

	card, err := s.svc.AddCard(models.EvidenceType(typ), pos)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	patch := boardservice.CardPatch{}
	if title := req.GetString("title", ""); title != "" {
		patch.Title = &title
	}
	if desc := req.GetString("description", ""); desc != "" {
		patch.Description = &desc
	}
	if patch.Title != nil || patch.Description != nil {
		if err := s.svc.UpdateCard(card.ID, patch); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if patch.Title != nil {
			card.Title = *patch.Title
		}
		if patch.Description != nil {
			card.Description = *patch.Description
		}
	}

	out, _ := json.MarshalIndent(card, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) linkCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	link, err := s.svc.AddLink(source, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(link, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, err := s.svc.AddTask(text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(task, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportCase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.svc.ExportCase()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) importCase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snapshot, err := req.RequireString("snapshot")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.ImportCase(snapshot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported: %s", c.ID)), nil
}

func (s *Server) getSnapshotContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SnapshotFormatContract), nil
}

func (s *Server) readSnapshotFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "corkboard://snapshot-format",
			MIMEType: "text/markdown",
			Text:     SnapshotFormatContract,
		},
	}, nil
}
