// Package mcpserver exposes archive search and discovery as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/discovery"
	"github.com/TobiSchelling/storyatlas/internal/search"
)

// PublicationLister lists the publications in the archive.
type PublicationLister interface {
	Publications(ctx context.Context) ([]string, error)
}

// Deps holds the services the tools call into.
type Deps struct {
	Search       *search.Engine
	Summarizer   *discovery.Summarizer
	Publications PublicationLister
}

// New creates an MCP server with the archive tools registered.
func New(name, version string, deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("Human Story Atlas: search and summarize a historical news archive."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_stories",
			mcp.WithDescription("Search archive stories by text, publication and date range. Returns ranked stories, narrative arcs and suggested follow-up queries."),
			mcp.WithString("query", mcp.Description("Text to match in titles and bodies")),
			mcp.WithString("publication", mcp.Description("Publication name or part of it (case-sensitive)")),
			mcp.WithString("start_date", mcp.Description("Earliest story date, YYYY-MM-DD")),
			mcp.WithString("end_date", mcp.Description("Latest story date, YYYY-MM-DD (inclusive)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of stories (default 10)")),
		),
		searchStories(deps),
	)

	s.AddTool(
		mcp.NewTool("discovery_summary",
			mcp.WithDescription("Summarize one publication over a date range: people, places, organizations, keywords, themes and notable stories."),
			mcp.WithString("source", mcp.Description("Exact publication name"), mcp.Required()),
			mcp.WithString("from", mcp.Description("Start date, YYYY-MM-DD"), mcp.Required()),
			mcp.WithString("to", mcp.Description("End date, YYYY-MM-DD (inclusive)"), mcp.Required()),
		),
		discoverySummary(deps),
	)

	s.AddTool(
		mcp.NewTool("list_publications",
			mcp.WithDescription("List the publications present in the archive."),
		),
		listPublications(deps),
	)

	return s
}

// ServeStdio serves s over stdin/stdout until ctx is cancelled.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	log.Println("MCP server started (stdio transport)")
	err := server.NewStdioServer(s).Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

func searchStories(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start, err := database.ParseOptionalDate(req.GetString("start_date", ""))
		if err != nil {
			return toolError(fmt.Sprintf("start_date: %v", err)), nil
		}
		end, err := database.ParseOptionalDate(req.GetString("end_date", ""))
		if err != nil {
			return toolError(fmt.Sprintf("end_date: %v", err)), nil
		}

		res := deps.Search.Search(ctx, search.Request{
			Query:       req.GetString("query", ""),
			Publication: req.GetString("publication", ""),
			StartDate:   start,
			EndDate:     end,
			Limit:       req.GetInt("limit", 0),
		})
		return toolJSON(res)
	}
}

func discoverySummary(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, err := req.RequireString("source")
		if err != nil {
			return toolError("source is required"), nil
		}
		from, err := req.RequireString("from")
		if err != nil {
			return toolError("from is required"), nil
		}
		to, err := req.RequireString("to")
		if err != nil {
			return toolError("to is required"), nil
		}

		fromDate, err := database.ParseDate(from)
		if err != nil {
			return toolError(fmt.Sprintf("from: %v", err)), nil
		}
		toDate, err := database.ParseDate(to)
		if err != nil {
			return toolError(fmt.Sprintf("to: %v", err)), nil
		}

		summary, err := deps.Summarizer.Summarize(ctx, source, fromDate, toDate)
		if err != nil {
			log.Printf("MCP discovery_summary failed: %v", err)
			return toolError("failed to generate discovery summary"), nil
		}
		return toolJSON(summary)
	}
}

func listPublications(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pubs, err := deps.Publications.Publications(ctx)
		if err != nil {
			log.Printf("MCP list_publications failed: %v", err)
			return toolError("failed to fetch publications"), nil
		}
		return toolJSON(pubs)
	}
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return toolText(string(data)), nil
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
