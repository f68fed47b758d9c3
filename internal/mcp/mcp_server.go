// Package mcp exposes catalog queries as Model Context Protocol tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hyperengineering/startupshop/internal/catalog"
	"github.com/hyperengineering/startupshop/internal/types"
)

// Catalog is the read side the tools query.
type Catalog interface {
	Query(ctx context.Context, f catalog.Filters) ([]catalog.ListingWithScore, error)
	GetByID(ctx context.Context, id string) (*catalog.ListingWithScore, error)
	ValidationByID(ctx context.Context, id string) (*types.ListingValidation, error)
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// NewMCPServer configures the catalog MCP server without starting it.
func NewMCPServer(cat Catalog, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Startupshop Catalog Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{catalog: cat}

	s.AddTool(mcp.NewTool("list_startups",
		mcp.WithDescription("List valid startup listings ranked by score or MRR, with optional filters."),
		mcp.WithString("category", mcp.Description("Case-insensitive category filter.")),
		mcp.WithString("stage", mcp.Description("Lifecycle stage filter."), mcp.Enum(enumValues(types.Stages)...)),
		mcp.WithString("bucket", mcp.Description("Portfolio bucket filter."), mcp.Enum(enumValues(types.Buckets)...)),
		mcp.WithString("visibility", mcp.Description("Audience filter."), mcp.Enum(enumValues(types.Visibilities)...)),
		mcp.WithString("sort", mcp.Description("Ranking key. Defaults to 'score'."), mcp.Enum("score", "mrr")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleListStartups)

	s.AddTool(mcp.NewTool("get_startup",
		mcp.WithDescription("Get one startup listing with its score breakdown."),
		mcp.WithString("startup_id", mcp.Description("The startup identifier."), mcp.Required()),
	), h.handleGetStartup)

	s.AddTool(mcp.NewTool("get_listing_validation",
		mcp.WithDescription("Get the catalog validation result for a startup, including invalid listings."),
		mcp.WithString("startup_id", mcp.Description("The startup identifier."), mcp.Required()),
	), h.handleGetValidation)

	return s
}

// ServeStdio serves the catalog tools over stdin/stdout until the input closes.
func ServeStdio(_ context.Context, cat Catalog, version string) error {
	return server.ServeStdio(NewMCPServer(cat, version))
}
