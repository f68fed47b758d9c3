package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyperengineering/startupshop/internal/catalog"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	catalog Catalog
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandler) handleListStartups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		f   = catalog.Filters{Category: request.GetString("category", "")}
		err error
	)
	if f.Stage, err = catalog.ParseStage(request.GetString("stage", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if f.Bucket, err = catalog.ParseBucket(request.GetString("bucket", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if f.Visibility, err = catalog.ParseVisibility(request.GetString("visibility", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if f.Sort, err = catalog.ParseSort(request.GetString("sort", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	listings, err := h.catalog.Query(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("catalog query failed: %v", err)), nil
	}
	if l := request.GetInt("limit", 0); l > 0 && l < len(listings) {
		listings = listings[:l]
	}
	return jsonResult(listings)
}

func (h *toolHandler) handleGetStartup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("startup_id", "")
	if id == "" {
		return mcp.NewToolResultError("startup_id is required"), nil
	}

	listing, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		return lookupError(id, err), nil
	}
	return jsonResult(listing)
}

func (h *toolHandler) handleGetValidation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("startup_id", "")
	if id == "" {
		return mcp.NewToolResultError("startup_id is required"), nil
	}

	v, err := h.catalog.ValidationByID(ctx, id)
	if err != nil {
		return lookupError(id, err), nil
	}
	return jsonResult(v)
}

func lookupError(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, catalog.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("startup %q not found", id))
	}
	return mcp.NewToolResultError(fmt.Sprintf("catalog lookup failed: %v", err))
}
