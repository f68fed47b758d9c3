package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/startupshop/internal/mcp"
)

var mcpCatalogRoot string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve catalog tools over MCP stdio",
	Long: `Expose list_startups, get_startup and get_listing_validation as Model
Context Protocol tools on stdin/stdout. Logs go to stderr.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpCatalogRoot, "catalog", "",
		"Catalog root directory (overrides config)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	root, err := resolveCatalogRoot(mcpCatalogRoot)
	if err != nil {
		return err
	}
	cat := newCatalogOnly(root)

	slog.Info("mcp server starting", "catalog", root)
	return mcp.ServeStdio(cmd.Context(), cat, Version)
}
