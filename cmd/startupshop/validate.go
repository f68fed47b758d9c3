package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	catalogRootOverride string
	validateJSONOutput  bool
)

// errInvalidListings makes validate exit non-zero after printing its report.
var errInvalidListings = errors.New("catalog has invalid listings")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every listing in the catalog",
	Long: `Load the catalog index and check each listing document against the listing schema.

Exits non-zero when any listing is invalid.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&catalogRootOverride, "catalog", "",
		"Catalog root directory (overrides config)")
	validateCmd.Flags().BoolVar(&validateJSONOutput, "json", false,
		"Output in JSON format")
}

// resolveCatalogRoot returns the override when set, otherwise the configured root.
func resolveCatalogRoot(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Catalog.Root, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	root, err := resolveCatalogRoot(catalogRootOverride)
	if err != nil {
		return err
	}

	result, err := newRegistry(root).Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	invalid := 0
	for _, v := range result.Validations {
		if !v.Valid {
			invalid++
		}
	}

	out := cmd.OutOrStdout()
	if validateJSONOutput {
		if err := printJSON(out, result.Validations); err != nil {
			return err
		}
	} else {
		green := painter(out, color.FgGreen)
		red := painter(out, color.FgRed)

		rows := make([][]string, 0, len(result.Validations))
		for _, v := range result.Validations {
			status := green("valid")
			if !v.Valid {
				status = red("invalid")
			}
			rows = append(rows, []string{v.StartupID, v.Path, status, strings.Join(v.Errors, "; ")})
		}
		if err := renderTable(out, []string{"STARTUP_ID", "PATH", "STATUS", "ERRORS"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d listings, %d valid, %d invalid\n",
			len(result.Validations), len(result.Validations)-invalid, invalid)
	}

	if invalid > 0 {
		return errInvalidListings
	}
	return nil
}
