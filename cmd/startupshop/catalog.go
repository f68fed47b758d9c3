package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/startupshop/internal/catalog"
)

var (
	catalogRootFlag   string
	catalogCategory   string
	catalogStage      string
	catalogBucket     string
	catalogVisibility string
	catalogSort       string
	catalogLimit      int
	catalogJSONOutput bool
)

var catalogCmd = &cobra.Command{
	Use:          "catalog",
	Short:        "List ranked startups from the catalog",
	Long:         "Query the catalog the same way GET /api/startups does, without running the server.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogRootFlag, "catalog", "",
		"Catalog root directory (overrides config)")
	catalogCmd.Flags().StringVar(&catalogCategory, "category", "", "Filter by category (case-insensitive)")
	catalogCmd.Flags().StringVar(&catalogStage, "stage", "", "Filter by stage")
	catalogCmd.Flags().StringVar(&catalogBucket, "bucket", "", "Filter by bucket")
	catalogCmd.Flags().StringVar(&catalogVisibility, "visibility", "", "Filter by visibility")
	catalogCmd.Flags().StringVar(&catalogSort, "sort", "score", "Sort key: score or mrr")
	catalogCmd.Flags().IntVar(&catalogLimit, "limit", 0, "Maximum rows to print (0 for all)")
	catalogCmd.Flags().BoolVar(&catalogJSONOutput, "json", false, "Output in JSON format")
}

func parseCatalogFilters() (catalog.Filters, error) {
	var (
		f   = catalog.Filters{Category: catalogCategory}
		err error
	)
	if f.Stage, err = catalog.ParseStage(catalogStage); err != nil {
		return f, err
	}
	if f.Bucket, err = catalog.ParseBucket(catalogBucket); err != nil {
		return f, err
	}
	if f.Visibility, err = catalog.ParseVisibility(catalogVisibility); err != nil {
		return f, err
	}
	if f.Sort, err = catalog.ParseSort(catalogSort); err != nil {
		return f, err
	}
	return f, nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	filters, err := parseCatalogFilters()
	if err != nil {
		return err
	}

	root, err := resolveCatalogRoot(catalogRootFlag)
	if err != nil {
		return err
	}

	listings, err := newCatalogOnly(root).Query(cmd.Context(), filters)
	if err != nil {
		return fmt.Errorf("query catalog: %w", err)
	}
	if catalogLimit > 0 && catalogLimit < len(listings) {
		listings = listings[:catalogLimit]
	}

	out := cmd.OutOrStdout()
	if catalogJSONOutput {
		return printJSON(out, listings)
	}

	if len(listings) == 0 {
		fmt.Fprintln(out, "No listings match.")
		return nil
	}

	rows := make([][]string, 0, len(listings))
	for i, l := range listings {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			l.StartupID,
			l.Identity.Name,
			string(l.Status.Stage),
			string(l.Bucket),
			strconv.FormatFloat(l.Traction.MRRUSD, 'f', -1, 64),
			strconv.FormatFloat(l.Score.TotalScore, 'f', 2, 64),
		})
	}
	return renderTable(out, []string{"RANK", "ID", "NAME", "STAGE", "BUCKET", "MRR", "SCORE"}, rows, 0, 5, 6)
}
