package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// painter returns a colorizer for attr that is a no-op unless w is a terminal.
func painter(w io.Writer, attr color.Attribute) func(a ...interface{}) string {
	c := color.New(attr)
	if isTerminal(w) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.SprintFunc()
}

// renderTable writes rows under headers. Columns listed in right are right-aligned.
func renderTable(w io.Writer, headers []string, rows [][]string, right ...int) error {
	table := tablewriter.NewWriter(w)
	defer table.Close()

	table.Header(headers)
	if len(right) > 0 {
		align := make([]tw.Align, len(headers))
		for i := range align {
			align[i] = tw.AlignLeft
		}
		for _, col := range right {
			if col >= 0 && col < len(align) {
				align[col] = tw.AlignRight
			}
		}
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.PerColumn = align
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
