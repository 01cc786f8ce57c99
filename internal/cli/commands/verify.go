package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tbmerge/internal/cli/output"
	"github.com/leapstack-labs/tbmerge/internal/engine"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Cross-check the merge against an SQL rendition",
		Long: `Recompute the merge as a DuckDB full outer join over both raw extracts
and compare it cell by cell with the built-in reconciler. Nothing is written.

Exits with status 3 when the two disagree.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			result, verr := cmdCtx.Engine.Verify(cmd.Context())
			if result == nil {
				return verr
			}
			if err := renderVerifyResult(cmdCtx.Renderer, result); err != nil {
				return err
			}
			return verr
		},
	}
}

func renderVerifyResult(r *output.Renderer, result *engine.VerifyResult) error {
	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(result)
	}

	r.Header(1, "Verification")
	r.KeyValue("merged_rows", fmt.Sprintf("%d", result.Rows))
	r.KeyValue("sql_rows", fmt.Sprintf("%d", result.SQLRows))
	r.KeyValue("mismatched_cells", fmt.Sprintf("%d", result.MismatchCount))
	r.Println("")

	if result.OK() {
		r.Success("Merge and SQL agree")
		return nil
	}

	if len(result.Mismatches) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Row", "iso3", "Year", "Column", "Merged", "SQL"})
		for _, m := range result.Mismatches {
			t.AppendRow(table.Row{m.Row, m.ISO3, m.Year, m.Column, m.Merged, m.SQL})
		}
		if mode == output.ModeMarkdown {
			t.RenderMarkdown()
		} else {
			t.Render()
		}
		if hidden := result.MismatchCount - len(result.Mismatches); hidden > 0 {
			r.Muted(fmt.Sprintf("... and %d more", hidden))
		}
	}
	return nil
}
