package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tbmerge/internal/cli/output"
	"github.com/leapstack-labs/tbmerge/internal/engine"
)

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [NEW OLD OUT]",
		Short: "Merge the two burden extracts into one file",
		Long: `Merge the current WHO burden extract (NEW) with the historical one (OLD).

Both files are renamed into the canonical column set and outer joined on
(iso3, year). Where both extracts carry a value, NEW wins. The combined
table is sorted by iso3 then year and written to OUT; missing values are
written as empty fields. On any input error OUT is left untouched.`,
		Example: `  # Use configured or default paths
  tbmerge merge

  # Explicit paths
  tbmerge merge data/TB_Burden_Country.csv data/TB_burden_countries_2025-05-18.csv out.csv

  # Same, with flags
  tbmerge merge --new new.csv --old old.csv --out combined.csv`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("expected no arguments or NEW OLD OUT, got %d arguments", len(args))
			}
			return nil
		},
		RunE: runMerge,
	}
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg := *getConfig(cmd.Context())
	if len(args) == 3 {
		cfg.NewPath, cfg.OldPath, cfg.OutPath = args[0], args[1], args[2]
	}

	cmdCtx, err := newCommandContext(cmd, &cfg)
	if err != nil {
		return err
	}

	result, err := cmdCtx.Engine.Merge(cmd.Context())
	if err != nil {
		return err
	}

	return renderMergeResult(cmdCtx.Renderer, result)
}

func renderMergeResult(r *output.Renderer, result *engine.MergeResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(result)
	}

	r.Header(1, "Merge complete")
	r.KeyValue("new", fmt.Sprintf("%s (%d rows)", result.NewPath, result.NewRows))
	r.KeyValue("old", fmt.Sprintf("%s (%d rows)", result.OldPath, result.OldRows))
	r.KeyValue("rows_written", fmt.Sprintf("%d", result.Stats.Rows))
	r.KeyValue("in_both", fmt.Sprintf("%d", result.Stats.Both))
	r.KeyValue("new_only", fmt.Sprintf("%d", result.Stats.PrimaryOnly))
	r.KeyValue("old_only", fmt.Sprintf("%d", result.Stats.FallbackOnly))
	r.KeyValue("backfilled_fields", fmt.Sprintf("%d", result.Stats.Backfilled))
	r.KeyValue("elapsed", result.Elapsed.Round(time.Millisecond).String())
	r.Println("")

	if result.Stats.Dropped > 0 {
		r.Warning(fmt.Sprintf("%d rows without an iso3 code were skipped", result.Stats.Dropped))
	}
	r.Success(fmt.Sprintf("Combined data saved to %s", result.OutputPath))
	return nil
}
