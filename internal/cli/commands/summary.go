package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tbmerge/internal/engine"
)

// SummaryOptions holds options for the summary command.
type SummaryOptions struct {
	Region string
	ISO3   string
	From   int
	To     int
	Format string
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand() *cobra.Command {
	opts := &SummaryOptions{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show yearly burden totals from the combined file",
		Long: `Aggregate the combined file per year: number of countries, total
population, estimated incident cases, mean incidence rate per 100k, and
estimated deaths among HIV-negative people.`,
		Example: `  tbmerge summary
  tbmerge summary --region AFR --from 2010
  tbmerge summary --iso3 ind --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Region, "region", "", "Only include this WHO region (e.g. AFR)")
	cmd.Flags().StringVar(&opts.ISO3, "iso3", "", "Only include this country")
	cmd.Flags().IntVar(&opts.From, "from", 0, "First year to include")
	cmd.Flags().IntVar(&opts.To, "to", 0, "Last year to include")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", FormatTable, "Output format: table, json, csv, md")

	return cmd
}

func runSummary(cmd *cobra.Command, opts *SummaryOptions) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	filter := engine.Filter{
		Region:   strings.ToUpper(strings.TrimSpace(opts.Region)),
		ISO3:     strings.ToUpper(strings.TrimSpace(opts.ISO3)),
		FromYear: opts.From,
		ToYear:   opts.To,
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	res, err := cmdCtx.Engine.Summary(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return renderResults(cmd.OutOrStdout(), res, opts.Format)
}
