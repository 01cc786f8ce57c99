package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/tbmerge/internal/engine"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against the combined file",
		Long: `Load the combined output file into an in-memory database as table "tb"
and run SQL against it. The database is DuckDB by default; use --engine sqlite
to query with SQLite instead.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  tbmerge query "SELECT iso3, year, incidence_rate FROM tb WHERE iso3 = 'IND'"

  # Read SQL from a file or stdin
  tbmerge query --input report.sql
  echo "SELECT COUNT(*) FROM tb" | tbmerge query

  # Output as CSV using SQLite
  tbmerge query "SELECT * FROM tb" --format csv --engine sqlite

  # Interactive mode
  tbmerge query`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", FormatTable, "Output format: table, json, csv, md")
	cmd.PersistentFlags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	cmd.AddCommand(newQueryColumnsCommand(opts))

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return runQueryREPL(cmd, cmdCtx.Engine, opts)
	}

	sqlQuery = strings.TrimSuffix(strings.TrimSpace(sqlQuery), ";")
	if sqlQuery == "" {
		return fmt.Errorf("no SQL to run")
	}

	res, err := cmdCtx.Engine.Query(cmd.Context(), sqlQuery)
	if err != nil {
		return err
	}
	return renderResults(cmd.OutOrStdout(), res, opts.Format)
}

// newQueryColumnsCommand creates the columns subcommand.
func newQueryColumnsCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List the columns of table tb",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(opts.Format); err != nil {
				return err
			}
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			sess, err := cmdCtx.Engine.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			return listColumns(cmd.Context(), cmd.OutOrStdout(), sess, opts.Format)
		},
	}
}

func listColumns(ctx context.Context, w io.Writer, sess *engine.Session, format string) error {
	cols, err := sess.Columns(ctx)
	if err != nil {
		return err
	}

	res := &engine.QueryResult{Columns: []string{"column"}}
	for _, c := range cols {
		res.Rows = append(res.Rows, []any{c})
	}
	return renderResults(w, res, format)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
