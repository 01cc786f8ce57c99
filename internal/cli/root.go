// Package cli provides the command-line interface for tbmerge.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tbmerge/internal/adapter"
	"github.com/leapstack-labs/tbmerge/internal/cli/commands"
	"github.com/leapstack-labs/tbmerge/internal/cli/config"
	"github.com/leapstack-labs/tbmerge/internal/cli/output"
	"github.com/leapstack-labs/tbmerge/internal/engine"
	"github.com/leapstack-labs/tbmerge/internal/reconcile"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInput    = 2
	ExitMismatch = 3
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tbmerge",
		Short: "tbmerge - WHO tuberculosis burden reconciler",
		Long: `tbmerge reconciles two WHO tuberculosis burden extracts into one
country-year table.

The current extract wins wherever it has a value; the historical extract
fills the gaps and contributes the years the current one lacks. The combined
file can then be cross-checked with SQL, queried, and summarised.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			ctx = config.WithConfig(ctx, cfg)
			ctx = output.WithRenderer(ctx, output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)))
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go and DuckDB
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./tbmerge.yaml)")
	pf.String("new", "", "Path to the current burden extract (default: "+config.DefaultNewPath+")")
	pf.String("old", "", "Path to the historical burden extract (default: "+config.DefaultOldPath+")")
	pf.String("out", "", "Path of the combined file (default: "+config.DefaultOutPath+")")
	pf.String("mapping", "", "YAML file overriding the column mappings")
	pf.String("delimiter", "", "Field delimiter (default: from file extension, tab for .tsv)")
	pf.StringSlice("na", nil, "Tokens read as missing values (default: empty, NA, N/A, NaN, null)")
	pf.String("engine", "", "SQL engine for query and summary (duckdb|sqlite)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.Engines(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("mapping", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewMergeCommand())
	rootCmd.AddCommand(commands.NewVerifyCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewSummaryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case reconcile.IsInputError(err):
		return ExitInput
	case errors.Is(err, engine.ErrVerifyMismatch):
		return ExitMismatch
	default:
		return ExitFailure
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tbmerge.

To load completions:

Bash:
  $ source <(tbmerge completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ tbmerge completion bash > /etc/bash_completion.d/tbmerge
  # macOS:
  $ tbmerge completion bash > $(brew --prefix)/etc/bash_completion.d/tbmerge

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ tbmerge completion zsh > "${fpath[1]}/_tbmerge"

Fish:
  $ tbmerge completion fish | source

  # To load completions for each session, execute once:
  $ tbmerge completion fish > ~/.config/fish/completions/tbmerge.fish

PowerShell:
  PS> tbmerge completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
