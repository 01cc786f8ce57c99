package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tbmerge/internal/cli/config"
	"github.com/leapstack-labs/tbmerge/internal/cli/output"
	"github.com/leapstack-labs/tbmerge/internal/cli/testutil"
	"github.com/leapstack-labs/tbmerge/internal/engine"
	"github.com/leapstack-labs/tbmerge/internal/reconcile"
)

// loadProject writes the fixture extracts and loads a configuration
// pointing at them, with markdown output.
func loadProject(t *testing.T) *testutil.TestProject {
	t.Helper()

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	p := testutil.SetupTestProject(t)
	t.Chdir(p.Dir)
	t.Setenv("TBMERGE_NEW_PATH", p.NewPath)
	t.Setenv("TBMERGE_OLD_PATH", p.OldPath)
	t.Setenv("TBMERGE_OUT_PATH", p.OutPath)
	t.Setenv("TBMERGE_OUTPUT", "markdown")

	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	return p
}

// execute runs cmd below a bare root command, the way the CLI mounts it.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := &cobra.Command{Use: "tbmerge", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(cmd)

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{cmd.Name()}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewMergeCommand(), "merge [NEW OLD OUT]", nil},
		{NewVerifyCommand(), "verify", nil},
		{NewQueryCommand(), "query [SQL]", nil},
		{NewSummaryCommand(), "summary", []string{"region", "iso3", "from", "to", "format"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
			if tt.cmd.Name() == "query" {
				for _, flag := range []string{"format", "input"} {
					assert.NotNil(t, tt.cmd.PersistentFlags().Lookup(flag), "query flag %q should reach subcommands", flag)
				}
			}
		})
	}
}

func TestMergeCommand(t *testing.T) {
	p := loadProject(t)

	out, _, err := execute(t, NewMergeCommand(), "")
	require.NoError(t, err)

	assert.Contains(t, out, "# Merge complete")
	assert.Contains(t, out, "- **Rows Written:** 5")
	assert.Contains(t, out, "- **Backfilled Fields:** 1")
	assert.Contains(t, out, "Combined data saved to "+p.OutPath)
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)

	_, err = os.Stat(p.OutPath)
	require.NoError(t, err)
}

func TestMergeCommand_PositionalArgs(t *testing.T) {
	p := loadProject(t)
	alt := filepath.Join(p.Dir, "alt.csv")

	_, _, err := execute(t, NewMergeCommand(), "", p.NewPath, p.OldPath, alt)
	require.NoError(t, err)

	_, err = os.Stat(alt)
	require.NoError(t, err)
	_, err = os.Stat(p.OutPath)
	assert.True(t, os.IsNotExist(err), "configured output must not be written")
}

func TestMergeCommand_ArgCount(t *testing.T) {
	loadProject(t)

	_, _, err := execute(t, NewMergeCommand(), "", "a.csv", "b.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected no arguments or NEW OLD OUT")
}

func TestMergeCommand_InputError(t *testing.T) {
	p := loadProject(t)
	require.NoError(t, os.WriteFile(p.NewPath, []byte("country,iso3\nIndia,IND\n"), 0o600))

	_, _, err := execute(t, NewMergeCommand(), "")
	require.Error(t, err)
	assert.True(t, reconcile.IsInputError(err), "got %v", err)
}

func TestVerifyCommand(t *testing.T) {
	loadProject(t)

	out, _, err := execute(t, NewVerifyCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "# Verification")
	assert.Contains(t, out, "- **Mismatched Cells:** 0")
	assert.Contains(t, out, "Merge and SQL agree")
}

func TestRenderVerifyResult_Mismatches(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText, false)
	result := &engine.VerifyResult{
		Rows:          5,
		SQLRows:       5,
		MismatchCount: 3,
		Mismatches: []engine.Mismatch{
			{Row: 2, ISO3: "IND", Year: 2006, Column: "incidence_num", Merged: "1818", SQL: ""},
		},
	}

	require.NoError(t, renderVerifyResult(tr.Renderer, result))
	out := tr.Output()
	assert.Contains(t, out, "IND")
	assert.Contains(t, out, "incidence_num")
	assert.Contains(t, out, "1818")
	assert.Contains(t, out, "... and 2 more")
	testutil.AssertNoANSI(t, out)
}

func TestRenderMergeResult_JSON(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeJSON, false)
	result := &engine.MergeResult{
		RunID:      "run-1",
		OutputPath: "out.csv",
		Stats:      reconcile.Stats{Rows: 5, Both: 2, PrimaryOnly: 1, FallbackOnly: 2, Backfilled: 1},
	}

	require.NoError(t, renderMergeResult(tr.Renderer, result))
	assert.Contains(t, tr.Output(), `"run_id": "run-1"`)
	assert.NotContains(t, tr.Output(), "Combined data saved")
}

func TestRenderMergeResult_Dropped(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText, false)
	result := &engine.MergeResult{OutputPath: "out.csv", Stats: reconcile.Stats{Rows: 1, Dropped: 2}}

	require.NoError(t, renderMergeResult(tr.Renderer, result))
	assert.Contains(t, tr.ErrorOutput(), "2 rows without an iso3 code were skipped")
	assert.Contains(t, tr.Output(), "Combined data saved to out.csv")
}

func TestGetConfig_Defaults(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg := getConfig(context.Background())
	assert.Equal(t, config.DefaultNewPath, cfg.NewPath)
	assert.Equal(t, config.DefaultOutPath, cfg.OutPath)
	assert.Equal(t, config.DefaultEngine, cfg.Engine)
	assert.NotEmpty(t, cfg.NAValues)
}

func TestCreateEngine_BadDelimiter(t *testing.T) {
	cfg := getConfig(context.Background())
	bad := *cfg
	bad.Delimiter = "::"

	_, err := createEngine(&bad, nil)
	require.Error(t, err)
}

func TestNewCommandContext_PrefersContext(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg := defaultConfig()
	cfg.OutPath = "from-context.csv"
	r := output.NewRendererWithTTY(new(bytes.Buffer), new(bytes.Buffer), false, output.ModeJSON)

	cmd := &cobra.Command{}
	cmd.SetContext(output.WithRenderer(config.WithConfig(context.Background(), cfg), r))

	cmdCtx, err := NewCommandContext(cmd)
	require.NoError(t, err)
	assert.Same(t, cfg, cmdCtx.Cfg)
	assert.Same(t, r, cmdCtx.Renderer)
}

func TestNewCommandContext_Fallbacks(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(new(bytes.Buffer))

	cmdCtx, err := NewCommandContext(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultOutPath, cmdCtx.Cfg.OutPath)
	assert.NotNil(t, cmdCtx.Renderer)
	assert.NotNil(t, cmdCtx.Logger)
}
