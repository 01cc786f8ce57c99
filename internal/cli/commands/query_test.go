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
	"github.com/leapstack-labs/tbmerge/internal/engine"
)

// mergedProject loads the fixture project and runs merge so the combined
// file exists.
func mergedProject(t *testing.T) {
	t.Helper()
	loadProject(t)
	_, _, err := execute(t, NewMergeCommand(), "")
	require.NoError(t, err)
}

func TestQueryCommand_Formats(t *testing.T) {
	mergedProject(t)
	const q = "SELECT iso3, year FROM tb ORDER BY iso3, year"

	tests := []struct {
		format string
		want   []string
	}{
		{FormatTable, []string{"AFG", "2000", "PAK", "(5 rows)"}},
		{FormatCSV, []string{"iso3,year", "AFG,2000", "IND,1995", "PAK,2005"}},
		{FormatMarkdown, []string{"| AFG", "| PAK", "| --- |"}},
		{FormatJSON, []string{`"iso3": "AFG"`, `"year": 2000`}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, _, err := execute(t, NewQueryCommand(), "", q, "--format", tt.format)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, strings.ToLower(out), strings.ToLower(want))
			}
		})
	}
}

func TestQueryCommand_Stdin(t *testing.T) {
	mergedProject(t)

	out, _, err := execute(t, NewQueryCommand(), "SELECT COUNT(*) AS n FROM tb;\n", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"n": 5`)
}

func TestQueryCommand_InputFile(t *testing.T) {
	mergedProject(t)
	path := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT iso3 FROM tb WHERE year = 1995;"), 0o600))

	out, _, err := execute(t, NewQueryCommand(), "", "--input", path, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "IND")
	assert.NotContains(t, out, "PAK")
}

func TestQueryCommand_SQLite(t *testing.T) {
	mergedProject(t)
	t.Setenv("TBMERGE_ENGINE", "sqlite")
	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	out, _, err := execute(t, NewQueryCommand(), "", "SELECT COUNT(*) AS n FROM tb", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"n": 5`)
}

func TestQueryCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		merge   bool
		stdin   string
		args    []string
		wantErr string
	}{
		{
			name:    "output missing",
			args:    []string{"SELECT 1"},
			wantErr: "run merge first",
		},
		{
			name:    "bad format",
			merge:   true,
			args:    []string{"SELECT 1", "--format", "xml"},
			wantErr: "invalid format",
		},
		{
			name:    "empty stdin",
			merge:   true,
			stdin:   "  ;\n",
			wantErr: "no SQL to run",
		},
		{
			name:    "missing input file",
			merge:   true,
			args:    []string{"--input", "nope.sql"},
			wantErr: "failed to read file",
		},
		{
			name:    "bad sql",
			merge:   true,
			args:    []string{"SELECT nope FROM tb"},
			wantErr: "nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.merge {
				mergedProject(t)
			} else {
				loadProject(t)
			}

			_, _, err := execute(t, NewQueryCommand(), tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQueryColumnsCommand(t *testing.T) {
	mergedProject(t)

	out, _, err := execute(t, NewQueryCommand(), "", "columns", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "iso3")
	assert.Contains(t, out, "incidence_rate")
	assert.Contains(t, out, "detection_rate_hi")
}

func TestQueryColumnsCommand_InheritsFormat(t *testing.T) {
	mergedProject(t)

	for _, args := range [][]string{
		{"columns", "--format", "json"},
		{"--format", "json", "columns"},
		{"columns", "-f", "json"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			out, _, err := execute(t, NewQueryCommand(), "", args...)
			require.NoError(t, err)
			assert.Contains(t, out, `"column": "iso3"`)
		})
	}
}

func TestQueryCommand_SingleArgument(t *testing.T) {
	mergedProject(t)

	out, _, err := execute(t, NewQueryCommand(), "", "SELECT 1 AS one", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "one")
	assert.NotContains(t, out, "unknown command")
}

func TestSummaryCommand(t *testing.T) {
	mergedProject(t)

	out, _, err := execute(t, NewSummaryCommand(), "", "--from", "2005", "--to", "2005", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"year": 2005`)
	assert.Contains(t, out, `"countries": 2`)
	assert.Contains(t, out, `"population": 1500000`)
	assert.NotContains(t, out, `"year": 2006`)
}

func TestSummaryCommand_Filters(t *testing.T) {
	mergedProject(t)

	out, _, err := execute(t, NewSummaryCommand(), "", "--iso3", "pak", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "2005")
	assert.NotContains(t, out, "1995")

	_, _, err = execute(t, NewSummaryCommand(), "", "--from", "2010", "--to", "2000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid year range")
}

func TestHandleDotCommand(t *testing.T) {
	mergedProject(t)

	eng, err := createEngine(getConfig(context.Background()), nil)
	require.NoError(t, err)
	sess, err := eng.OpenSession(context.Background())
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()

	tests := []struct {
		line       string
		wantQuit   bool
		wantFormat string
		wantOut    string
		wantErrOut string
	}{
		{line: ".quit", wantQuit: true, wantFormat: FormatTable},
		{line: ".exit", wantQuit: true, wantFormat: FormatTable},
		{line: ".help", wantFormat: FormatTable, wantOut: ".columns"},
		{line: ".columns", wantFormat: FormatTable, wantOut: "incidence_num"},
		{line: ".format", wantFormat: FormatTable, wantOut: "format: table"},
		{line: ".format csv", wantFormat: FormatCSV},
		{line: ".format xml", wantFormat: FormatTable, wantErrOut: "invalid format"},
		{line: ".bogus", wantFormat: FormatTable, wantErrOut: "Unknown command: .bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd := &cobra.Command{}
			out, errOut := new(bytes.Buffer), new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(errOut)

			format := FormatTable
			quit := handleDotCommand(context.Background(), cmd, sess, tt.line, &format)

			assert.Equal(t, tt.wantQuit, quit)
			assert.Equal(t, tt.wantFormat, format)
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
			if tt.wantErrOut != "" {
				assert.Contains(t, errOut.String(), tt.wantErrOut)
			}
		})
	}
}

func TestRenderResults_Empty(t *testing.T) {
	res := &engine.QueryResult{Columns: []string{"iso3"}}

	for _, format := range []string{FormatTable, FormatMarkdown} {
		buf := new(bytes.Buffer)
		require.NoError(t, renderResults(buf, res, format))
		assert.Equal(t, "(0 rows)\n", buf.String())
	}

	buf := new(bytes.Buffer)
	require.NoError(t, renderResults(buf, res, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"IND", "IND"},
		{int64(2005), "2005"},
		{float64(150.5), "150.5"},
		{float64(1500000), "1500000"},
		{float32(2.5), "2.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.in))
	}
}
