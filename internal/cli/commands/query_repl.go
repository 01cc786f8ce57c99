package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tbmerge/internal/engine"
)

const (
	replPrompt     = "tbmerge> "
	replContPrompt = "    ...> "
)

func runQueryREPL(cmd *cobra.Command, eng *engine.Engine, opts *QueryOptions) error {
	ctx := cmd.Context()

	sess, err := eng.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    newColumnCompleter(ctx, sess),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "tbmerge query REPL (%s, file: %s)\n", sess.Dialect(), eng.OutputPath())
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	format := opts.Format
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, cmd, sess, line, &format); quit {
				break
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		query := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		if err := executeAndRenderQuery(ctx, out, sess, query, format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(out)
	}

	return nil
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "tbmerge")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "query_history")
}

func executeAndRenderQuery(ctx context.Context, w io.Writer, sess *engine.Session, query, format string) error {
	res, err := sess.Query(ctx, query)
	if err != nil {
		return err
	}
	return renderResults(w, res, format)
}

// handleDotCommand runs a REPL dot-command and reports whether the REPL
// should exit.
func handleDotCommand(ctx context.Context, cmd *cobra.Command, sess *engine.Session, line string, format *string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	errOut := cmd.ErrOrStderr()

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".columns", ".schema":
		if err := listColumns(ctx, cmd.OutOrStdout(), sess, *format); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "format: %s\n", *format)
			return false
		}
		if err := validateFormat(parts[1]); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			return false
		}
		*format = parts[1]

	case ".clear":
		_, _ = fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .columns          List the columns of table tb
  .format [name]    Show or set the output format (table, json, csv, md)
  .clear            Clear the screen
  .quit / .exit     Exit the REPL

Tips:
  - The combined file is loaded as table tb
  - SQL statements must end with a semicolon (;)
  - Tab completion works for column names
`
	_, _ = fmt.Fprintln(w, help)
}

// newColumnCompleter creates a readline completer for the table and its columns.
func newColumnCompleter(ctx context.Context, sess *engine.Session) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{readline.PcItem(engine.TableName)}

	if cols, err := sess.Columns(ctx); err == nil {
		for _, c := range cols {
			items = append(items, readline.PcItem(c))
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".columns"),
		readline.PcItem(".format",
			readline.PcItem(FormatTable),
			readline.PcItem(FormatJSON),
			readline.PcItem(FormatCSV),
			readline.PcItem(FormatMarkdown),
		),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
