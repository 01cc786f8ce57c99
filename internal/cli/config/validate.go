package config

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/tbmerge/internal/adapter"
)

// OutputModes lists the accepted values of the output setting.
var OutputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.NewPath == "" {
		return fmt.Errorf("new_path is required")
	}
	if c.OldPath == "" {
		return fmt.Errorf("old_path is required")
	}
	if c.OutPath == "" {
		return fmt.Errorf("out_path is required")
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if !adapter.Known(c.Engine) {
		return fmt.Errorf("invalid engine %q (available: %s)", c.Engine, strings.Join(adapter.Engines(), ", "))
	}
	if c.OutputFormat != "" && !slices.Contains(OutputModes, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (available: %s)", c.OutputFormat, strings.Join(OutputModes, ", "))
	}
	return nil
}

// DelimiterRune returns the configured field delimiter. An empty setting
// returns 0, which picks the delimiter from each file extension.
func (c *Config) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if size != len(c.Delimiter) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character", c.Delimiter)
	}
	return r, nil
}
