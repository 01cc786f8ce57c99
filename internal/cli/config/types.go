// Package config provides configuration management for the tbmerge CLI.
//
// Values are layered with koanf: built-in defaults, then tbmerge.yaml,
// then TBMERGE_* environment variables, then explicitly set flags.
package config

import (
	"github.com/leapstack-labs/tbmerge/internal/engine"
)

// Config holds all CLI configuration options.
type Config struct {
	NewPath      string   `koanf:"new_path"`
	OldPath      string   `koanf:"old_path"`
	OutPath      string   `koanf:"out_path"`
	MappingFile  string   `koanf:"mapping_file"`
	Delimiter    string   `koanf:"delimiter"`
	NAValues     []string `koanf:"na_values"`
	Engine       string   `koanf:"engine"`
	Verbose      bool     `koanf:"verbose"`
	OutputFormat string   `koanf:"output"`
}

// Default configuration values.
const (
	DefaultNewPath = engine.DefaultNewPath
	DefaultOldPath = engine.DefaultOldPath
	DefaultOutPath = engine.DefaultOutputPath
	DefaultEngine  = engine.DefaultEngine
	DefaultOutput  = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	EnvPrefix      = "TBMERGE_"
)

// configFileNames are searched in the working directory, in order.
var configFileNames = []string{"tbmerge.yaml", "tbmerge.yml"}

// pathKeys are resolved relative to the config file that sets them.
var pathKeys = []string{"new_path", "old_path", "out_path", "mapping_file"}
