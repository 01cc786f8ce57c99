// Package engine runs the burden merge end to end: it reads both extracts,
// reconciles them, writes the combined file and answers SQL questions
// about the result.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tbmerge/internal/adapter"
	"github.com/leapstack-labs/tbmerge/internal/mapping"
	"github.com/leapstack-labs/tbmerge/internal/reconcile"
	"github.com/leapstack-labs/tbmerge/internal/tabular"
)

// Default file locations, relative to the working directory.
const (
	DefaultNewPath    = "data/TB_Burden_Country.csv"
	DefaultOldPath    = "data/TB_burden_countries_2025-05-18.csv"
	DefaultOutputPath = "data/combined_tb_data_1990_2023.csv"
	DefaultEngine     = "duckdb"
)

// Source names used in logs and errors.
const (
	SourceNew = "new"
	SourceOld = "old"
)

// Engine merges the two burden extracts.
type Engine struct {
	newPath    string
	oldPath    string
	outputPath string
	delimiter  rune
	naValues   []string
	queryType  string

	newMapping map[string]string
	oldMapping map[string]string
	mappings   *mapping.File

	logger *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// NewPath is the primary source; its values win on conflict.
	NewPath string
	// OldPath is the fallback source.
	OldPath string
	// OutputPath receives the combined table.
	OutputPath string
	// MappingFile optionally overrides the built-in header mappings.
	MappingFile string
	// Delimiter for all three files. 0 picks it from each file extension.
	Delimiter rune
	// NAValues are read as missing. Nil uses tabular.DefaultNAValues.
	NAValues []string
	// QueryEngine is the adapter used by Query and Summary.
	QueryEngine string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New validates cfg and loads the mapping file, if any.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		newPath:    orDefault(cfg.NewPath, DefaultNewPath),
		oldPath:    orDefault(cfg.OldPath, DefaultOldPath),
		outputPath: orDefault(cfg.OutputPath, DefaultOutputPath),
		delimiter:  cfg.Delimiter,
		naValues:   cfg.NAValues,
		queryType:  orDefault(cfg.QueryEngine, DefaultEngine),
		logger:     logger,
	}
	if e.naValues == nil {
		e.naValues = tabular.DefaultNAValues()
	}

	if !adapter.Known(e.queryType) {
		return nil, &adapter.UnknownEngineError{Name: e.queryType, Available: adapter.Engines()}
	}

	if cfg.MappingFile != "" {
		m, err := mapping.Load(cfg.MappingFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load mappings: %w", err)
		}
		e.mappings = m
	}
	e.newMapping, e.oldMapping = e.mappings.Apply(reconcile.NewMapping(), reconcile.OldMapping())

	logger.Debug("initializing engine",
		"new", e.newPath,
		"old", e.oldPath,
		"out", e.outputPath,
		"mapping_file", e.mappings.Path(),
		"query_engine", e.queryType,
	)
	return e, nil
}

// NewPath returns the primary source path.
func (e *Engine) NewPath() string { return e.newPath }

// OldPath returns the fallback source path.
func (e *Engine) OldPath() string { return e.oldPath }

// OutputPath returns the combined file path.
func (e *Engine) OutputPath() string { return e.outputPath }

// readSources reads both extracts with their mappings attached.
func (e *Engine) readSources() (newSrc, oldSrc reconcile.Source, err error) {
	newSrc, err = tabular.ReadFile(e.newPath, SourceNew, e.readOptions(e.newMapping))
	if err != nil {
		return newSrc, oldSrc, err
	}
	oldSrc, err = tabular.ReadFile(e.oldPath, SourceOld, e.readOptions(e.oldMapping))
	if err != nil {
		return newSrc, oldSrc, err
	}
	e.logger.Debug("read sources",
		"new_rows", len(newSrc.Rows), "new_columns", len(newSrc.Columns),
		"old_rows", len(oldSrc.Rows), "old_columns", len(oldSrc.Columns),
	)
	return newSrc, oldSrc, nil
}

func (e *Engine) readOptions(m map[string]string) tabular.ReadOptions {
	return tabular.ReadOptions{
		Delimiter: e.delimiter,
		NAValues:  e.naValues,
		Mapping:   m,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
