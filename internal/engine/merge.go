package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/tbmerge/internal/reconcile"
	"github.com/leapstack-labs/tbmerge/internal/tabular"
)

// MergeResult describes a completed merge.
type MergeResult struct {
	RunID      string          `json:"run_id"`
	NewPath    string          `json:"new_path"`
	OldPath    string          `json:"old_path"`
	OutputPath string          `json:"output_path"`
	NewRows    int             `json:"new_rows"`
	OldRows    int             `json:"old_rows"`
	Stats      reconcile.Stats `json:"stats"`
	Elapsed    time.Duration   `json:"elapsed_ns"`
}

// Merge reads both sources, reconciles them and writes the combined table.
// On any error the output file is left untouched.
func (e *Engine) Merge(ctx context.Context) (*MergeResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)

	logger.Info("starting merge", "new", e.newPath, "old", e.oldPath)

	newSrc, oldSrc, err := e.readSources()
	if err != nil {
		logger.Error("read failed", "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := reconcile.Reconcile(newSrc, oldSrc)
	if err != nil {
		logger.Error("reconcile failed", "error", err)
		return nil, fmt.Errorf("failed to reconcile sources: %w", err)
	}
	logger.Debug("reconciled",
		"rows", table.Stats.Rows,
		"both", table.Stats.Both,
		"new_only", table.Stats.PrimaryOnly,
		"old_only", table.Stats.FallbackOnly,
		"backfilled", table.Stats.Backfilled,
	)
	if table.Stats.Dropped > 0 {
		logger.Warn("dropped rows without iso3", "count", table.Stats.Dropped)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	delim := tabular.DelimiterFor(e.outputPath, e.delimiter)
	if err := tabular.WriteFileAtomic(e.outputPath, table, delim); err != nil {
		logger.Error("write failed", "path", e.outputPath, "error", err)
		return nil, err
	}

	result := &MergeResult{
		RunID:      runID,
		NewPath:    e.newPath,
		OldPath:    e.oldPath,
		OutputPath: e.outputPath,
		NewRows:    len(newSrc.Rows),
		OldRows:    len(oldSrc.Rows),
		Stats:      table.Stats,
		Elapsed:    time.Since(start),
	}
	logger.Info("merge complete", "out", e.outputPath, "rows", table.Stats.Rows, "elapsed", result.Elapsed)
	return result, nil
}

// reconcileSources reads and reconciles without writing.
func (e *Engine) reconcileSources() (*reconcile.Table, reconcile.Source, reconcile.Source, error) {
	newSrc, oldSrc, err := e.readSources()
	if err != nil {
		return nil, newSrc, oldSrc, err
	}
	table, err := reconcile.Reconcile(newSrc, oldSrc)
	if err != nil {
		return nil, newSrc, oldSrc, fmt.Errorf("failed to reconcile sources: %w", err)
	}
	return table, newSrc, oldSrc, nil
}
