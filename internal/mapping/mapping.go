// Package mapping loads column mapping overrides for the two sources.
package mapping

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/tbmerge/internal/reconcile"
)

// SourceMapping overrides the header mapping of one source.
type SourceMapping struct {
	// Replace discards the built-in mapping instead of extending it.
	Replace bool              `yaml:"replace"`
	Columns map[string]string `yaml:"columns"`
}

// File is a parsed mapping document.
type File struct {
	New SourceMapping `yaml:"new"`
	Old SourceMapping `yaml:"old"`

	path string
}

// Load reads and validates a mapping file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// Parse decodes a mapping document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid mapping file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Path returns the file the mapping was loaded from.
func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Validate checks that every mapping target is a canonical column.
func (f *File) Validate() error {
	var unknown []string
	for _, sm := range []struct {
		name string
		m    SourceMapping
	}{{"new", f.New}, {"old", f.Old}} {
		for from, to := range sm.m.Columns {
			if !reconcile.IsCanonical(to) {
				unknown = append(unknown, fmt.Sprintf("%s: %q -> %q", sm.name, from, to))
			}
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("mapping targets are not canonical columns: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Apply returns the effective mappings for the new and old sources.
// A nil File returns copies of the defaults.
func (f *File) Apply(defNew, defOld map[string]string) (newMap, oldMap map[string]string) {
	if f == nil {
		return maps.Clone(defNew), maps.Clone(defOld)
	}
	return f.New.apply(defNew), f.Old.apply(defOld)
}

func (sm SourceMapping) apply(def map[string]string) map[string]string {
	out := make(map[string]string, len(def)+len(sm.Columns))
	if !sm.Replace {
		maps.Copy(out, def)
	}
	maps.Copy(out, sm.Columns)
	return out
}
