package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected query engine that logs to logger.
type Factory func(logger *slog.Logger) Adapter

var (
	enginesMu sync.RWMutex
	engines   = map[string]Factory{}
)

// ErrNoEngine is returned when no query engine was named.
var ErrNoEngine = errors.New("no query engine named")

// Register makes a query engine available under name. Names are matched
// case-insensitively. Registering a nil factory or the same name twice
// panics; engines register from init.
func Register(name string, factory Factory) {
	key := strings.ToLower(name)
	if factory == nil {
		panic("adapter: nil factory for query engine " + key)
	}

	enginesMu.Lock()
	defer enginesMu.Unlock()
	if _, dup := engines[key]; dup {
		panic("adapter: query engine " + key + " registered twice")
	}
	engines[key] = factory
}

func lookup(name string) (Factory, bool) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	f, ok := engines[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Known reports whether name selects a registered query engine.
func Known(name string) bool {
	_, ok := lookup(name)
	return ok
}

// Engines returns the registered query engine names in sorted order.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New builds the query engine cfg.Type names without connecting it.
// A nil logger discards its logs.
func New(cfg Config, logger *slog.Logger) (Adapter, error) {
	if strings.TrimSpace(cfg.Type) == "" {
		return nil, ErrNoEngine
	}
	factory, ok := lookup(cfg.Type)
	if !ok {
		return nil, &UnknownEngineError{Name: cfg.Type, Available: Engines()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// Open builds the query engine cfg.Type names and connects it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	db, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

// UnknownEngineError reports a query engine name nothing registered.
type UnknownEngineError struct {
	Name      string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown query engine %q (choose one of: %s)", e.Name, strings.Join(e.Available, ", "))
}
