// Package engine runs graph builds.
// It drives every configured source through its reader, resolver, bridge
// synthesizer and accumulator, merges the per-source accumulators in
// declared order, exports the result and records the build.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapgraph/internal/export"
	"github.com/leapstack-labs/leapgraph/internal/schema"
	"github.com/leapstack-labs/leapgraph/internal/state"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Engine builds graphs for one schema.
type Engine struct {
	// Structured logger
	logger *slog.Logger

	reg         *schema.Registry
	schemaPath  string
	input       fs.FS
	outputDir   string
	exporter    *export.Exporter
	parallelism int

	store     core.Store
	ownsStore bool
}

// Config holds engine configuration.
type Config struct {
	// Registry is the loaded schema
	Registry *schema.Registry
	// SchemaPath is recorded with each build (informational)
	SchemaPath string
	// Input is the filesystem source paths are resolved against.
	// Defaults to os.DirFS(InputDir).
	Input fs.FS
	// InputDir is used when Input is nil
	InputDir string
	// OutputDir receives the exported tables
	OutputDir string
	// Export configures the output encoding
	Export export.Options
	// Parallelism is the number of sources processed concurrently (default 1)
	Parallelism int
	// StatePath is the path to the SQLite build history. Empty disables
	// history unless Store is set.
	StatePath string
	// Store overrides StatePath with an already initialized store
	Store core.Store
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates a new engine.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine requires a schema registry")
	}
	if cfg.OutputDir == "" {
		return nil, &core.ConfigurationError{Path: "output_dir", Message: "is required"}
	}

	logger.Debug("initializing engine", "schema", cfg.SchemaPath, "output_dir", cfg.OutputDir)

	input := cfg.Input
	if input == nil {
		dir := cfg.InputDir
		if dir == "" {
			dir = "."
		}
		input = os.DirFS(dir)
	}

	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	exportOpts := cfg.Export
	if exportOpts.Logger == nil {
		exportOpts.Logger = logger
	}
	exporter, err := export.New(cfg.Registry, exportOpts)
	if err != nil {
		return nil, &core.ConfigurationError{Path: "export", Message: err.Error()}
	}

	e := &Engine{
		logger:      logger,
		reg:         cfg.Registry,
		schemaPath:  cfg.SchemaPath,
		input:       input,
		outputDir:   cfg.OutputDir,
		exporter:    exporter,
		parallelism: parallelism,
		store:       cfg.Store,
	}

	if e.store == nil && cfg.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := store.InitSchema(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		e.store = store
		e.ownsStore = true
	}

	return e, nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.store != nil && e.ownsStore {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %w", errors.Join(errs...))
	}
	return nil
}

// --- Getters (public accessors) ---

// Registry returns the schema the engine builds.
func (e *Engine) Registry() *schema.Registry {
	return e.reg
}

// Exporter returns the configured exporter.
func (e *Engine) Exporter() *export.Exporter {
	return e.exporter
}

// StateStore returns the build history store, or nil when disabled.
func (e *Engine) StateStore() core.Store {
	return e.store
}
