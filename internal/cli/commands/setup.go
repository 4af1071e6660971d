package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapgraph/internal/cli/config"
	"github.com/leapstack-labs/leapgraph/internal/cli/output"
	"github.com/leapstack-labs/leapgraph/internal/engine"
	"github.com/leapstack-labs/leapgraph/internal/export"
	"github.com/leapstack-labs/leapgraph/internal/publish"
	"github.com/leapstack-labs/leapgraph/internal/schema"
	"github.com/leapstack-labs/leapgraph/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with config, logger and renderer.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// LoadSchema reads and validates the configured schema.
func (c *CommandContext) LoadSchema() (*schema.Registry, error) {
	c.Logger.Debug("loading schema", "path", c.Cfg.SchemaPath)
	return schema.Load(c.Cfg.SchemaPath)
}

// NewEngine creates an engine for reg. The caller must close it.
func (c *CommandContext) NewEngine(reg *schema.Registry) (*engine.Engine, error) {
	if err := ensureStateDir(c.Cfg.StatePath); err != nil {
		return nil, err
	}

	return engine.New(engine.Config{
		Registry:    reg,
		SchemaPath:  c.Cfg.SchemaPath,
		InputDir:    c.Cfg.InputDir,
		OutputDir:   c.Cfg.OutputDir,
		Export:      exportOptions(c.Cfg.Export, c.Logger),
		Parallelism: c.Cfg.Parallelism,
		StatePath:   c.Cfg.StatePath,
		Logger:      c.Logger,
	})
}

// OpenStore opens the build history. Returns the store and a cleanup function
// that must be called (typically via defer).
func (c *CommandContext) OpenStore() (*state.SQLiteStore, func(), error) {
	if c.Cfg.StatePath == "" {
		return nil, nil, fmt.Errorf("build history is disabled (state_path is empty)")
	}
	if err := ensureStateDir(c.Cfg.StatePath); err != nil {
		return nil, nil, err
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to initialize state database: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// uploaderFactory creates the uploader. Replaced in tests.
var uploaderFactory = func(ctx context.Context, cfg publish.S3Config, logger *slog.Logger) (publish.Uploader, error) {
	return publish.NewS3Uploader(ctx, cfg, logger)
}

// NewUploader creates the S3 uploader from the upload settings.
func (c *CommandContext) NewUploader(ctx context.Context) (publish.Uploader, error) {
	u := c.Cfg.Upload
	return uploaderFactory(ctx, publish.S3Config{
		Bucket:    u.Bucket,
		Prefix:    u.Prefix,
		Region:    u.Region,
		Endpoint:  u.Endpoint,
		AccessKey: u.AccessKey,
		SecretKey: u.SecretKey,
	}, c.Logger)
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		SchemaPath:   config.DefaultSchema,
		InputDir:     config.DefaultInputDir,
		OutputDir:    config.DefaultOutputDir,
		StatePath:    config.DefaultStateFile,
		Parallelism:  config.DefaultParallelism,
		OutputFormat: os.Getenv(config.EnvPrefix + "OUTPUT"),
		LogFormat:    config.DefaultLogFormat,
		Export:       config.ExportConfig{Dialect: config.DefaultDialect},
	}
}

func exportOptions(c config.ExportConfig, logger *slog.Logger) export.Options {
	return export.Options{
		Dialect:        export.Dialect(c.Dialect),
		Delimiter:      c.Delimiter,
		ListDelimiter:  c.ListDelimiter,
		Quote:          c.Quote,
		Empty:          c.Empty,
		AncestorLabels: c.AncestorLabels,
		Logger:         logger,
	}
}

func ensureStateDir(statePath string) error {
	if statePath == "" || statePath == ":memory:" {
		return nil
	}
	stateDir := filepath.Dir(statePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return nil
}
