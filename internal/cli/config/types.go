// Package config provides configuration management for the leapgraph CLI.
//
// Values are layered with koanf: built-in defaults, then leapgraph.yaml,
// then LEAPGRAPH_* environment variables, then command-line flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	SchemaPath   string `koanf:"schema" validate:"required"`
	InputDir     string `koanf:"input_dir" validate:"required"`
	OutputDir    string `koanf:"output_dir" validate:"required"`
	StatePath    string `koanf:"state_path"`
	Parallelism  int    `koanf:"parallelism" validate:"min=1,max=64"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output" validate:"omitempty,oneof=auto text markdown md json"`
	LogFormat    string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	Export ExportConfig `koanf:"export"`
	Upload UploadConfig `koanf:"upload"`

	// ProjectRoot is the directory relative paths are resolved against
	ProjectRoot string `koanf:"-"`
}

// ExportConfig controls the bulk-loader output encoding.
type ExportConfig struct {
	Dialect        string `koanf:"dialect" validate:"omitempty,oneof=neo4j neptune"`
	Delimiter      string `koanf:"delimiter"`
	ListDelimiter  string `koanf:"list_delimiter"`
	Quote          string `koanf:"quote"`
	Empty          string `koanf:"empty"`
	AncestorLabels bool   `koanf:"ancestor_labels"`
}

// UploadConfig configures publishing the output directory to S3.
type UploadConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint" validate:"omitempty,url"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

// Default configuration values.
const (
	DefaultSchema      = "schema.yaml"
	DefaultInputDir    = "data"
	DefaultOutputDir   = "out"
	DefaultStateFile   = ".leapgraph/state.db"
	DefaultParallelism = 1
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat   = "text"
	DefaultDialect     = "neo4j"
	EnvPrefix          = "LEAPGRAPH_"
)

// ConfigFileNames are searched, in order, when no config file is given.
var ConfigFileNames = []string{"leapgraph.yaml", "leapgraph.yml"}
