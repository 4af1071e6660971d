package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapgraph/internal/cli/config"
	"github.com/leapstack-labs/leapgraph/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new LeapGraph project",
		Long: `Initialize a new LeapGraph project with a configuration file, a schema
and a data directory.

This creates:
  - leapgraph.yaml configuration file
  - schema.yaml with one entity type and one source
  - data/ directory with a sample input file

Use --example to create a phenotype, gene, disease and pathway graph built
from OBO, GMT and tab-separated inputs, with a bridge deriving
phenotype-to-gene relations.`,
		Example: `  # Initialize in current directory
  leapgraph init

  # Initialize with a full working example
  leapgraph init --example

  # Initialize in a new directory
  leapgraph init my-graph --example

  # Force overwrite existing config
  leapgraph init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			mode := output.Mode(cfg.OutputFormat)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create a full example project with OBO, GMT and TSV sources")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configName := config.ConfigFileNames[0]
	if _, err := os.Stat(filepath.Join(dir, configName)); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configName)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	groups := groupTemplateFiles(files)

	for i, group := range []struct{ key, title string }{
		{"config", "Configuration"},
		{"schema", "Schema"},
		{"data", "Data"},
	} {
		if len(groups[group.key]) == 0 {
			continue
		}
		if i > 0 {
			r.Println("")
		}
		r.Header(2, group.title)
		for _, f := range groups[group.key] {
			r.StatusLine(f, "success", "")
		}
	}

	r.Println("")
	if template == "example" {
		r.Success("LeapGraph project initialized with example data!")
	} else {
		r.Success("LeapGraph project initialized!")
	}
	r.Println("")
	r.Println("Next steps:")
	r.Println("  leapgraph validate   Check the schema and input files")
	r.Println("  leapgraph build      Write Neo4j bulk-import tables to out/")
	r.Println("  leapgraph runs       View recorded builds")

	return nil
}
