package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapgraph/internal/cli/output"
	"github.com/leapstack-labs/leapgraph/internal/schema"
	"github.com/leapstack-labs/leapgraph/pkg/core"
	"github.com/spf13/cobra"
)

// schemaSummary is the JSON view of a validated schema.
type schemaSummary struct {
	Valid         bool              `json:"valid"`
	Errors        []string          `json:"errors,omitempty"`
	EntityTypes   []entitySummary   `json:"entity_types,omitempty"`
	RelationTypes []relationSummary `json:"relation_types,omitempty"`
	Sources       []sourceSummary   `json:"sources,omitempty"`
	MissingInputs []string          `json:"missing_inputs,omitempty"`
}

type entitySummary struct {
	Label      string   `json:"label"`
	Namespace  string   `json:"namespace,omitempty"`
	IsA        string   `json:"is_a,omitempty"`
	Properties []string `json:"properties"`
}

type relationSummary struct {
	Label     string `json:"label"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Origin    string `json:"origin"`
	MultiEdge bool   `json:"multi_edge"`
}

type sourceSummary struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Format   string `json:"format"`
	Entities int    `json:"entities"`
	Edges    int    `json:"edges"`
	Bridges  int    `json:"bridges"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the schema without building",
		Long: `Load the schema and report every declaration error at once.

On success the entity types, relation types and sources are listed, and
sources whose file is missing from the input directory are flagged.`,
		Example: `  # Validate the configured schema
  leapgraph validate

  # Validate another schema as JSON
  leapgraph validate --schema graphs/hpo.yaml -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
}

func runValidate(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	reg, err := cc.LoadSchema()
	if err != nil {
		return reportSchemaErrors(r, err)
	}

	summary := summarizeSchema(reg)
	for _, src := range reg.Sources() {
		if _, err := os.Stat(filepath.Join(cc.Cfg.InputDir, src.Path)); err != nil {
			summary.MissingInputs = append(summary.MissingInputs, src.Name)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(summary)
	}

	r.Header(1, "Schema "+cc.Cfg.SchemaPath)

	r.Header(2, "Entity types")
	rows := make([][]string, 0, len(summary.EntityTypes))
	for _, t := range summary.EntityTypes {
		rows = append(rows, []string{t.Label, t.Namespace, t.IsA, strings.Join(t.Properties, ", ")})
	}
	r.Table([]string{"Label", "Namespace", "Is a", "Properties"}, rows)

	r.Header(2, "Relation types")
	rows = make([][]string, 0, len(summary.RelationTypes))
	for _, rel := range summary.RelationTypes {
		rows = append(rows, []string{rel.Label, rel.Source + " -> " + rel.Target, rel.Origin, strconv.FormatBool(rel.MultiEdge)})
	}
	r.Table([]string{"Label", "Endpoints", "Origin", "Multi-edge"}, rows)

	r.Header(2, "Sources")
	rows = make([][]string, 0, len(summary.Sources))
	for _, s := range summary.Sources {
		rows = append(rows, []string{s.Name, s.Path, s.Format,
			strconv.Itoa(s.Entities), strconv.Itoa(s.Edges), strconv.Itoa(s.Bridges)})
	}
	r.Table([]string{"Name", "Path", "Format", "Entities", "Edges", "Bridges"}, rows)

	for _, name := range summary.MissingInputs {
		src, _ := reg.Source(name)
		r.Warning(fmt.Sprintf("%s: input file %s not found in %s", name, src.Path, cc.Cfg.InputDir))
	}
	r.Success("Schema is valid")
	return nil
}

// reportSchemaErrors lists every configuration error and returns a summary error.
func reportSchemaErrors(r *output.Renderer, err error) error {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var cfgErr *core.ConfigurationError
	if !errors.As(err, &cfgErr) {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		summary := schemaSummary{}
		for _, e := range errs {
			summary.Errors = append(summary.Errors, e.Error())
		}
		if jerr := r.JSON(summary); jerr != nil {
			return jerr
		}
	} else {
		for _, e := range errs {
			r.Error(e.Error())
		}
	}
	return fmt.Errorf("schema has %d error(s)", len(errs))
}

func summarizeSchema(reg *schema.Registry) schemaSummary {
	summary := schemaSummary{Valid: true}

	for _, label := range reg.EntityLabels() {
		t, _ := reg.EntityType(label)
		props := make([]string, 0, len(t.Properties))
		for _, p := range t.AllProperties() {
			props = append(props, fmt.Sprintf("%s:%s", p.Name, p.Kind))
		}
		summary.EntityTypes = append(summary.EntityTypes, entitySummary{
			Label:      t.Label,
			Namespace:  t.Namespace,
			IsA:        t.IsA,
			Properties: props,
		})
	}

	for _, label := range reg.RelationLabels() {
		rel, _ := reg.RelationType(label)
		summary.RelationTypes = append(summary.RelationTypes, relationSummary{
			Label:     rel.Label,
			Source:    rel.Source,
			Target:    rel.Target,
			Origin:    string(rel.Origin),
			MultiEdge: rel.MultiEdge,
		})
	}

	for _, src := range reg.Sources() {
		summary.Sources = append(summary.Sources, sourceSummary{
			Name:     src.Name,
			Path:     src.Path,
			Format:   string(src.Format),
			Entities: len(src.Entities),
			Edges:    len(src.Edges),
			Bridges:  len(src.Bridges),
		})
	}
	return summary
}
