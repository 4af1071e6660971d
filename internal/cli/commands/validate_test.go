package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgraph/internal/cli/testutil"
)

const invalidSchema = `
entity_types:
  - label: gene
relation_types:
  - {label: gene_to_x, source: gene, target: missing}
sources:
  - name: genes
    path: genes.tsv
    entities:
      - {binding: gene, type: unknown, id: {column: id}}
`

func TestValidateCommand(t *testing.T) {
	setupProject(t)

	stdout, stderr, err := execute(NewValidateCommand())
	require.NoError(t, err)

	assert.Contains(t, stdout, "## Entity types")
	assert.Contains(t, stdout, "gene_to_disease")
	assert.Contains(t, stdout, "g2p.tsv")
	assert.Contains(t, stdout, "Schema is valid")
	assert.Empty(t, stderr)
}

func TestValidateCommand_MissingInput(t *testing.T) {
	dir, _ := setupProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "g2d.tsv")))

	stdout, stderr, err := execute(NewValidateCommand())
	require.NoError(t, err)
	assert.Contains(t, stderr, "associations: input file g2d.tsv not found")
	assert.Contains(t, stdout, "Schema is valid")
}

func TestValidateCommand_Errors(t *testing.T) {
	dir, _ := setupProject(t)
	testutil.WriteFile(t, dir, "schema.yaml", invalidSchema)

	_, stderr, err := execute(NewValidateCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema has")
	assert.Contains(t, stderr, `relation "gene_to_x" references undeclared entity type "missing"`)
	assert.Contains(t, stderr, `binding references undeclared entity type "unknown"`)
}

func TestValidateCommand_JSON(t *testing.T) {
	_, cfg := setupProject(t)
	cfg.OutputFormat = "json"

	stdout, _, err := execute(NewValidateCommand())
	require.NoError(t, err)

	var summary schemaSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.True(t, summary.Valid)
	assert.Len(t, summary.EntityTypes, 3)
	assert.Len(t, summary.RelationTypes, 3)
	require.Len(t, summary.Sources, 3)
	assert.Equal(t, "diseases", summary.Sources[0].Name)
	assert.Equal(t, 3, summary.Sources[1].Entities)
	assert.Equal(t, 1, summary.Sources[1].Bridges)
	assert.Empty(t, summary.MissingInputs)
}

func TestValidateCommand_JSONErrors(t *testing.T) {
	dir, cfg := setupProject(t)
	cfg.OutputFormat = "json"
	testutil.WriteFile(t, dir, "schema.yaml", invalidSchema)

	stdout, _, err := execute(NewValidateCommand())
	require.Error(t, err)

	var summary schemaSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.False(t, summary.Valid)
	assert.GreaterOrEqual(t, len(summary.Errors), 2)
}

func TestValidateCommand_MissingSchemaFile(t *testing.T) {
	dir, _ := setupProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "schema.yaml")))

	_, _, err := execute(NewValidateCommand())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "schema has")
}
