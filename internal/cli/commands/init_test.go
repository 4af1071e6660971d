package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgraph/internal/engine"
	"github.com/leapstack-labs/leapgraph/internal/schema"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:    "init empty directory",
			args:    []string{},
			wantErr: false,
			wantFiles: []string{
				"leapgraph.yaml",
				"schema.yaml",
				"data/genes.tsv",
				".gitignore",
			},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "leapgraph.yaml"), []byte("existing"), 0600)
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "leapgraph.yaml"), []byte("existing"), 0600)
			},
			args:    []string{"--force"},
			wantErr: false,
			wantFiles: []string{
				"leapgraph.yaml",
				"data",
			},
		},
		{
			name:    "init example into new directory",
			args:    []string{"graph", "--example"},
			wantErr: false,
			wantFiles: []string{
				"graph/leapgraph.yaml",
				"graph/schema.yaml",
				"graph/data/hp.obo",
				"graph/data/pathways.gmt",
				"graph/data/genes_to_phenotype.tsv",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, f))
				assert.False(t, os.IsNotExist(err), "expected file/dir %q to exist", f)
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
	assert.NotNil(t, cmd.Flags().Lookup("example"), "--example flag should exist")
}

func TestInitCreatesValidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile("leapgraph.yaml")
	require.NoError(t, err, "failed to read leapgraph.yaml")

	for _, expected := range []string{
		"schema: schema.yaml",
		"input_dir: data",
		"output_dir: out",
		"state_path:",
	} {
		assert.Contains(t, string(content), expected, "config should contain %q", expected)
	}

	_, err = schema.Load("schema.yaml")
	require.NoError(t, err)
}

func TestInitKeepsExistingFilesWithoutForce(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("gene_id\tsymbol\tname\nX\tY\tZ\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "genes.tsv"), custom, 0600))

	require.NoError(t, copyTemplate("minimal", dir, false))

	data, err := os.ReadFile(filepath.Join(dir, "data", "genes.tsv"))
	require.NoError(t, err)
	assert.Equal(t, custom, data)
	assert.FileExists(t, filepath.Join(dir, "schema.yaml"))
}

func TestInitExampleBuilds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, copyTemplate("example", dir, false))

	reg, err := schema.Load(filepath.Join(dir, "schema.yaml"))
	require.NoError(t, err)

	eng, err := engine.New(engine.Config{
		Registry:  reg,
		InputDir:  filepath.Join(dir, "data"),
		OutputDir: filepath.Join(dir, "out"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	result, err := eng.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.BuildStatusCompleted, result.Status)

	// the obsolete term is skipped
	assert.Equal(t, map[string]int{"phenotype": 4, "gene": 3, "disease": 3, "pathway": 2}, result.NodeCounts)
	assert.Equal(t, map[string]int{
		"phenotype_is_a":       3,
		"gene_to_disease":      3,
		"phenotype_to_gene":    3,
		"phenotype_to_disease": 3,
		"pathway_has_gene":     3,
	}, result.EdgeCounts)
}

func TestGroupTemplateFiles(t *testing.T) {
	files, err := listTemplateFiles("example")
	require.NoError(t, err)

	groups := groupTemplateFiles(files)
	assert.ElementsMatch(t, []string{"leapgraph.yaml", ".gitignore"}, groups["config"])
	assert.Equal(t, []string{"schema.yaml"}, groups["schema"])
	assert.Contains(t, groups["data"], "data/hp.obo")
	assert.Len(t, groups["data"], 5)
}
