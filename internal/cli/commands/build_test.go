package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgraph/internal/cli/output"
	"github.com/leapstack-labs/leapgraph/internal/export"
	"github.com/leapstack-labs/leapgraph/internal/publish"
)

type fakeUploader struct {
	dirs []string
	cfg  publish.S3Config
}

func (f *fakeUploader) Upload(_ context.Context, dir string) ([]string, error) {
	f.dirs = append(f.dirs, dir)
	return []string{"s3://" + f.cfg.Bucket + "/" + f.cfg.Prefix + "/nodes_gene.csv"}, nil
}

// stubUploader replaces the S3 uploader for the duration of the test.
func stubUploader(t *testing.T) *fakeUploader {
	t.Helper()
	fake := &fakeUploader{}
	prev := uploaderFactory
	uploaderFactory = func(_ context.Context, cfg publish.S3Config, _ *slog.Logger) (publish.Uploader, error) {
		fake.cfg = cfg
		return fake, nil
	}
	t.Cleanup(func() { uploaderFactory = prev })
	return fake
}

func TestBuildCommand_Markdown(t *testing.T) {
	dir, _ := setupProject(t)

	stdout, stderr, err := execute(NewBuildCommand())
	require.NoError(t, err)

	assert.Contains(t, stdout, "# Build ")
	assert.Contains(t, stdout, "## Nodes")
	assert.Contains(t, stdout, "phenotype_to_gene")
	assert.Contains(t, stdout, "Build completed")
	// HP:0002 has no disease
	assert.Contains(t, stderr, "phenotypes: 1 rows without disease")

	assert.FileExists(t, filepath.Join(dir, "out", export.ManifestFile))
	assert.FileExists(t, filepath.Join(dir, "out", "nodes_gene.csv"))
}

func TestBuildCommand_FailedSource(t *testing.T) {
	dir, _ := setupProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "g2d.tsv")))

	stdout, stderr, err := execute(NewBuildCommand())
	require.Error(t, err)

	assert.Contains(t, stdout, "associations")
	assert.Contains(t, stderr, "Build failed")
	// the other sources are still exported
	assert.FileExists(t, filepath.Join(dir, "out", "nodes_disease.csv"))
}

func TestBuildCommand_JSONLines(t *testing.T) {
	setupProject(t)

	stdout, _, err := execute(NewBuildCommand(), "--json")
	require.NoError(t, err)

	var events []output.BuildEvent
	sc := bufio.NewScanner(strings.NewReader(stdout))
	for sc.Scan() {
		var ev output.BuildEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), sc.Text())
		events = append(events, ev)
	}
	require.Len(t, events, 5)

	assert.Equal(t, "build_start", events[0].Event)
	assert.Equal(t, []string{"diseases", "phenotypes", "associations"}, events[0].Sources)
	for _, ev := range events[1:4] {
		assert.Equal(t, "source_complete", ev.Event)
		assert.Equal(t, "success", ev.Status, ev.Source)
		assert.NotEmpty(t, ev.Timestamp)
	}

	last := events[4]
	assert.Equal(t, "build_complete", last.Event)
	assert.Equal(t, "completed", last.Status)
	assert.Equal(t, 6, last.Nodes)
	assert.Equal(t, 3, last.Edges)
	assert.NotEmpty(t, last.Files)
}

func TestBuildCommand_JSONOutput(t *testing.T) {
	_, cfg := setupProject(t)
	cfg.OutputFormat = "json"

	stdout, _, err := execute(NewBuildCommand())
	require.NoError(t, err)

	var summary struct {
		RunID      string         `json:"run_id"`
		Status     string         `json:"status"`
		NodeCounts map[string]int `json:"node_counts"`
		Sources    []struct {
			Name string `json:"name"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, map[string]int{"gene": 2, "disease": 2, "phenotype": 2}, summary.NodeCounts)
	assert.Len(t, summary.Sources, 3)
}

func TestBuildCommand_Upload(t *testing.T) {
	_, cfg := setupProject(t)
	cfg.Upload.Enabled = true
	cfg.Upload.Bucket = "graphs"
	cfg.Upload.Prefix = "hpo"
	fake := stubUploader(t)

	stdout, _, err := execute(NewBuildCommand())
	require.NoError(t, err)

	assert.Equal(t, []string{cfg.OutputDir}, fake.dirs)
	assert.Equal(t, "graphs", fake.cfg.Bucket)
	assert.Contains(t, stdout, "Uploaded 1 objects to s3://graphs/hpo")
}

func TestBuildCommand_NoUploadAfterFailure(t *testing.T) {
	dir, cfg := setupProject(t)
	cfg.Upload.Enabled = true
	cfg.Upload.Bucket = "graphs"
	fake := stubUploader(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "g2d.tsv")))

	_, _, err := execute(NewBuildCommand())
	require.Error(t, err)
	assert.Empty(t, fake.dirs)
}

func TestBuildCommand_MissingInputDir(t *testing.T) {
	dir, _ := setupProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "data")))

	_, _, err := execute(NewBuildCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input directory does not exist")
}
