package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgraph/internal/export"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	failKey string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failKey {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string]string)
		f.types = make(map[string]string)
	}
	f.objects[aws.ToString(in.Bucket)+"/"+key] = string(data)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func writeExport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	m := export.Manifest{
		Dialect: "neo4j",
		Nodes:   []export.FileEntry{{Label: "gene", File: "nodes_gene.csv", Rows: 1}},
		Edges:   []export.FileEntry{{Label: "gene_to_disease", File: "edges_gene_to_disease.csv", Rows: 1}},
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, export.ManifestFile), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes_gene.csv"), []byte(":ID\t:LABEL\nTP53\tgene\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edges_gene_to_disease.csv"), []byte("id\t:START_ID\t:END_ID\t:TYPE\n"), 0o644))
	// not part of the export
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("local"), 0o644))
	return dir
}

func TestS3Uploader_Upload(t *testing.T) {
	dir := writeExport(t)
	client := &fakeS3{}
	u := NewS3UploaderWithClient(client, S3Config{Bucket: "graphs", Prefix: "/hpo/2026-10-19/"}, nil)

	uris, err := u.Upload(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://graphs/hpo/2026-10-19/nodes_gene.csv",
		"s3://graphs/hpo/2026-10-19/edges_gene_to_disease.csv",
		"s3://graphs/hpo/2026-10-19/manifest.json",
	}, uris)

	assert.Len(t, client.objects, 3)
	assert.Equal(t, ":ID\t:LABEL\nTP53\tgene\n", client.objects["graphs/hpo/2026-10-19/nodes_gene.csv"])
	assert.NotContains(t, client.objects, "graphs/hpo/2026-10-19/notes.txt")
	assert.Equal(t, "text/csv", mimeBase(client.types["hpo/2026-10-19/nodes_gene.csv"]))
	assert.Equal(t, "application/json", mimeBase(client.types["hpo/2026-10-19/manifest.json"]))
}

func TestS3Uploader_Key(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "nodes_gene.csv"},
		{prefix: "graphs", want: "graphs/nodes_gene.csv"},
		{prefix: "/graphs/v1/", want: "graphs/v1/nodes_gene.csv"},
	}
	for _, tt := range tests {
		u := NewS3UploaderWithClient(&fakeS3{}, S3Config{Bucket: "b", Prefix: tt.prefix}, nil)
		assert.Equal(t, tt.want, u.Key("nodes_gene.csv"))
	}
}

func TestS3Uploader_Errors(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		u := NewS3UploaderWithClient(&fakeS3{}, S3Config{Bucket: "b"}, nil)
		_, err := u.Upload(context.Background(), t.TempDir())
		require.ErrorContains(t, err, "failed to read manifest")
	})

	t.Run("put failure", func(t *testing.T) {
		dir := writeExport(t)
		u := NewS3UploaderWithClient(&fakeS3{failKey: "edges_gene_to_disease.csv"}, S3Config{Bucket: "b"}, nil)
		_, err := u.Upload(context.Background(), dir)
		require.ErrorContains(t, err, "failed to upload edges_gene_to_disease.csv to S3: access denied")
	})

	t.Run("bucket required", func(t *testing.T) {
		_, err := NewS3Uploader(context.Background(), S3Config{}, nil)
		require.EqualError(t, err, "upload bucket is required")
	})
}

// mimeBase strips parameters such as "; charset=utf-8".
func mimeBase(contentType string) string {
	for i, r := range contentType {
		if r == ';' {
			return contentType[:i]
		}
	}
	return contentType
}
