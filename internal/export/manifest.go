package export

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest describes one export directory.
type Manifest struct {
	Dialect       string      `json:"dialect"`
	Delimiter     string      `json:"delimiter"`
	ListDelimiter string      `json:"list_delimiter"`
	Quote         string      `json:"quote"`
	Nodes         []FileEntry `json:"nodes"`
	Edges         []FileEntry `json:"edges"`
}

// FileEntry is one written table.
type FileEntry struct {
	Label  string   `json:"label"`
	File   string   `json:"file"`
	Rows   int      `json:"rows"`
	Header []string `json:"header"`
}

// Files returns every table file name, nodes first.
func (m *Manifest) Files() []string {
	out := make([]string, 0, len(m.Nodes)+len(m.Edges))
	for _, e := range m.Nodes {
		out = append(out, e.File)
	}
	for _, e := range m.Edges {
		out = append(out, e.File)
	}
	return out
}

// NodeCounts returns rows per node label.
func (m *Manifest) NodeCounts() map[string]int {
	out := make(map[string]int, len(m.Nodes))
	for _, e := range m.Nodes {
		out[e.Label] = e.Rows
	}
	return out
}

// EdgeCounts returns rows per relation label.
func (m *Manifest) EdgeCounts() map[string]int {
	out := make(map[string]int, len(m.Edges))
	for _, e := range m.Edges {
		out[e.Label] = e.Rows
	}
	return out
}

func (m *Manifest) save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
