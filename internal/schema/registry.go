// Package schema loads the declarative graph schema: entity types, relation
// types and per-source column bindings. A loaded Registry is immutable and
// safe to share between concurrently running source pipelines.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Registry is the validated, immutable schema of one build.
type Registry struct {
	settings core.Settings

	// entityTypes maps labels to declarations: "gene" → *EntityType
	entityTypes map[string]*core.EntityType
	entityOrder []string

	relationTypes map[string]*core.RelationType
	relationOrder []string

	sources     []*core.SourceConfig
	sourceIndex map[string]int
}

// Load reads and validates a schema file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates a schema document. Every violation found is reported,
// joined into one error of *core.ConfigurationError values.
func Parse(data []byte) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &core.ConfigurationError{Message: err.Error()}
	}

	b := newBuilder()
	reg := b.build(&doc)
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return reg, nil
}

// Settings returns the schema-wide resolution settings.
func (r *Registry) Settings() core.Settings {
	return r.settings
}

// EntityType looks up an entity type by label.
func (r *Registry) EntityType(label string) (*core.EntityType, bool) {
	t, ok := r.entityTypes[label]
	return t, ok
}

// RelationType looks up a relation type by label.
func (r *Registry) RelationType(label string) (*core.RelationType, bool) {
	t, ok := r.relationTypes[label]
	return t, ok
}

// EntityLabels returns entity labels in declaration order.
func (r *Registry) EntityLabels() []string {
	out := make([]string, len(r.entityOrder))
	copy(out, r.entityOrder)
	return out
}

// RelationLabels returns relation labels in declaration order.
func (r *Registry) RelationLabels() []string {
	out := make([]string, len(r.relationOrder))
	copy(out, r.relationOrder)
	return out
}

// Sources returns the source configurations in declared processing order.
func (r *Registry) Sources() []*core.SourceConfig {
	out := make([]*core.SourceConfig, len(r.sources))
	copy(out, r.sources)
	return out
}

// Source returns the configuration of the named source.
func (r *Registry) Source(name string) (*core.SourceConfig, bool) {
	i, ok := r.sourceIndex[name]
	if !ok {
		return nil, false
	}
	return r.sources[i], true
}

// Namespace returns the identifier namespace of an entity label.
func (r *Registry) Namespace(label string) string {
	if t, ok := r.entityTypes[label]; ok {
		return t.Namespace
	}
	return ""
}
