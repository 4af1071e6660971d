package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

const baseTypes = `
entity_types:
  - {label: gene, properties: [{name: symbol}, {name: synonyms, kind: list}]}
  - {label: disease}
  - {label: phenotype}
relation_types:
  - {label: gene_to_disease, source: gene, target: disease, origin: mixed}
  - {label: gene_to_phenotype, source: gene, target: phenotype, origin: derived}
  - {label: disease_to_phenotype, source: disease, target: phenotype}
`

func configErrors(t *testing.T, err error) []*core.ConfigurationError {
	t.Helper()
	require.Error(t, err)
	var out []*core.ConfigurationError
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			var ce *core.ConfigurationError
			if errors.As(e, &ce) {
				out = append(out, ce)
			}
		}
		return out
	}
	var ce *core.ConfigurationError
	require.ErrorAs(t, err, &ce)
	return []*core.ConfigurationError{ce}
}

func TestLoad_Testdata(t *testing.T) {
	reg, err := Load("testdata/hpo.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"named_thing", "gene", "disease", "phenotype"}, reg.EntityLabels())
	assert.Equal(t, []string{
		"gene_to_disease_association",
		"disease_to_phenotype_association",
		"gene_to_phenotype_association",
	}, reg.RelationLabels())

	gene, ok := reg.EntityType("gene")
	require.True(t, ok)
	assert.True(t, gene.IsSubtypeOf("named_thing"))
	names := make([]string, 0)
	for _, p := range gene.AllProperties() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"name", "data_source", "synonyms"}, names, "inherited properties come first")

	src, ok := reg.Source("hpo_genes_to_phenotype")
	require.True(t, ok)
	assert.Equal(t, core.FormatDelimited, src.Format)
	assert.Equal(t, "\t", src.Delimiter)
	assert.True(t, src.Header)
	require.Len(t, src.Bridges, 1)
	assert.Equal(t, "via_disease", src.Bridges[0].Pairs[0].Provenance)
	assert.Equal(t, "via_phenotype", src.Bridges[0].Pairs[1].Provenance)

	disease, ok := src.Entity("disease")
	require.True(t, ok)
	assert.True(t, disease.Reference)

	// provenance is auto-declared as a list on the derived relation
	rel, ok := reg.RelationType("gene_to_phenotype_association")
	require.True(t, ok)
	def, ok := rel.Property("via_disease")
	require.True(t, ok)
	assert.Equal(t, core.KindList, def.Kind)

	sources := reg.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "hpo_annotations", sources[0].Name)
}

func TestParse_Defaults(t *testing.T) {
	reg, err := Parse([]byte(baseTypes + `
sources:
  - name: obo
    path: hp.obo
    format: obo
    entities:
      - {type: phenotype, id: {column: id}}
  - name: sets
    path: wp.gmt
    format: gmt
    entities:
      - {binding: pathway_gene, type: gene, id: {column: genes, each: true}}
`))
	require.NoError(t, err)

	assert.Equal(t, core.CasePreserve, reg.Settings().IdentifierCase)
	assert.Equal(t, ":", reg.Settings().ComposedSeparator)

	obo, _ := reg.Source("obo")
	assert.Equal(t, "Term", obo.Stanza)
	assert.Equal(t, "", obo.Comment)
	require.Len(t, obo.Entities, 1)
	assert.Equal(t, "phenotype", obo.Entities[0].Binding, "binding defaults to the type label")

	sets, _ := reg.Source("sets")
	assert.False(t, sets.Header)
	assert.Equal(t, "|", sets.Entities[0].ID.Separator)
}

func TestParse_UnknownKeysRejected(t *testing.T) {
	_, err := Parse([]byte(baseTypes + `
sources:
  - name: s
    path: f.tsv
    colums: [a]
`))
	errs := configErrors(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "colums")
}

func TestParse_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantPath string
		wantMsg  string
	}{
		{
			name: "bridge references undeclared binding",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    entities:
      - {binding: gene, type: gene, id: {column: g}}
      - {binding: phenotype, type: phenotype, id: {column: p}}
    bridges:
      - name: r
        bindings: [gene, phenotype, drug]
        pairs:
          - {from: gene, to: phenotype, relation: gene_to_phenotype}
`,
			wantPath: "sources[s].bridges[0].bindings[2]",
			wantMsg:  `undeclared binding "drug"`,
		},
		{
			name: "binding references undeclared entity type",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    entities:
      - {binding: drug, type: chemical, id: {column: d}}
`,
			wantPath: "sources[s].entities[0].type",
			wantMsg:  `undeclared entity type "chemical"`,
		},
		{
			name: "conflicting kinds in shared namespace",
			yaml: `
entity_types:
  - {label: gene, namespace: ncbi, properties: [{name: score, kind: int}]}
  - {label: protein, namespace: ncbi, properties: [{name: score, kind: float}]}
`,
			wantPath: "entity_types.protein.properties.score",
			wantMsg:  `in namespace "ncbi"`,
		},
		{
			name: "subtype endpoint in another namespace",
			yaml: `
entity_types:
  - {label: named_thing}
  - {label: gene, namespace: gene, is_a: named_thing}
  - {label: disease}
relation_types:
  - {label: related_to, source: named_thing, target: disease}
`,
			wantPath: "relation_types.related_to.source",
			wantMsg:  `subtype "gene" uses "gene"`,
		},
		{
			name: "is_a cycle",
			yaml: `
entity_types:
  - {label: a, is_a: b}
  - {label: b, is_a: a}
`,
			wantPath: "entity_types[0].is_a",
			wantMsg:  "is_a cycle",
		},
		{
			name: "unknown parent",
			yaml: `
entity_types:
  - {label: a, is_a: ghost}
`,
			wantPath: "entity_types[0].is_a",
			wantMsg:  `undeclared type "ghost"`,
		},
		{
			name: "derived pair on explicit-only relation",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    entities:
      - {binding: disease, type: disease, id: {column: d}}
      - {binding: phenotype, type: phenotype, id: {column: p}}
    bridges:
      - name: r
        pairs:
          - {from: disease, to: phenotype, relation: disease_to_phenotype}
`,
			wantPath: "sources[s].bridges[0].pairs[0].relation",
			wantMsg:  "explicit-only",
		},
		{
			name: "explicit edge on derived-only relation",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    entities:
      - {binding: gene, type: gene, id: {column: g}}
      - {binding: phenotype, type: phenotype, id: {column: p}}
    edges:
      - {relation: gene_to_phenotype, from: gene, to: phenotype}
`,
			wantPath: "sources[s].edges[0].relation",
			wantMsg:  "derived-only",
		},
		{
			name: "endpoint type mismatch",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    entities:
      - {binding: gene, type: gene, id: {column: g}}
      - {binding: other, type: phenotype, id: {column: p}}
    edges:
      - {relation: gene_to_disease, from: gene, to: other}
`,
			wantPath: "sources[s].edges[0].to",
			wantMsg:  `expects "disease"`,
		},
		{
			name: "undeclared property",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    entities:
      - {binding: gene, type: gene, id: {column: g}, properties: [{name: weight}]}
`,
			wantPath: "sources[s].entities[0].properties[0]",
			wantMsg:  `"weight" is not declared`,
		},
		{
			name: "pattern without capture group",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    entities:
      - {binding: gene, type: gene, id: {column: g, pattern: "WP\\d+"}}
`,
			wantPath: "sources[s].entities[0].id.pattern",
			wantMsg:  "no capture group",
		},
		{
			name: "constant not declared",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    constants: {data_source: hpo}
    entities:
      - {binding: gene, type: gene, id: {column: g}}
`,
			wantPath: "sources[s].constants.data_source",
			wantMsg:  "not declared",
		},
		{
			name: "headerless source without columns",
			yaml: baseTypes + `
sources:
  - name: s
    path: f.tsv
    header: false
`,
			wantPath: "sources[s].columns",
			wantMsg:  "columns are required",
		},
		{
			name:     "unknown identifier case",
			yaml:     "settings: {identifier_case: lower}\n",
			wantPath: "settings.identifier_case",
			wantMsg:  `"lower"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			errs := configErrors(t, err)
			var found bool
			for _, e := range errs {
				if e.Path == tt.wantPath && strings.Contains(e.Message, tt.wantMsg) {
					found = true
				}
			}
			assert.True(t, found, "expected %s: %s in %v", tt.wantPath, tt.wantMsg, err)
		})
	}
}

func TestParse_CollectsAllErrors(t *testing.T) {
	_, err := Parse([]byte(`
entity_types:
  - {label: gene, properties: [{name: x, kind: blob}]}
  - {label: gene}
relation_types:
  - {label: r, source: gene, target: nowhere}
`))
	errs := configErrors(t, err)
	assert.Len(t, errs, 3)
}

func TestParse_ProvenanceMustBeList(t *testing.T) {
	_, err := Parse([]byte(`
entity_types:
  - {label: gene}
  - {label: phenotype}
  - {label: disease}
relation_types:
  - {label: g2p, source: gene, target: phenotype, origin: derived, properties: [{name: via_disease, kind: string}]}
sources:
  - name: s
    path: f.tsv
    entities:
      - {type: gene, id: {column: g}}
      - {type: phenotype, id: {column: p}}
      - {type: disease, id: {column: d}}
    bridges:
      - name: r
        pairs: [{from: gene, to: phenotype, relation: g2p, via: disease}]
`))
	errs := configErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "sources[s].bridges[0].pairs[0].provenance", errs[0].Path)
}

func TestParse_SubtypeEndpoints(t *testing.T) {
	reg, err := Parse([]byte(`
entity_types:
  - {label: named_thing}
  - {label: gene, is_a: named_thing}
  - {label: disease}
relation_types:
  - {label: related_to, source: named_thing, target: disease}
sources:
  - name: s
    path: f.tsv
    entities:
      - {type: gene, id: {column: g}}
      - {type: disease, id: {column: d}}
    edges:
      - {relation: related_to, from: gene, to: disease}
`))
	require.NoError(t, err)
	src, _ := reg.Source("s")
	assert.Len(t, src.Edges, 1)
}

func TestParse_SubtypeEndpointsShareNamespace(t *testing.T) {
	reg, err := Parse([]byte(`
entity_types:
  - {label: named_thing, namespace: biolink}
  - {label: gene, namespace: biolink, is_a: named_thing}
  - {label: disease, namespace: biolink, is_a: named_thing}
relation_types:
  - {label: related_to, source: named_thing, target: named_thing}
`))
	require.NoError(t, err)
	assert.Equal(t, "biolink", reg.Namespace("gene"))
}

func TestParse_NTriplesSource(t *testing.T) {
	reg, err := Parse([]byte(`
entity_types:
  - {label: descriptor, properties: [{name: label}, {name: treeNumber, kind: list}]}
sources:
  - name: mesh
    path: mesh.nt.gz
    format: nt
    entities:
      - type: descriptor
        id: {column: id}
        properties: [{name: label}, {name: treeNumber}]
`))
	require.NoError(t, err)
	src, ok := reg.Source("mesh")
	require.True(t, ok)
	assert.Equal(t, core.FormatNTriples, src.Format)
	assert.Equal(t, DefaultComment, src.Comment)
}
