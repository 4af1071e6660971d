package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgraph/internal/testutil"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

func newResolver(t *testing.T, doc, source string) *Resolver {
	t.Helper()
	reg := testutil.NewRegistry(t, doc)
	src, ok := reg.Source(source)
	require.True(t, ok)
	r, err := New(reg, src)
	require.NoError(t, err)
	return r
}

func record(row int, fields map[string]string) core.Record {
	return core.Record{Row: row, Fields: fields}
}

func TestResolve_NodesAndConstants(t *testing.T) {
	r := newResolver(t, testutil.PhenotypeSchema, "phenotypes")

	res := r.Resolve(record(2, map[string]string{
		"hpo_id": "HP:0001", "gene": "BRCA1", "disease": "D1", "syn": "BRCC1; RNF53;BRCC1;", "frequency": "0.50",
	}))

	assert.Equal(t, map[string][]string{
		"phenotype": {"HP:0001"},
		"gene":      {"BRCA1"},
		"disease":   {"D1"},
	}, res.Bindings)
	assert.Empty(t, res.Missing)
	require.Len(t, res.Nodes, 2, "reference bindings contribute no node")

	pheno := res.Nodes[0]
	assert.Equal(t, "phenotype", pheno.Label)
	assert.Equal(t, core.StringValue("0.5"), pheno.Properties["frequency"])
	_, hasSource := pheno.Properties["data_source"]
	assert.False(t, hasSource, "constants attach only where declared")
	assert.Equal(t, core.Origin{Source: "phenotypes", Row: 2}, pheno.Origin)

	gene := res.Nodes[1]
	assert.Equal(t, core.ListValue("BRCC1", "RNF53"), gene.Properties["synonyms"])
	assert.Equal(t, core.StringValue("hpo"), gene.Properties["data_source"])
	assert.Equal(t, core.StringValue("BRCA1"), gene.Properties["symbol"])
}

func TestResolve_SkipAndMissingBookkeeping(t *testing.T) {
	r := newResolver(t, testutil.PhenotypeSchema, "phenotypes")

	res := r.Resolve(record(2, map[string]string{"syn": "X"}))
	assert.Empty(t, res.Nodes)
	assert.Empty(t, res.Bindings)

	res = r.Resolve(record(3, map[string]string{"hpo_id": "HP:0002", "gene": "TP53", "frequency": "often"}))
	assert.Equal(t, []string{"disease"}, res.Missing)
	assert.Len(t, res.Nodes, 2)

	stats := r.Stats()
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 1, stats.SkippedRows)
	assert.Equal(t, map[string]int{"disease": 1}, stats.MissingBindings)
	assert.Equal(t, 1, stats.InvalidValues)
}

func TestResolve_ExplicitEdges(t *testing.T) {
	r := newResolver(t, testutil.PhenotypeSchema, "associations")

	res := r.Resolve(record(2, map[string]string{"gene": "TP53", "disease": "D2", "evidence": "strong"}))
	require.Len(t, res.Edges, 1)
	e := res.Edges[0]
	assert.Equal(t, "gene_to_disease", e.Label)
	assert.Equal(t, "gene", e.SourceLabel)
	assert.Equal(t, "TP53", e.SourceID)
	assert.Equal(t, "disease", e.TargetLabel)
	assert.Equal(t, "D2", e.TargetID)
	assert.False(t, e.Derived)
	assert.Equal(t, core.StringValue("strong"), e.Properties["evidence"])

	res = r.Resolve(record(3, map[string]string{"gene": "TP53"}))
	assert.Empty(t, res.Edges)
	assert.Equal(t, 1, r.Stats().EdgesSkipped)
}

const ruleSchema = `
settings:
  identifier_case: upper
  composed_separator: "::"
entity_types:
  - {label: gene}
  - {label: pathway, properties: [{name: name}, {name: size, kind: int}, {name: curated, kind: bool}]}
  - {label: interaction}
relation_types:
  - {label: pathway_has_gene, source: pathway, target: gene, multi_edge: true}
sources:
  - name: wp
    path: wp.gmt
    format: gmt
    entities:
      - binding: pathway
        type: pathway
        id: {column: term, pattern: "(WP\\d+)"}
        properties:
          - {name: name, column: term_name}
          - {name: size}
          - {name: curated}
      - {binding: gene, type: gene, id: {column: genes, each: true}}
      - {binding: pair, type: interaction, id: {compose: [a, b], unordered: true}}
    edges:
      - {relation: pathway_has_gene, from: pathway, to: gene}
`

func TestResolve_IdentifierRules(t *testing.T) {
	r := newResolver(t, ruleSchema, "wp")

	res := r.Resolve(record(1, map[string]string{
		"term":      "Apoptosis wp254",
		"term_name": "Apoptosis",
		"genes":     "tp53|bax|TP53",
		"a":         "p2",
		"b":         "p1",
		"size":      "12",
		"curated":   "1",
	}))

	// pattern is matched before the case policy is applied
	assert.Empty(t, res.Bindings["pathway"])
	assert.Contains(t, res.Missing, "pathway")

	assert.Equal(t, []string{"TP53", "BAX"}, res.Bindings["gene"], "each elements are normalized then deduplicated")
	assert.Equal(t, []string{"P1::P2"}, res.Bindings["pair"], "unordered compose sorts components")

	res = r.Resolve(record(2, map[string]string{
		"term": "Apoptosis WP254", "genes": "TP53|BAX", "size": "12", "curated": "1",
	}))
	assert.Equal(t, []string{"WP254"}, res.Bindings["pathway"])
	require.NotEmpty(t, res.Nodes)
	assert.Equal(t, core.StringValue("12"), res.Nodes[0].Properties["size"])
	assert.Equal(t, core.StringValue("true"), res.Nodes[0].Properties["curated"])

	// one edge per (from × to) id pair
	assert.Len(t, res.Edges, 2)
	_, hasPair := res.Bindings["pair"]
	assert.False(t, hasPair, "an absent compose component leaves the binding absent")
}

func TestResolve_CaseFold(t *testing.T) {
	r := newResolver(t, `
settings: {identifier_case: fold}
entity_types: [{label: gene}]
sources:
  - {name: s, path: f.tsv, entities: [{type: gene, id: {column: g}}]}
`, "s")

	res := r.Resolve(record(1, map[string]string{"g": "BRCA1"}))
	assert.Equal(t, []string{"brca1"}, res.Bindings["gene"])
}

func TestResolve_PreserveIsDefault(t *testing.T) {
	r := newResolver(t, `
entity_types: [{label: gene}]
sources:
  - {name: s, path: f.tsv, entities: [{type: gene, id: {compose: [a, b]}}]}
`, "s")

	res := r.Resolve(record(1, map[string]string{"a": "Zeta", "b": "alpha"}))
	assert.Equal(t, []string{"Zeta:alpha"}, res.Bindings["gene"], "ordered compose keeps column order and case")
}
