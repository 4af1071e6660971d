package testutil

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgraph/internal/schema"
)

// PhenotypeSchema is a small phenotype/gene/disease schema shared by tests.
// Disease nodes only come from the "diseases" source; the other sources
// reference them.
const PhenotypeSchema = `
entity_types:
  - label: gene
    properties:
      - {name: symbol}
      - {name: synonyms, kind: list}
      - {name: data_source}
  - label: disease
    properties:
      - {name: name}
      - {name: data_source}
  - label: phenotype
    properties:
      - {name: name}
      - {name: frequency, kind: float}

relation_types:
  - label: gene_to_disease
    source: gene
    target: disease
    origin: mixed
    properties:
      - {name: evidence}
      - {name: data_source}
  - {label: phenotype_to_gene, source: phenotype, target: gene, origin: derived}
  - {label: phenotype_to_disease, source: phenotype, target: disease, origin: derived}

sources:
  - name: diseases
    path: diseases.tsv
    entities:
      - binding: disease
        type: disease
        id: {column: disease_id}
        properties:
          - {name: name, column: disease_name}

  - name: phenotypes
    path: g2p.tsv
    constants: {data_source: hpo}
    entities:
      - binding: phenotype
        type: phenotype
        id: {column: hpo_id}
        properties:
          - {name: frequency}
      - binding: gene
        type: gene
        id: {column: gene}
        properties:
          - {name: symbol, column: gene}
          - {name: synonyms, column: syn, separator: ";"}
      - binding: disease
        type: disease
        id: {column: disease}
        reference: true
    bridges:
      - name: hpo_bridge
        bindings: [phenotype, gene, disease]
        pairs:
          - {from: phenotype, to: gene, relation: phenotype_to_gene, via: disease}
          - {from: phenotype, to: disease, relation: phenotype_to_disease}

  - name: associations
    path: g2d.tsv
    entities:
      - {binding: gene, type: gene, id: {column: gene}}
      - {binding: disease, type: disease, id: {column: disease}, reference: true}
    edges:
      - relation: gene_to_disease
        from: gene
        to: disease
        properties:
          - {name: evidence}
`

// PhenotypeInputs holds input files matching PhenotypeSchema.
func PhenotypeInputs() fstest.MapFS {
	return fstest.MapFS{
		"diseases.tsv": {Data: []byte("disease_id\tdisease_name\nD1\tBreast cancer\nD2\tLi-Fraumeni syndrome\n")},
		"g2p.tsv":      {Data: []byte("hpo_id\tgene\tdisease\tsyn\tfrequency\nHP:0001\tBRCA1\tD1\tBRCC1;RNF53\t0.5\nHP:0002\tTP53\t\t\t\n")},
		"g2d.tsv":      {Data: []byte("gene\tdisease\tevidence\nTP53\tD2\t\nTP53\tD2\tstrong\n")},
	}
}

// NewRegistry parses a schema document, failing the test on error.
func NewRegistry(t testing.TB, doc string) *schema.Registry {
	t.Helper()
	reg, err := schema.Parse([]byte(doc))
	require.NoError(t, err)
	return reg
}
