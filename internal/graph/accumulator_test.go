package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgraph/internal/testutil"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

func node(label, id string, props core.Properties) core.Node {
	return core.Node{Label: label, ID: id, Properties: props, Origin: core.Origin{Source: "test", Row: 1}}
}

func edge(label, from, to string, props core.Properties, derived bool) core.Edge {
	e := core.Edge{
		Label: label, SourceID: from, TargetID: to,
		Properties: props, Derived: derived,
		Origins: []core.Origin{{Source: "test", Row: 1}},
	}
	return e
}

func TestUpsertNode_Merge(t *testing.T) {
	acc := New(testutil.NewRegistry(t, testutil.PhenotypeSchema))

	require.NoError(t, acc.UpsertNode(node("gene", "TP53", core.Properties{
		"symbol":   core.StringValue("TP53"),
		"synonyms": core.ListValue("P53", "LFS1"),
	})))
	require.NoError(t, acc.UpsertNode(node("gene", "TP53", core.Properties{
		"symbol":      core.StringValue("tp53"),
		"synonyms":    core.ListValue("LFS1", "BCC7"),
		"data_source": core.StringValue("hpo"),
	})))

	snap := acc.Snapshot()
	require.Len(t, snap.Nodes("gene"), 1)
	n, ok := snap.Node("gene", "TP53")
	require.True(t, ok)
	assert.Equal(t, core.Properties{
		"symbol":      core.StringValue("tp53"),
		"synonyms":    core.ListValue("P53", "LFS1", "BCC7"),
		"data_source": core.StringValue("hpo"),
	}, n.Properties)
}

func TestUpsertNode_IdentityConflict(t *testing.T) {
	acc := New(testutil.NewRegistry(t, testutil.PhenotypeSchema))

	require.NoError(t, acc.UpsertNode(node("gene", "X1", nil)))
	err := acc.UpsertNode(core.Node{Label: "disease", ID: "X1", Origin: core.Origin{Source: "omim", Row: 7}})

	var conflict *core.IdentityConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "omim", conflict.Source)
	assert.Equal(t, 7, conflict.Row)
	assert.Equal(t, "gene", conflict.ExistingLabel)
	assert.Equal(t, "disease", conflict.Label)
	assert.Equal(t, 1, acc.Stats().Nodes)
}

func TestUpsertNode_SeparateNamespaces(t *testing.T) {
	acc := New(testutil.NewRegistry(t, `
entity_types:
  - {label: gene, namespace: ncbigene}
  - {label: protein, namespace: uniprot}
`))
	require.NoError(t, acc.UpsertNode(node("gene", "1", nil)))
	require.NoError(t, acc.UpsertNode(node("protein", "1", nil)))
	assert.Equal(t, 2, acc.Stats().Nodes)
}

func TestUpsertEdge_MergesRepeatedSightings(t *testing.T) {
	acc := New(testutil.NewRegistry(t, testutil.PhenotypeSchema))

	require.NoError(t, acc.UpsertEdge(edge("gene_to_disease", "TP53", "D2", nil, false)))
	require.NoError(t, acc.UpsertEdge(edge("gene_to_disease", "TP53", "D2",
		core.Properties{"evidence": core.StringValue("strong")}, false)))

	snap := acc.Snapshot()
	require.Len(t, snap.Edges("gene_to_disease"), 1)
	e, ok := snap.Edge("gene_to_disease", "TP53", "D2")
	require.True(t, ok)
	assert.Equal(t, core.StringValue("strong"), e.Properties["evidence"])
	assert.Equal(t, []string{"test"}, e.SourceNames())
}

func TestUpsertEdge_ExplicitWinsOverDerived(t *testing.T) {
	tests := []struct {
		name  string
		order []bool // derived flags in upsert order
	}{
		{name: "explicit first", order: []bool{false, true}},
		{name: "derived first", order: []bool{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := New(testutil.NewRegistry(t, testutil.PhenotypeSchema))
			for _, derived := range tt.order {
				props := core.Properties{
					"evidence": core.StringValue("curated"),
					"bridge":   core.ListValue("explicit-row"),
				}
				if derived {
					props = core.Properties{
						"evidence": core.StringValue("inferred"),
						"bridge":   core.ListValue("hpo_bridge"),
					}
				}
				require.NoError(t, acc.UpsertEdge(edge("gene_to_disease", "TP53", "D2", props, derived)))
			}

			e, ok := acc.Snapshot().Edge("gene_to_disease", "TP53", "D2")
			require.True(t, ok)
			assert.Equal(t, core.StringValue("curated"), e.Properties["evidence"])
			assert.ElementsMatch(t, []string{"explicit-row", "hpo_bridge"}, e.Properties["bridge"].List)
			assert.False(t, e.Derived)
		})
	}
}

func TestUpsertEdge_DerivedProvenanceAccumulates(t *testing.T) {
	acc := New(testutil.NewRegistry(t, testutil.PhenotypeSchema))
	for _, via := range []string{"D1", "D2", "D1"} {
		require.NoError(t, acc.UpsertEdge(edge("phenotype_to_gene", "HP:0001", "BRCA1",
			core.Properties{"via_disease": core.ListValue(via)}, true)))
	}
	e, ok := acc.Snapshot().Edge("phenotype_to_gene", "HP:0001", "BRCA1")
	require.True(t, ok)
	assert.Equal(t, core.ListValue("D1", "D2"), e.Properties["via_disease"])
	assert.Equal(t, Stats{Edges: 1, DerivedEdges: 1}, acc.Stats())
}

func TestUpsertEdge_MultiEdge(t *testing.T) {
	reg := testutil.NewRegistry(t, `
entity_types: [{label: drug}, {label: gene}]
relation_types:
  - {label: targets, source: drug, target: gene, multi_edge: true, properties: [{name: assay}]}
`)
	acc := New(reg)
	require.NoError(t, acc.UpsertEdge(edge("targets", "D", "G", core.Properties{"assay": core.StringValue("a")}, false)))
	require.NoError(t, acc.UpsertEdge(edge("targets", "D", "G", core.Properties{"assay": core.StringValue("b")}, false)))

	edges := acc.Snapshot().Edges("targets")
	require.Len(t, edges, 2)
	assert.Equal(t, 1, edges[0].Seq)
	assert.Equal(t, 2, edges[1].Seq)
	assert.Equal(t, "a", edges[0].Properties["assay"].Scalar)
}

func TestUpsertEdge_UndeclaredRelation(t *testing.T) {
	acc := New(testutil.NewRegistry(t, testutil.PhenotypeSchema))
	assert.Error(t, acc.UpsertEdge(edge("unknown", "a", "b", nil, false)))
}

func TestMerge_OrderedAndAtomic(t *testing.T) {
	reg := testutil.NewRegistry(t, testutil.PhenotypeSchema)

	run := New(reg)
	first := New(reg)
	require.NoError(t, first.UpsertNode(node("gene", "TP53", core.Properties{"symbol": core.StringValue("first")})))
	require.NoError(t, first.UpsertEdge(edge("gene_to_disease", "TP53", "D2",
		core.Properties{"evidence": core.StringValue("curated")}, false)))

	second := New(reg)
	require.NoError(t, second.UpsertNode(node("gene", "TP53", core.Properties{"symbol": core.StringValue("second")})))
	require.NoError(t, second.UpsertEdge(edge("gene_to_disease", "TP53", "D2",
		core.Properties{"evidence": core.StringValue("inferred")}, true)))

	conflicting := New(reg)
	require.NoError(t, conflicting.UpsertNode(node("disease", "D9", nil)))
	require.NoError(t, conflicting.UpsertNode(node("disease", "TP53", nil)))

	require.NoError(t, run.Merge(first))
	require.NoError(t, run.Merge(second))

	err := run.Merge(conflicting)
	var conflict *core.IdentityConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "TP53", conflict.ID)

	snap := run.Snapshot()
	_, ok := snap.Node("disease", "D9")
	assert.False(t, ok, "a conflicting accumulator contributes nothing")

	n, _ := snap.Node("gene", "TP53")
	assert.Equal(t, "second", n.Properties["symbol"].Scalar, "later sources win scalar conflicts")

	e, _ := snap.Edge("gene_to_disease", "TP53", "D2")
	assert.Equal(t, "curated", e.Properties["evidence"].Scalar, "explicit scalars survive derived merges")
}

func TestSnapshot_DeterministicOrder(t *testing.T) {
	acc := New(testutil.NewRegistry(t, testutil.PhenotypeSchema))
	for _, id := range []string{"Z", "A", "M"} {
		require.NoError(t, acc.UpsertNode(node("gene", id, nil)))
	}
	require.NoError(t, acc.UpsertNode(node("phenotype", "HP:1", nil)))
	require.NoError(t, acc.UpsertNode(node("disease", "D1", nil)))

	snap := acc.Snapshot()
	assert.Equal(t, []string{"gene", "disease", "phenotype"}, snap.NodeLabels())
	var ids []string
	for _, n := range snap.Nodes("gene") {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"A", "M", "Z"}, ids)
	assert.Equal(t, map[string]int{"gene": 3, "phenotype": 1, "disease": 1}, snap.NodeCounts())

	// the snapshot is a copy
	require.NoError(t, acc.UpsertNode(node("gene", "A", core.Properties{"symbol": core.StringValue("changed")})))
	n, _ := snap.Node("gene", "A")
	assert.Empty(t, n.Properties)
}
