package graph

import (
	"cmp"
	"slices"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Snapshot is a read-only copy of an accumulator. Labels iterate in schema
// declaration order; nodes sort by identifier and edges by (source, target, seq).
type Snapshot struct {
	nodeLabels []string
	edgeLabels []string
	nodes      map[string][]*core.Node
	edges      map[string][]*core.Edge
	index      map[core.NodeKey]*core.Node
}

// Snapshot copies the accumulated graph.
func (a *Accumulator) Snapshot() *Snapshot {
	s := &Snapshot{
		nodes: make(map[string][]*core.Node),
		edges: make(map[string][]*core.Edge),
		index: make(map[core.NodeKey]*core.Node, len(a.nodes)),
	}
	for _, n := range a.nodes {
		c := &core.Node{Label: n.Label, ID: n.ID, Properties: n.Properties.Clone(), Origin: n.Origin}
		s.nodes[n.Label] = append(s.nodes[n.Label], c)
		s.index[c.Key()] = c
	}
	for _, entry := range a.edges {
		e := *entry.edge
		e.Properties = e.Properties.Clone()
		e.Origins = slices.Clone(e.Origins)
		s.edges[e.Label] = append(s.edges[e.Label], &e)
	}

	for _, label := range a.reg.EntityLabels() {
		nodes, ok := s.nodes[label]
		if !ok {
			continue
		}
		slices.SortFunc(nodes, func(x, y *core.Node) int { return cmp.Compare(x.ID, y.ID) })
		s.nodeLabels = append(s.nodeLabels, label)
	}
	for _, label := range a.reg.RelationLabels() {
		edges, ok := s.edges[label]
		if !ok {
			continue
		}
		slices.SortFunc(edges, func(x, y *core.Edge) int {
			return cmp.Or(
				cmp.Compare(x.SourceID, y.SourceID),
				cmp.Compare(x.TargetID, y.TargetID),
				cmp.Compare(x.Seq, y.Seq),
			)
		})
		s.edgeLabels = append(s.edgeLabels, label)
	}
	return s
}

// NodeLabels returns the labels that have at least one node.
func (s *Snapshot) NodeLabels() []string {
	return s.nodeLabels
}

// EdgeLabels returns the relation labels that have at least one edge.
func (s *Snapshot) EdgeLabels() []string {
	return s.edgeLabels
}

// Nodes returns the nodes of a label sorted by identifier.
func (s *Snapshot) Nodes(label string) []*core.Node {
	return s.nodes[label]
}

// Edges returns the edges of a relation label.
func (s *Snapshot) Edges(label string) []*core.Edge {
	return s.edges[label]
}

// Node looks up a node by label and identifier.
func (s *Snapshot) Node(label, id string) (*core.Node, bool) {
	n, ok := s.index[core.NodeKey{Label: label, ID: id}]
	return n, ok
}

// Edge looks up a non-parallel edge by its key.
func (s *Snapshot) Edge(label, sourceID, targetID string) (*core.Edge, bool) {
	for _, e := range s.edges[label] {
		if e.SourceID == sourceID && e.TargetID == targetID {
			return e, true
		}
	}
	return nil, false
}

// NodeCounts returns the number of nodes per label.
func (s *Snapshot) NodeCounts() map[string]int {
	out := make(map[string]int, len(s.nodes))
	for label, nodes := range s.nodes {
		out[label] = len(nodes)
	}
	return out
}

// EdgeCounts returns the number of edges per relation label.
func (s *Snapshot) EdgeCounts() map[string]int {
	out := make(map[string]int, len(s.edges))
	for label, edges := range s.edges {
		out[label] = len(edges)
	}
	return out
}
