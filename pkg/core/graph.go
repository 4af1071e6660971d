package core

import "slices"

// Value is a property value: a scalar string or an ordered list of strings.
// Typed scalars (int, float, bool) are carried as validated strings.
type Value struct {
	Scalar string
	List   []string
	IsList bool
}

// StringValue returns a scalar value.
func StringValue(s string) Value {
	return Value{Scalar: s}
}

// ListValue returns a list value with duplicates removed, keeping first appearance.
func ListValue(items ...string) Value {
	return Value{List: UniqueStrings(items), IsList: true}
}

// Union merges next into v. Lists are unioned preserving first appearance;
// scalars are replaced by next (last writer wins).
func (v Value) Union(next Value) Value {
	if v.IsList && next.IsList {
		merged := make([]string, 0, len(v.List)+len(next.List))
		merged = append(merged, v.List...)
		merged = append(merged, next.List...)
		return ListValue(merged...)
	}
	return next.Clone()
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	if v.IsList {
		return Value{List: slices.Clone(v.List), IsList: true}
	}
	return v
}

// Equal reports whether two values hold the same content.
func (v Value) Equal(o Value) bool {
	if v.IsList != o.IsList {
		return false
	}
	if v.IsList {
		return slices.Equal(v.List, o.List)
	}
	return v.Scalar == o.Scalar
}

// Properties maps property names to values.
type Properties map[string]Value

// Clone returns a deep copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v.Clone()
	}
	return out
}

// Merge folds other into p: union of keys, last writer wins on scalars,
// union on lists.
func (p Properties) Merge(other Properties) {
	for k, v := range other {
		if cur, ok := p[k]; ok {
			p[k] = cur.Union(v)
			continue
		}
		p[k] = v.Clone()
	}
}

// UniqueStrings removes duplicates keeping first appearance order.
func UniqueStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Origin locates the record that produced an instance.
type Origin struct {
	Source string
	Row    int
}

// Record is one raw field map read from a source. Absent values have no key.
type Record struct {
	// Row is the 1-based line number where the record starts
	Row    int
	Fields map[string]string
}

// Get returns a present field value.
func (r Record) Get(column string) (string, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// Node is one entity instance.
type Node struct {
	Label      string
	ID         string
	Properties Properties
	Origin     Origin
}

// NodeKey identifies a node within a snapshot.
type NodeKey struct {
	Label string
	ID    string
}

// Key returns the node's identity.
func (n *Node) Key() NodeKey {
	return NodeKey{Label: n.Label, ID: n.ID}
}

// Edge is one relation instance.
type Edge struct {
	Label       string
	SourceLabel string
	SourceID    string
	TargetLabel string
	TargetID    string
	// Seq distinguishes parallel edges of multi-edge relation types
	Seq        int
	Properties Properties
	// Origins lists every source that contributed the edge, first sighting first
	Origins []Origin
	// Derived is true while only bridge rules produced the edge
	Derived bool
}

// EdgeKey identifies an edge within a snapshot.
type EdgeKey struct {
	Label    string
	SourceID string
	TargetID string
	Seq      int
}

// Key returns the edge's uniqueness key.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Label: e.Label, SourceID: e.SourceID, TargetID: e.TargetID, Seq: e.Seq}
}

// SourceNames returns the distinct contributing source names in sighting order.
func (e *Edge) SourceNames() []string {
	names := make([]string, 0, len(e.Origins))
	for _, o := range e.Origins {
		names = append(names, o.Source)
	}
	return UniqueStrings(names)
}
