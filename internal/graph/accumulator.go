// Package graph holds the run-scoped node and edge store of one build.
//
// An Accumulator is owned by exactly one goroutine: each source pipeline
// fills its own, and the engine merges them sequentially in declared source
// order before export.
package graph

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapgraph/internal/schema"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// identityKey scopes identifiers to an entity namespace.
type identityKey struct {
	namespace string
	id        string
}

type identity struct {
	label  string
	origin core.Origin
}

// edgeEntry tracks which scalar properties an explicit sighting wrote, so
// later derived sightings cannot overwrite them.
type edgeEntry struct {
	edge     *core.Edge
	explicit map[string]struct{}
}

// Stats summarizes an accumulator's content.
type Stats struct {
	Nodes        int
	Edges        int
	DerivedEdges int
}

// Accumulator is a single-writer store of nodes and edges. Not safe for
// concurrent use.
type Accumulator struct {
	reg *schema.Registry

	nodes     map[core.NodeKey]*core.Node
	nodeOrder []core.NodeKey

	// identities maps (namespace, id) to the label that first claimed it
	identities map[identityKey]identity

	edges     map[core.EdgeKey]*edgeEntry
	edgeOrder []core.EdgeKey

	// parallel counts multi-edge sightings per (label, source, target)
	parallel map[core.EdgeKey]int
}

// New returns an empty accumulator for the schema.
func New(reg *schema.Registry) *Accumulator {
	return &Accumulator{
		reg:        reg,
		nodes:      make(map[core.NodeKey]*core.Node),
		identities: make(map[identityKey]identity),
		edges:      make(map[core.EdgeKey]*edgeEntry),
		parallel:   make(map[core.EdgeKey]int),
	}
}

// checkIdentity returns an *core.IdentityConflictError when n's identifier is
// already claimed by another label of the same namespace.
func (a *Accumulator) checkIdentity(n *core.Node) (identityKey, error) {
	t, ok := a.reg.EntityType(n.Label)
	if !ok {
		return identityKey{}, fmt.Errorf("undeclared entity type %q", n.Label)
	}
	key := identityKey{namespace: t.Namespace, id: n.ID}
	if prev, ok := a.identities[key]; ok && prev.label != n.Label {
		return key, &core.IdentityConflictError{
			Source:        n.Origin.Source,
			Row:           n.Origin.Row,
			Namespace:     t.Namespace,
			ID:            n.ID,
			ExistingLabel: prev.label,
			Label:         n.Label,
		}
	}
	return key, nil
}

// UpsertNode inserts n or merges its properties into the existing node of the
// same (label, id): union of keys, scalars last-writer-wins, lists unioned.
func (a *Accumulator) UpsertNode(n core.Node) error {
	key, err := a.checkIdentity(&n)
	if err != nil {
		return err
	}
	a.applyNode(key, &n)
	return nil
}

func (a *Accumulator) applyNode(ik identityKey, n *core.Node) {
	if _, ok := a.identities[ik]; !ok {
		a.identities[ik] = identity{label: n.Label, origin: n.Origin}
	}
	nk := n.Key()
	if cur, ok := a.nodes[nk]; ok {
		cur.Properties.Merge(n.Properties)
		return
	}
	stored := &core.Node{Label: n.Label, ID: n.ID, Properties: n.Properties.Clone(), Origin: n.Origin}
	if stored.Properties == nil {
		stored.Properties = core.Properties{}
	}
	a.nodes[nk] = stored
	a.nodeOrder = append(a.nodeOrder, nk)
}

// UpsertEdge inserts e or merges it into the edge with the same key. Derived
// sightings (e.Derived) never overwrite scalars written by an explicit
// sighting; list properties always accumulate. Multi-edge relations keep
// every explicit sighting as a parallel edge.
func (a *Accumulator) UpsertEdge(e core.Edge) error {
	rel, ok := a.reg.RelationType(e.Label)
	if !ok {
		return fmt.Errorf("undeclared relation type %q", e.Label)
	}
	explicit := func(string) bool { return !e.Derived }
	a.applyEdge(rel, &e, explicit)
	return nil
}

func (a *Accumulator) applyEdge(rel *core.RelationType, e *core.Edge, explicit func(string) bool) {
	if rel.MultiEdge && !e.Derived {
		base := core.EdgeKey{Label: e.Label, SourceID: e.SourceID, TargetID: e.TargetID}
		a.parallel[base]++
		e.Seq = a.parallel[base]
	} else {
		e.Seq = 0
	}

	key := e.Key()
	entry, ok := a.edges[key]
	if !ok {
		stored := *e
		stored.Properties = core.Properties{}
		stored.Origins = nil
		entry = &edgeEntry{edge: &stored, explicit: make(map[string]struct{})}
		a.edges[key] = entry
		a.edgeOrder = append(a.edgeOrder, key)
	} else {
		entry.edge.Derived = entry.edge.Derived && e.Derived
	}

	for k, v := range e.Properties {
		cur, exists := entry.edge.Properties[k]
		switch {
		case !exists:
			entry.edge.Properties[k] = v.Clone()
		case cur.IsList && v.IsList:
			entry.edge.Properties[k] = cur.Union(v)
		case explicit(k):
			entry.edge.Properties[k] = v.Clone()
		default:
			if _, pinned := entry.explicit[k]; !pinned {
				entry.edge.Properties[k] = v.Clone()
			}
		}
		if explicit(k) && !v.IsList {
			entry.explicit[k] = struct{}{}
		}
	}

	for _, o := range e.Origins {
		if !hasSource(entry.edge.Origins, o.Source) {
			entry.edge.Origins = append(entry.edge.Origins, o)
		}
	}
}

func hasSource(origins []core.Origin, source string) bool {
	for _, o := range origins {
		if o.Source == source {
			return true
		}
	}
	return false
}

// Merge folds other into a. Identity conflicts are checked for every node
// before anything is applied, so a conflicting accumulator contributes
// nothing. The returned error joins every conflict found.
func (a *Accumulator) Merge(other *Accumulator) error {
	keys := make([]identityKey, len(other.nodeOrder))
	var errs []error
	for i, nk := range other.nodeOrder {
		key, err := a.checkIdentity(other.nodes[nk])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		keys[i] = key
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for i, nk := range other.nodeOrder {
		a.applyNode(keys[i], other.nodes[nk])
	}
	for _, ek := range other.edgeOrder {
		entry := other.edges[ek]
		rel, ok := a.reg.RelationType(ek.Label)
		if !ok {
			continue
		}
		e := *entry.edge
		pinned := entry.explicit
		derived := e.Derived
		a.applyEdge(rel, &e, func(k string) bool {
			if derived {
				return false
			}
			_, ok := pinned[k]
			return ok
		})
	}
	return nil
}

// Stats counts the accumulated content.
func (a *Accumulator) Stats() Stats {
	s := Stats{Nodes: len(a.nodes), Edges: len(a.edges)}
	for _, entry := range a.edges {
		if entry.edge.Derived {
			s.DerivedEdges++
		}
	}
	return s
}
