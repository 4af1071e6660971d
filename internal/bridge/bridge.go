// Package bridge synthesizes derived edges implied by entities that co-occur
// in one record.
//
// A bridge rule enumerates its pairs explicitly. Each pair is checked on its
// own: it is emitted only when its from, to and via bindings are all present,
// so a row missing one binding still yields every pair that does not need it.
package bridge

import (
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Synthesizer expands bridge rules for one source.
type Synthesizer struct {
	rules []core.BridgeRule
	// types maps binding names to entity labels
	types map[string]string
}

// New returns a synthesizer for the bridge rules of src.
func New(src *core.SourceConfig) *Synthesizer {
	s := &Synthesizer{
		rules: src.Bridges,
		types: make(map[string]string, len(src.Entities)),
	}
	for _, eb := range src.Entities {
		s.types[eb.Binding] = eb.Type
	}
	return s
}

// Empty reports whether the source declares no bridge rules.
func (s *Synthesizer) Empty() bool {
	return len(s.rules) == 0
}

// Synthesize returns the derived edges implied by one record's resolved
// bindings. Each edge carries its pair's provenance property as a list of
// the via binding's identifiers, or the rule name when the pair has no via.
// Edges repeated within the record are returned once.
func (s *Synthesizer) Synthesize(bindings map[string][]string, origin core.Origin) []core.Edge {
	var out []core.Edge
	seen := make(map[core.EdgeKey]int)

	for _, rule := range s.rules {
		for _, pair := range rule.Pairs {
			if !present(bindings, pair.Requires()) {
				continue
			}
			provenance := core.ListValue(rule.Name)
			if pair.Via != "" {
				provenance = core.ListValue(bindings[pair.Via]...)
			}
			fromLabel, toLabel := s.types[pair.From], s.types[pair.To]

			for _, from := range bindings[pair.From] {
				for _, to := range bindings[pair.To] {
					if from == to && fromLabel == toLabel {
						continue
					}
					edge := core.Edge{
						Label:       pair.Relation,
						SourceLabel: fromLabel,
						SourceID:    from,
						TargetLabel: toLabel,
						TargetID:    to,
						Properties:  core.Properties{pair.Provenance: provenance.Clone()},
						Origins:     []core.Origin{origin},
						Derived:     true,
					}
					if i, dup := seen[edge.Key()]; dup {
						out[i].Properties.Merge(edge.Properties)
						continue
					}
					seen[edge.Key()] = len(out)
					out = append(out, edge)
				}
			}
		}
	}
	return out
}

func present(bindings map[string][]string, required []string) bool {
	for _, b := range required {
		if len(bindings[b]) == 0 {
			return false
		}
	}
	return true
}
