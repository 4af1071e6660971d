// Package resolver maps raw records onto typed nodes and explicit edges using
// the column bindings of one source.
package resolver

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapgraph/internal/schema"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Resolution is everything one record contributes.
type Resolution struct {
	// Bindings maps present binding names to their resolved identifiers
	Bindings map[string][]string
	Nodes    []core.Node
	Edges    []core.Edge
	// Missing lists bindings the record could not resolve, in declared order
	Missing []string
}

// Stats is the per-source skip bookkeeping.
type Stats struct {
	Rows            int
	SkippedRows     int
	MissingBindings map[string]int
	EdgesSkipped    int
	InvalidValues   int
}

// Resolver resolves the records of one source. Not safe for concurrent use.
type Resolver struct {
	reg      *schema.Registry
	src      *core.SourceConfig
	settings core.Settings

	// patterns holds compiled identifier patterns by binding name
	patterns map[string]*regexp.Regexp
	caser    *cases.Caser
	stats    Stats
}

// New prepares a resolver for src.
func New(reg *schema.Registry, src *core.SourceConfig) (*Resolver, error) {
	r := &Resolver{
		reg:      reg,
		src:      src,
		settings: reg.Settings(),
		patterns: make(map[string]*regexp.Regexp),
		stats:    Stats{MissingBindings: make(map[string]int)},
	}
	for _, eb := range src.Entities {
		if eb.ID.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(eb.ID.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern of binding %s: %w", eb.Binding, err)
		}
		r.patterns[eb.Binding] = re
	}
	switch r.settings.IdentifierCase {
	case core.CaseFold:
		c := cases.Fold()
		r.caser = &c
	case core.CaseUpper:
		c := cases.Upper(language.Und)
		r.caser = &c
	}
	return r, nil
}

// Stats returns the bookkeeping accumulated so far.
func (r *Resolver) Stats() Stats {
	s := r.stats
	s.MissingBindings = maps.Clone(r.stats.MissingBindings)
	return s
}

// Resolve maps one record. A record whose bindings are all absent yields an
// empty resolution and is counted as skipped.
func (r *Resolver) Resolve(rec core.Record) *Resolution {
	r.stats.Rows++
	res := &Resolution{Bindings: make(map[string][]string, len(r.src.Entities))}
	origin := core.Origin{Source: r.src.Name, Row: rec.Row}

	for i := range r.src.Entities {
		eb := &r.src.Entities[i]
		ids := r.identifiers(eb, rec)
		if len(ids) == 0 {
			res.Missing = append(res.Missing, eb.Binding)
			continue
		}
		res.Bindings[eb.Binding] = ids
	}

	if len(res.Bindings) == 0 {
		r.stats.SkippedRows++
		return res
	}
	for _, b := range res.Missing {
		r.stats.MissingBindings[b]++
	}

	for i := range r.src.Entities {
		eb := &r.src.Entities[i]
		ids, ok := res.Bindings[eb.Binding]
		if !ok || eb.Reference {
			continue
		}
		t, _ := r.reg.EntityType(eb.Type)
		props := r.properties(eb.Properties, t.Property, rec)
		r.applyConstants(props, t.Property)
		for _, id := range ids {
			res.Nodes = append(res.Nodes, core.Node{
				Label:      eb.Type,
				ID:         id,
				Properties: props.Clone(),
				Origin:     origin,
			})
		}
	}

	for _, e := range r.src.Edges {
		from, fok := res.Bindings[e.From]
		to, tok := res.Bindings[e.To]
		if !fok || !tok {
			r.stats.EdgesSkipped++
			continue
		}
		rel, _ := r.reg.RelationType(e.Relation)
		props := r.properties(e.Properties, rel.Property, rec)
		r.applyConstants(props, rel.Property)
		fromType := r.bindingType(e.From)
		toType := r.bindingType(e.To)
		for _, f := range from {
			for _, t := range to {
				res.Edges = append(res.Edges, core.Edge{
					Label:       e.Relation,
					SourceLabel: fromType,
					SourceID:    f,
					TargetLabel: toType,
					TargetID:    t,
					Properties:  props.Clone(),
					Origins:     []core.Origin{origin},
				})
			}
		}
	}
	return res
}

func (r *Resolver) bindingType(binding string) string {
	if eb, ok := r.src.Entity(binding); ok {
		return eb.Type
	}
	return ""
}

// identifiers applies the binding's identifier rule. Absent components yield nil.
func (r *Resolver) identifiers(eb *core.EntityBinding, rec core.Record) []string {
	rule := eb.ID
	if len(rule.Compose) > 0 {
		parts := make([]string, 0, len(rule.Compose))
		for _, col := range rule.Compose {
			v, ok := rec.Get(col)
			if !ok {
				return nil
			}
			parts = append(parts, r.normalize(v))
		}
		if rule.Unordered {
			slices.Sort(parts)
		}
		return []string{strings.Join(parts, r.settings.ComposedSeparator)}
	}

	raw, ok := rec.Get(rule.Column)
	if !ok {
		return nil
	}
	candidates := []string{raw}
	if rule.Each {
		candidates = splitList(raw, rule.Separator)
	}
	re := r.patterns[eb.Binding]
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if re != nil {
			m := re.FindStringSubmatch(c)
			if len(m) < 2 || m[1] == "" {
				continue
			}
			c = m[1]
		}
		ids = append(ids, r.normalize(c))
	}
	return core.UniqueStrings(ids)
}

func (r *Resolver) normalize(id string) string {
	if r.caser == nil {
		return id
	}
	return r.caser.String(id)
}

func (r *Resolver) properties(bindings []core.PropertyBinding, lookup func(string) (core.PropertyDef, bool), rec core.Record) core.Properties {
	props := make(core.Properties, len(bindings))
	for _, pb := range bindings {
		raw, ok := rec.Get(pb.Column)
		if !ok {
			continue
		}
		def, _ := lookup(pb.Name)
		v, ok := convert(def.Kind, raw, pb.Separator)
		if !ok {
			if def.Kind != core.KindList {
				r.stats.InvalidValues++
			}
			continue
		}
		if cur, exists := props[pb.Name]; exists {
			v = cur.Union(v)
		}
		props[pb.Name] = v
	}
	return props
}

// applyConstants attaches source constants declared by the owning type.
// Values read from the record take precedence.
func (r *Resolver) applyConstants(props core.Properties, lookup func(string) (core.PropertyDef, bool)) {
	for name, raw := range r.src.Constants {
		def, ok := lookup(name)
		if !ok {
			continue
		}
		if _, set := props[name]; set {
			continue
		}
		if v, ok := convert(def.Kind, raw, schema.DefaultListSeparator); ok {
			props[name] = v
		}
	}
}
