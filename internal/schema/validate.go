package schema

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"unicode/utf8"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// builder converts a decoded document into a Registry, collecting every
// configuration error instead of stopping at the first.
type builder struct {
	reg  *Registry
	errs []error
}

func newBuilder() *builder {
	return &builder{
		reg: &Registry{
			entityTypes:   make(map[string]*core.EntityType),
			relationTypes: make(map[string]*core.RelationType),
			sourceIndex:   make(map[string]int),
		},
	}
}

func (b *builder) fail(path, format string, args ...any) {
	b.errs = append(b.errs, &core.ConfigurationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (b *builder) build(doc *document) *Registry {
	b.settings(doc.Settings)
	b.entityTypes(doc.EntityTypes)
	b.resolveInheritance(doc.EntityTypes)
	b.checkNamespaces()
	b.relationTypes(doc.RelationTypes)
	b.checkEndpointNamespaces()
	for i := range doc.Sources {
		b.source(i, &doc.Sources[i])
	}
	return b.reg
}

func (b *builder) settings(doc settingsDoc) {
	s := core.Settings{
		IdentifierCase:     core.IdentifierCase(doc.IdentifierCase),
		ComposedSeparator:  doc.ComposedSeparator,
		ProvenanceProperty: doc.ProvenanceProperty,
	}
	applySettingsDefaults(&s)
	switch s.IdentifierCase {
	case core.CasePreserve, core.CaseFold, core.CaseUpper:
	default:
		b.fail("settings.identifier_case", "unknown identifier case %q (want preserve, fold or upper)", s.IdentifierCase)
	}
	b.reg.settings = s
}

func (b *builder) properties(path string, docs []propertyDoc) []core.PropertyDef {
	defs := make([]core.PropertyDef, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		p := fmt.Sprintf("%s.properties[%d]", path, i)
		if d.Name == "" {
			b.fail(p, "property name is required")
			continue
		}
		if _, dup := seen[d.Name]; dup {
			b.fail(p, "duplicate property %q", d.Name)
			continue
		}
		seen[d.Name] = struct{}{}
		kind := core.ValueKind(d.Kind)
		if kind == "" {
			kind = core.KindString
		}
		if !kind.Valid() {
			b.fail(p, "unknown value kind %q for property %q", d.Kind, d.Name)
			continue
		}
		defs = append(defs, core.PropertyDef{Name: d.Name, Kind: kind})
	}
	return defs
}

func (b *builder) entityTypes(docs []entityTypeDoc) {
	for i, d := range docs {
		path := fmt.Sprintf("entity_types[%d]", i)
		if d.Label == "" {
			b.fail(path, "label is required")
			continue
		}
		if _, dup := b.reg.entityTypes[d.Label]; dup {
			b.fail(path, "duplicate entity type %q", d.Label)
			continue
		}
		b.reg.entityTypes[d.Label] = &core.EntityType{
			Label:      d.Label,
			Namespace:  d.Namespace,
			IsA:        d.IsA,
			Properties: b.properties(path, d.Properties),
		}
		b.reg.entityOrder = append(b.reg.entityOrder, d.Label)
	}
}

// resolveInheritance walks every is_a chain, rejecting unknown parents and cycles.
func (b *builder) resolveInheritance(docs []entityTypeDoc) {
	for i, d := range docs {
		t, ok := b.reg.entityTypes[d.Label]
		if !ok || t.IsA == "" {
			continue
		}
		path := fmt.Sprintf("entity_types[%d].is_a", i)
		var chain []*core.EntityType
		visited := map[string]struct{}{t.Label: {}}
		parent := t.IsA
		for parent != "" {
			p, ok := b.reg.entityTypes[parent]
			if !ok {
				b.fail(path, "entity type %q inherits from undeclared type %q", t.Label, parent)
				chain = nil
				break
			}
			if _, seen := visited[parent]; seen {
				b.fail(path, "is_a cycle through %q", parent)
				chain = nil
				break
			}
			visited[parent] = struct{}{}
			chain = append(chain, p)
			parent = p.IsA
		}
		t.SetAncestors(chain)
	}
}

// checkNamespaces rejects a property declared with different kinds by entity
// types sharing an identifier namespace.
func (b *builder) checkNamespaces() {
	type declared struct {
		kind  core.ValueKind
		label string
	}
	byNamespace := make(map[string]map[string]declared)
	for _, label := range b.reg.entityOrder {
		t := b.reg.entityTypes[label]
		props, ok := byNamespace[t.Namespace]
		if !ok {
			props = make(map[string]declared)
			byNamespace[t.Namespace] = props
		}
		for _, def := range t.AllProperties() {
			prev, ok := props[def.Name]
			if !ok {
				props[def.Name] = declared{kind: def.Kind, label: label}
				continue
			}
			if prev.kind != def.Kind {
				b.fail(fmt.Sprintf("entity_types.%s.properties.%s", label, def.Name),
					"property %q is %s on %q but %s on %q in namespace %q",
					def.Name, def.Kind, label, prev.kind, prev.label, t.Namespace)
			}
		}
	}
}

func (b *builder) relationTypes(docs []relationTypeDoc) {
	for i, d := range docs {
		path := fmt.Sprintf("relation_types[%d]", i)
		if d.Label == "" {
			b.fail(path, "label is required")
			continue
		}
		if _, dup := b.reg.relationTypes[d.Label]; dup {
			b.fail(path, "duplicate relation type %q", d.Label)
			continue
		}
		if _, ok := b.reg.entityTypes[d.Source]; !ok {
			b.fail(path+".source", "relation %q references undeclared entity type %q", d.Label, d.Source)
		}
		if _, ok := b.reg.entityTypes[d.Target]; !ok {
			b.fail(path+".target", "relation %q references undeclared entity type %q", d.Label, d.Target)
		}
		origin := core.RelationOrigin(d.Origin)
		if origin == "" {
			origin = core.OriginExplicit
		}
		if !origin.AllowsExplicit() && !origin.AllowsDerived() {
			b.fail(path+".origin", "unknown origin %q (want explicit, derived or mixed)", d.Origin)
		}
		b.reg.relationTypes[d.Label] = &core.RelationType{
			Label:      d.Label,
			Source:     d.Source,
			Target:     d.Target,
			Origin:     origin,
			MultiEdge:  d.MultiEdge,
			Properties: b.properties(path, d.Properties),
		}
		b.reg.relationOrder = append(b.reg.relationOrder, d.Label)
	}
}

// checkEndpointNamespaces rejects an endpoint subtype whose identifier
// namespace differs from the relation endpoint's. Edge files carry one id
// space per endpoint column, so every type a row may reference must share it.
func (b *builder) checkEndpointNamespaces() {
	for _, label := range b.reg.relationOrder {
		rel := b.reg.relationTypes[label]
		for _, ep := range []struct{ field, want string }{
			{"source", rel.Source},
			{"target", rel.Target},
		} {
			want, ok := b.reg.entityTypes[ep.want]
			if !ok {
				continue
			}
			for _, name := range b.reg.entityOrder {
				t := b.reg.entityTypes[name]
				if t == want || !t.IsSubtypeOf(want.Label) || t.Namespace == want.Namespace {
					continue
				}
				b.fail(fmt.Sprintf("relation_types.%s.%s", rel.Label, ep.field),
					"relation %q %s %q uses namespace %q but subtype %q uses %q",
					rel.Label, ep.field, want.Label, want.Namespace, t.Label, t.Namespace)
			}
		}
	}
}

func (b *builder) source(i int, d *sourceDoc) {
	path := fmt.Sprintf("sources[%d]", i)
	if d.Name == "" {
		b.fail(path, "source name is required")
		return
	}
	if _, dup := b.reg.sourceIndex[d.Name]; dup {
		b.fail(path, "duplicate source %q", d.Name)
		return
	}
	path = fmt.Sprintf("sources[%s]", d.Name)

	src := &core.SourceConfig{
		Name:         d.Name,
		Path:         d.Path,
		Format:       core.SourceFormat(d.Format),
		Delimiter:    d.Delimiter,
		Quote:        d.Quote,
		Columns:      d.Columns,
		Stanza:       d.Stanza,
		SkipObsolete: d.SkipObsolete,
		Constants:    d.Constants,
	}
	applySourceDefaults(src, d)
	b.readerOptions(path, src)

	for j := range d.Entities {
		b.entityBinding(fmt.Sprintf("%s.entities[%d]", path, j), src, &d.Entities[j])
	}
	for j := range d.Edges {
		b.edgeBinding(fmt.Sprintf("%s.edges[%d]", path, j), src, &d.Edges[j])
	}
	for j := range d.Bridges {
		b.bridgeRule(fmt.Sprintf("%s.bridges[%d]", path, j), src, &d.Bridges[j])
	}
	b.constants(path+".constants", src)

	b.reg.sourceIndex[src.Name] = len(b.reg.sources)
	b.reg.sources = append(b.reg.sources, src)
}

func (b *builder) readerOptions(path string, src *core.SourceConfig) {
	if src.Path == "" {
		b.fail(path+".path", "path is required")
	}
	switch src.Format {
	case core.FormatDelimited:
		if utf8.RuneCountInString(src.Delimiter) != 1 {
			b.fail(path+".delimiter", "delimiter must be a single character, got %q", src.Delimiter)
		}
		if src.Quote != QuoteNone && utf8.RuneCountInString(src.Quote) != 1 {
			b.fail(path+".quote", "quote must be a single character or %q, got %q", QuoteNone, src.Quote)
		}
		if utf8.RuneCountInString(src.Comment) > 1 {
			b.fail(path+".comment", "comment must be a single character, got %q", src.Comment)
		}
		if !src.Header && len(src.Columns) == 0 {
			b.fail(path+".columns", "columns are required when the source has no header")
		}
	case core.FormatOBO, core.FormatGMT, core.FormatNTriples:
	default:
		b.fail(path+".format", "unknown format %q (want delimited, obo, gmt or nt)", src.Format)
	}
}

func (b *builder) propertyBindings(path string, docs []propertyBindingDoc, lookup func(string) (core.PropertyDef, bool), owner string) []core.PropertyBinding {
	out := make([]core.PropertyBinding, 0, len(docs))
	for k, pd := range docs {
		p := fmt.Sprintf("%s.properties[%d]", path, k)
		if pd.Name == "" {
			b.fail(p, "property name is required")
			continue
		}
		if _, ok := lookup(pd.Name); !ok {
			b.fail(p, "property %q is not declared on %q", pd.Name, owner)
			continue
		}
		pb := core.PropertyBinding{Name: pd.Name, Column: pd.Column, Separator: pd.Separator}
		if pb.Column == "" {
			pb.Column = pd.Name
		}
		if pb.Separator == "" {
			pb.Separator = DefaultListSeparator
		}
		out = append(out, pb)
	}
	return out
}

func (b *builder) entityBinding(path string, src *core.SourceConfig, d *entityBindingDoc) {
	t, ok := b.reg.entityTypes[d.Type]
	if !ok {
		b.fail(path+".type", "binding references undeclared entity type %q", d.Type)
		return
	}
	eb := core.EntityBinding{
		Binding:   d.Binding,
		Type:      d.Type,
		Reference: d.Reference,
		ID: core.IDRule{
			Column:    d.ID.Column,
			Compose:   d.ID.Compose,
			Unordered: d.ID.Unordered,
			Each:      d.ID.Each,
			Separator: d.ID.Separator,
			Pattern:   d.ID.Pattern,
		},
	}
	if eb.Binding == "" {
		eb.Binding = d.Type
	}
	if _, dup := src.Entity(eb.Binding); dup {
		b.fail(path+".binding", "duplicate binding %q", eb.Binding)
		return
	}
	b.idRule(path+".id", &eb.ID)
	if eb.Reference && len(d.Properties) > 0 {
		b.fail(path+".properties", "reference binding %q cannot write properties", eb.Binding)
	}
	eb.Properties = b.propertyBindings(path, d.Properties, t.Property, t.Label)
	src.Entities = append(src.Entities, eb)
}

func (b *builder) idRule(path string, r *core.IDRule) {
	switch {
	case r.Column == "" && len(r.Compose) == 0:
		b.fail(path, "identifier rule needs a column or compose list")
	case r.Column != "" && len(r.Compose) > 0:
		b.fail(path, "identifier rule cannot set both column and compose")
	case len(r.Compose) > 0 && (r.Each || r.Pattern != ""):
		b.fail(path, "composed identifiers cannot use each or pattern")
	case len(r.Compose) > 0 && slices.Contains(r.Compose, ""):
		b.fail(path+".compose", "empty component column")
	}
	if r.Each && r.Separator == "" {
		r.Separator = DefaultListSeparator
	}
	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			b.fail(path+".pattern", "invalid pattern: %v", err)
		} else if re.NumSubexp() < 1 {
			b.fail(path+".pattern", "pattern %q has no capture group", r.Pattern)
		}
	}
}

func (b *builder) boundType(src *core.SourceConfig, binding string) (*core.EntityType, bool) {
	eb, ok := src.Entity(binding)
	if !ok {
		return nil, false
	}
	t, ok := b.reg.entityTypes[eb.Type]
	return t, ok
}

func (b *builder) endpoints(path string, src *core.SourceConfig, rel *core.RelationType, from, to string) bool {
	ok := true
	for _, ep := range []struct{ field, binding, want string }{
		{"from", from, rel.Source},
		{"to", to, rel.Target},
	} {
		t, found := b.boundType(src, ep.binding)
		if !found {
			b.fail(path+"."+ep.field, "undeclared binding %q", ep.binding)
			ok = false
			continue
		}
		if !t.IsSubtypeOf(ep.want) {
			b.fail(path+"."+ep.field, "binding %q is a %q, relation %q expects %q",
				ep.binding, t.Label, rel.Label, ep.want)
			ok = false
		}
	}
	return ok
}

func (b *builder) edgeBinding(path string, src *core.SourceConfig, d *edgeBindingDoc) {
	rel, ok := b.reg.relationTypes[d.Relation]
	if !ok {
		b.fail(path+".relation", "undeclared relation type %q", d.Relation)
		return
	}
	if !rel.Origin.AllowsExplicit() {
		b.fail(path+".relation", "relation %q is derived-only and cannot be read from edge bindings", rel.Label)
		return
	}
	if !b.endpoints(path, src, rel, d.From, d.To) {
		return
	}
	src.Edges = append(src.Edges, core.EdgeBinding{
		Relation:   rel.Label,
		From:       d.From,
		To:         d.To,
		Properties: b.propertyBindings(path, d.Properties, rel.Property, rel.Label),
	})
}

func (b *builder) bridgeRule(path string, src *core.SourceConfig, d *bridgeDoc) {
	rule := core.BridgeRule{Name: d.Name, Bindings: d.Bindings}
	if rule.Name == "" {
		b.fail(path+".name", "bridge rule name is required")
	}
	if len(d.Pairs) == 0 {
		b.fail(path+".pairs", "bridge rule %q declares no pairs", d.Name)
	}
	for k, binding := range rule.Bindings {
		if _, ok := b.boundType(src, binding); !ok {
			b.fail(fmt.Sprintf("%s.bindings[%d]", path, k), "bridge rule %q references undeclared binding %q", d.Name, binding)
		}
	}
	inRule := func(binding string) bool {
		return len(rule.Bindings) == 0 || slices.Contains(rule.Bindings, binding)
	}

	for k, pd := range d.Pairs {
		p := fmt.Sprintf("%s.pairs[%d]", path, k)
		pair := core.BridgePair{From: pd.From, To: pd.To, Relation: pd.Relation, Via: pd.Via, Provenance: pd.Provenance}
		rel, ok := b.reg.relationTypes[pair.Relation]
		if !ok {
			b.fail(p+".relation", "undeclared relation type %q", pair.Relation)
			continue
		}
		if !rel.Origin.AllowsDerived() {
			b.fail(p+".relation", "relation %q is explicit-only and cannot be derived", rel.Label)
			continue
		}
		if rel.MultiEdge {
			b.fail(p+".relation", "relation %q is multi-edge; derived edges are always deduplicated", rel.Label)
			continue
		}
		valid := true
		for _, binding := range pair.Requires() {
			if !inRule(binding) {
				b.fail(p, "binding %q is not part of bridge rule %q", binding, rule.Name)
				valid = false
			}
		}
		if pair.Via != "" {
			if _, found := b.boundType(src, pair.Via); !found {
				b.fail(p+".via", "undeclared binding %q", pair.Via)
				valid = false
			}
		}
		if !b.endpoints(p, src, rel, pair.From, pair.To) || !valid {
			continue
		}
		pair.Provenance = provenanceFor(pair, b.reg.settings)
		b.declareProvenance(p, rel, pair.Provenance)
		rule.Pairs = append(rule.Pairs, pair)
	}
	src.Bridges = append(src.Bridges, rule)
}

// declareProvenance adds the provenance list property to a relation type
// unless it is already declared.
func (b *builder) declareProvenance(path string, rel *core.RelationType, name string) {
	def, ok := rel.Property(name)
	if !ok {
		rel.Properties = append(rel.Properties, core.PropertyDef{Name: name, Kind: core.KindList})
		return
	}
	if def.Kind != core.KindList {
		b.fail(path+".provenance", "provenance property %q on %q must be a list, declared %s", name, rel.Label, def.Kind)
	}
}

// constants must be declared on at least one node-producing entity type or
// explicit relation of the source.
func (b *builder) constants(path string, src *core.SourceConfig) {
	for _, name := range slices.Sorted(maps.Keys(src.Constants)) {
		declared := false
		for _, eb := range src.Entities {
			if eb.Reference {
				continue
			}
			if t, ok := b.reg.entityTypes[eb.Type]; ok {
				if _, ok := t.Property(name); ok {
					declared = true
					break
				}
			}
		}
		for _, e := range src.Edges {
			if declared {
				break
			}
			if _, ok := b.reg.relationTypes[e.Relation].Property(name); ok {
				declared = true
			}
		}
		if !declared {
			b.fail(path+"."+name, "constant %q is not declared on any type bound by source %q", name, src.Name)
		}
	}
}
