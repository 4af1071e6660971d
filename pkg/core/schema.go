package core

// ValueKind is the declared kind of a property value.
type ValueKind string

// Value kind constants.
const (
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindBool   ValueKind = "bool"
	KindList   ValueKind = "list"
)

// Valid reports whether k is a known value kind.
func (k ValueKind) Valid() bool {
	switch k {
	case KindString, KindInt, KindFloat, KindBool, KindList:
		return true
	}
	return false
}

// PropertyDef declares a property name and its value kind.
type PropertyDef struct {
	Name string
	Kind ValueKind
}

// EntityType is the immutable declaration of a node label.
type EntityType struct {
	// Label is the node label written to the label column
	Label string
	// Namespace is the identifier space shared with other entity types
	Namespace string
	// IsA names the parent label whose properties are inherited
	IsA string
	// Properties are the type's own declarations in declared order
	Properties []PropertyDef

	// ancestors is the resolved is_a chain, nearest parent first
	ancestors []*EntityType
}

// SetAncestors records the resolved is_a chain. Used by the schema loader only.
func (t *EntityType) SetAncestors(chain []*EntityType) {
	t.ancestors = chain
}

// Ancestors returns the resolved is_a chain, nearest parent first.
func (t *EntityType) Ancestors() []*EntityType {
	return t.ancestors
}

// AllProperties returns inherited declarations (root ancestor first) followed by
// the type's own declarations. A redeclared name keeps its first position.
func (t *EntityType) AllProperties() []PropertyDef {
	var out []PropertyDef
	seen := make(map[string]struct{})
	add := func(defs []PropertyDef) {
		for _, d := range defs {
			if _, ok := seen[d.Name]; ok {
				continue
			}
			seen[d.Name] = struct{}{}
			out = append(out, d)
		}
	}
	for i := len(t.ancestors) - 1; i >= 0; i-- {
		add(t.ancestors[i].Properties)
	}
	add(t.Properties)
	return out
}

// Property looks up a declaration, including inherited ones.
func (t *EntityType) Property(name string) (PropertyDef, bool) {
	for _, d := range t.AllProperties() {
		if d.Name == name {
			return d, true
		}
	}
	return PropertyDef{}, false
}

// IsSubtypeOf reports whether t is label or descends from it.
func (t *EntityType) IsSubtypeOf(label string) bool {
	if t.Label == label {
		return true
	}
	for _, a := range t.ancestors {
		if a.Label == label {
			return true
		}
	}
	return false
}

// RelationOrigin declares how instances of a relation type may be produced.
type RelationOrigin string

// Relation origin constants.
const (
	// OriginExplicit relations are read directly from a row's edge bindings.
	OriginExplicit RelationOrigin = "explicit"
	// OriginDerived relations are synthesized by bridge rules.
	OriginDerived RelationOrigin = "derived"
	// OriginMixed relations may be produced either way.
	OriginMixed RelationOrigin = "mixed"
)

// AllowsExplicit reports whether edge bindings may produce the relation.
func (o RelationOrigin) AllowsExplicit() bool {
	return o == OriginExplicit || o == OriginMixed
}

// AllowsDerived reports whether bridge rules may produce the relation.
func (o RelationOrigin) AllowsDerived() bool {
	return o == OriginDerived || o == OriginMixed
}

// RelationType is the immutable declaration of an edge label.
type RelationType struct {
	Label string
	// Source is the entity label edges start from
	Source string
	// Target is the entity label edges point to
	Target string
	Origin RelationOrigin
	// MultiEdge keeps parallel edges instead of merging repeated sightings
	MultiEdge  bool
	Properties []PropertyDef
}

// Property looks up a declaration by name.
func (r *RelationType) Property(name string) (PropertyDef, bool) {
	for _, d := range r.Properties {
		if d.Name == name {
			return d, true
		}
	}
	return PropertyDef{}, false
}

// IdentifierCase is the normalization applied to resolved identifiers.
type IdentifierCase string

// Identifier case constants.
const (
	CasePreserve IdentifierCase = "preserve"
	CaseFold     IdentifierCase = "fold"
	CaseUpper    IdentifierCase = "upper"
)

// Settings are schema-wide resolution settings.
type Settings struct {
	IdentifierCase IdentifierCase
	// ComposedSeparator joins the components of a composed identifier
	ComposedSeparator string
	// ProvenanceProperty is the default provenance key of derived edges
	ProvenanceProperty string
}

// SourceFormat is the shape of a source file.
type SourceFormat string

// Source format constants.
const (
	FormatDelimited SourceFormat = "delimited"
	FormatOBO       SourceFormat = "obo"
	FormatGMT       SourceFormat = "gmt"
	FormatNTriples  SourceFormat = "nt"
)

// IDRule describes how an entity identifier is built from a record.
type IDRule struct {
	// Column is the direct identifier column
	Column string
	// Compose lists the component columns of a composed identifier
	Compose []string
	// Unordered sorts composed components so the key is order-independent
	Unordered bool
	// Each yields one entity per element of a multi-valued column
	Each bool
	// Separator splits Column when Each is set
	Separator string
	// Pattern extracts the first capture group of Column
	Pattern string
}

// Columns returns every column the rule reads.
func (r IDRule) Columns() []string {
	if len(r.Compose) > 0 {
		return r.Compose
	}
	return []string{r.Column}
}

// PropertyBinding maps a record column to a property.
type PropertyBinding struct {
	Name   string
	Column string
	// Separator splits multi-valued columns (defaults to "|")
	Separator string
}

// EntityBinding resolves one entity type from a record.
type EntityBinding struct {
	// Binding is the name edges and bridge pairs use to refer to this entity
	Binding string
	Type    string
	ID      IDRule
	// Reference resolves the identifier without contributing a node
	Reference  bool
	Properties []PropertyBinding
}

// EdgeBinding declares an explicit relation between two entity bindings.
type EdgeBinding struct {
	Relation   string
	From       string
	To         string
	Properties []PropertyBinding
}

// BridgePair is one (from, to, relation) triple of a bridge rule.
type BridgePair struct {
	From     string
	To       string
	Relation string
	// Via is the binding whose presence implies the relation
	Via string
	// Provenance is the list property collecting bridge values
	Provenance string
}

// Requires returns the bindings that must be present for the pair to be emitted.
func (p BridgePair) Requires() []string {
	if p.Via == "" {
		return []string{p.From, p.To}
	}
	return []string{p.From, p.To, p.Via}
}

// BridgeRule declares derived relations implied by co-occurring bindings.
type BridgeRule struct {
	Name     string
	Bindings []string
	Pairs    []BridgePair
}

// SourceConfig is the declarative mapping of one data source.
type SourceConfig struct {
	Name   string
	Path   string
	Format SourceFormat
	// Delimiter separates fields of delimited sources
	Delimiter string
	// Quote is the quote character, or "none" to split without quote handling
	Quote string
	// Comment is the prefix of lines to ignore
	Comment string
	// Header reports whether the first non-comment line names the columns
	Header bool
	// Columns names the fields when the file has no header
	Columns []string
	// Stanza selects the OBO stanza type to read
	Stanza string
	// SkipObsolete drops OBO stanzas flagged is_obsolete
	SkipObsolete bool
	// Constants are attached to every node and explicit edge of the source
	Constants map[string]string
	Entities  []EntityBinding
	Edges     []EdgeBinding
	Bridges   []BridgeRule
}

// Entity returns the entity binding with the given name.
func (s *SourceConfig) Entity(binding string) (*EntityBinding, bool) {
	for i := range s.Entities {
		if s.Entities[i].Binding == binding {
			return &s.Entities[i], true
		}
	}
	return nil, false
}
