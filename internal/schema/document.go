package schema

// document mirrors the YAML schema file. Field names are the on-disk keys.
type document struct {
	Settings      settingsDoc       `yaml:"settings"`
	EntityTypes   []entityTypeDoc   `yaml:"entity_types"`
	RelationTypes []relationTypeDoc `yaml:"relation_types"`
	Sources       []sourceDoc       `yaml:"sources"`
}

type settingsDoc struct {
	IdentifierCase     string `yaml:"identifier_case"`
	ComposedSeparator  string `yaml:"composed_separator"`
	ProvenanceProperty string `yaml:"provenance_property"`
}

type propertyDoc struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type entityTypeDoc struct {
	Label      string        `yaml:"label"`
	Namespace  string        `yaml:"namespace"`
	IsA        string        `yaml:"is_a"`
	Properties []propertyDoc `yaml:"properties"`
}

type relationTypeDoc struct {
	Label      string        `yaml:"label"`
	Source     string        `yaml:"source"`
	Target     string        `yaml:"target"`
	Origin     string        `yaml:"origin"`
	MultiEdge  bool          `yaml:"multi_edge"`
	Properties []propertyDoc `yaml:"properties"`
}

type sourceDoc struct {
	Name         string             `yaml:"name"`
	Path         string             `yaml:"path"`
	Format       string             `yaml:"format"`
	Delimiter    string             `yaml:"delimiter"`
	Quote        string             `yaml:"quote"`
	Comment      *string            `yaml:"comment"`
	Header       *bool              `yaml:"header"`
	Columns      []string           `yaml:"columns"`
	Stanza       string             `yaml:"stanza"`
	SkipObsolete bool               `yaml:"skip_obsolete"`
	Constants    map[string]string  `yaml:"constants"`
	Entities     []entityBindingDoc `yaml:"entities"`
	Edges        []edgeBindingDoc   `yaml:"edges"`
	Bridges      []bridgeDoc        `yaml:"bridges"`
}

type idDoc struct {
	Column    string   `yaml:"column"`
	Compose   []string `yaml:"compose"`
	Unordered bool     `yaml:"unordered"`
	Each      bool     `yaml:"each"`
	Separator string   `yaml:"separator"`
	Pattern   string   `yaml:"pattern"`
}

type propertyBindingDoc struct {
	Name      string `yaml:"name"`
	Column    string `yaml:"column"`
	Separator string `yaml:"separator"`
}

type entityBindingDoc struct {
	Binding    string               `yaml:"binding"`
	Type       string               `yaml:"type"`
	ID         idDoc                `yaml:"id"`
	Reference  bool                 `yaml:"reference"`
	Properties []propertyBindingDoc `yaml:"properties"`
}

type edgeBindingDoc struct {
	Relation   string               `yaml:"relation"`
	From       string               `yaml:"from"`
	To         string               `yaml:"to"`
	Properties []propertyBindingDoc `yaml:"properties"`
}

type pairDoc struct {
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	Relation   string `yaml:"relation"`
	Via        string `yaml:"via"`
	Provenance string `yaml:"provenance"`
}

type bridgeDoc struct {
	Name     string    `yaml:"name"`
	Bindings []string  `yaml:"bindings"`
	Pairs    []pairDoc `yaml:"pairs"`
}
