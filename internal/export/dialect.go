package export

import (
	"fmt"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Dialect names a bulk-loader header convention.
type Dialect string

// Supported dialects.
const (
	// DialectNeo4j writes neo4j-admin import headers (:ID, :LABEL, :START_ID, :END_ID, :TYPE).
	DialectNeo4j Dialect = "neo4j"
	// DialectNeptune writes Amazon Neptune Gremlin load headers (~id, ~label, ~from, ~to).
	DialectNeptune Dialect = "neptune"
)

// ParseDialect validates a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(s); d {
	case DialectNeo4j, DialectNeptune:
		return d, nil
	case "":
		return DialectNeo4j, nil
	default:
		return "", fmt.Errorf("unknown export dialect %q (want neo4j or neptune)", s)
	}
}

// labelSeparator separates multiple labels in one label column.
const labelSeparator = ";"

func (d Dialect) nodeColumns(namespace string) (id, label string) {
	if d == DialectNeptune {
		return "~id", "~label"
	}
	if namespace != "" {
		return fmt.Sprintf(":ID(%s)", namespace), ":LABEL"
	}
	return ":ID", ":LABEL"
}

func (d Dialect) edgeColumns(sourceNS, targetNS string) (id, start, end, typ string) {
	if d == DialectNeptune {
		return "~id", "~from", "~to", "~label"
	}
	start, end = ":START_ID", ":END_ID"
	if sourceNS != "" {
		start = fmt.Sprintf(":START_ID(%s)", sourceNS)
	}
	if targetNS != "" {
		end = fmt.Sprintf(":END_ID(%s)", targetNS)
	}
	return "id", start, end, ":TYPE"
}

// propertyColumn renders a typed property header.
func (d Dialect) propertyColumn(def core.PropertyDef) string {
	if d == DialectNeptune {
		switch def.Kind {
		case core.KindInt:
			return def.Name + ":Long"
		case core.KindFloat:
			return def.Name + ":Double"
		case core.KindBool:
			return def.Name + ":Bool"
		case core.KindList:
			return def.Name + ":String[]"
		default:
			return def.Name + ":String"
		}
	}
	switch def.Kind {
	case core.KindInt:
		return def.Name + ":long"
	case core.KindFloat:
		return def.Name + ":double"
	case core.KindBool:
		return def.Name + ":boolean"
	case core.KindList:
		return def.Name + ":string[]"
	default:
		return def.Name
	}
}

// nodeID renders an identifier in the dialect's identifier space. Neptune
// has one vertex id space, so namespaced identifiers carry their namespace.
func (d Dialect) nodeID(namespace, id string) string {
	if d == DialectNeptune && namespace != "" {
		return namespace + ":" + id
	}
	return id
}
