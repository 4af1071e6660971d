package core

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid schema declaration. It is fatal and
// aborts a build before any source is read.
type ConfigurationError struct {
	// Path locates the offending declaration, e.g. "sources[2].bridges[0].pairs[1]"
	Path    string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("configuration error at %s: %s", e.Path, e.Message)
	}
	return "configuration error: " + e.Message
}

// IdentityConflictError reports an identifier claimed by two entity types in
// the same namespace. It fails the contribution of the source that raised it.
type IdentityConflictError struct {
	Source        string
	Row           int
	Namespace     string
	ID            string
	ExistingLabel string
	Label         string
}

func (e *IdentityConflictError) Error() string {
	loc := e.Source
	if e.Row > 0 {
		loc = fmt.Sprintf("%s:%d", e.Source, e.Row)
	}
	ns := ""
	if e.Namespace != "" {
		ns = fmt.Sprintf(" in namespace %q", e.Namespace)
	}
	return fmt.Sprintf("%s: identifier %q%s is already a %q, cannot also be a %q",
		loc, e.ID, ns, e.ExistingLabel, e.Label)
}

// UnresolvedReferenceError reports edges of one relation label whose endpoints
// are missing from the snapshot at export time.
type UnresolvedReferenceError struct {
	Relation string
	Missing  []MissingEndpoint
}

// MissingEndpoint is one dangling edge endpoint.
type MissingEndpoint struct {
	// Endpoint is "source" or "target"
	Endpoint string
	Label    string
	ID       string
	Sources  []string
	Row      int
}

func (e *UnresolvedReferenceError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s %s %q (from %s, row %d)",
			m.Endpoint, m.Label, m.ID, strings.Join(m.Sources, ","), m.Row))
	}
	return fmt.Sprintf("relation %q references %d missing node(s): %s",
		e.Relation, len(e.Missing), strings.Join(parts, "; "))
}

// SourceError wraps a read or parse failure with its source location.
type SourceError struct {
	Source string
	Row    int
	Err    error
}

func (e *SourceError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("source %s, row %d: %v", e.Source, e.Row, e.Err)
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
