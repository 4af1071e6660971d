// Package export writes a graph snapshot as bulk-loader tables: one file per
// node label and one per relation label, each with a single header computed
// as the union of the properties observed on that label.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapgraph/internal/graph"
	"github.com/leapstack-labs/leapgraph/internal/schema"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Default encoding options.
const (
	DefaultDelimiter     = "\t"
	DefaultListDelimiter = "|"
	DefaultQuote         = "'"
	// ManifestFile is written next to the tables
	ManifestFile = "manifest.json"
)

// Options configures the output encoding.
type Options struct {
	Dialect       Dialect
	Delimiter     string
	ListDelimiter string
	Quote         string
	// Empty is written for properties an instance does not have
	Empty string
	// AncestorLabels writes the is_a chain into the node label column
	AncestorLabels bool
	Logger         *slog.Logger
}

// Exporter writes snapshots for one schema.
type Exporter struct {
	reg    *schema.Registry
	opts   Options
	codec  Codec
	logger *slog.Logger
}

// New validates opts and returns an exporter.
func New(reg *schema.Registry, opts Options) (*Exporter, error) {
	if opts.Dialect == "" {
		opts.Dialect = DialectNeo4j
	}
	if _, err := ParseDialect(string(opts.Dialect)); err != nil {
		return nil, err
	}
	if opts.Delimiter == "" {
		opts.Delimiter = DefaultDelimiter
	}
	if opts.ListDelimiter == "" {
		opts.ListDelimiter = DefaultListDelimiter
	}
	if opts.Quote == "" {
		opts.Quote = DefaultQuote
	}
	distinct := []string{opts.Delimiter, opts.ListDelimiter, opts.Quote, listEscape}
	slices.Sort(distinct)
	if len(slices.Compact(distinct)) != 4 {
		return nil, fmt.Errorf("delimiter %q, list delimiter %q, quote %q and %q must be distinct",
			opts.Delimiter, opts.ListDelimiter, opts.Quote, listEscape)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{
		reg:    reg,
		opts:   opts,
		codec:  Codec{Delimiter: opts.Delimiter, ListDelimiter: opts.ListDelimiter, Quote: opts.Quote},
		logger: logger,
	}, nil
}

// Codec returns the field codec used for output.
func (x *Exporter) Codec() Codec {
	return x.codec
}

// Validate checks that every edge endpoint resolves to a node of the
// endpoint label. It returns one *core.UnresolvedReferenceError per
// offending relation label, joined.
func (x *Exporter) Validate(snap *graph.Snapshot) error {
	var errs []error
	for _, label := range snap.EdgeLabels() {
		rel, _ := x.reg.RelationType(label)
		ref := &core.UnresolvedReferenceError{Relation: label}
		for _, e := range snap.Edges(label) {
			row := 0
			if len(e.Origins) > 0 {
				row = e.Origins[0].Row
			}
			for _, ep := range []struct{ name, label, id string }{
				{"source", cmpOr(e.SourceLabel, rel.Source), e.SourceID},
				{"target", cmpOr(e.TargetLabel, rel.Target), e.TargetID},
			} {
				if _, ok := snap.Node(ep.label, ep.id); ok {
					continue
				}
				ref.Missing = append(ref.Missing, core.MissingEndpoint{
					Endpoint: ep.name,
					Label:    ep.label,
					ID:       ep.id,
					Sources:  e.SourceNames(),
					Row:      row,
				})
			}
		}
		if len(ref.Missing) > 0 {
			errs = append(errs, ref)
		}
	}
	return errors.Join(errs...)
}

func cmpOr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Write validates snap and writes its tables and manifest into dir. Nothing
// is written when validation fails. Tables left in dir by a previous export
// are removed first.
func (x *Exporter) Write(snap *graph.Snapshot, dir string) (*Manifest, error) {
	if err := x.Validate(snap); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := removeStale(dir); err != nil {
		return nil, err
	}

	m := &Manifest{
		Dialect:       string(x.opts.Dialect),
		Delimiter:     x.opts.Delimiter,
		ListDelimiter: x.opts.ListDelimiter,
		Quote:         x.opts.Quote,
	}
	for _, label := range snap.NodeLabels() {
		entry, err := x.writeNodes(snap, label, dir)
		if err != nil {
			return nil, err
		}
		m.Nodes = append(m.Nodes, entry)
	}
	for _, label := range snap.EdgeLabels() {
		entry, err := x.writeEdges(snap, label, dir)
		if err != nil {
			return nil, err
		}
		m.Edges = append(m.Edges, entry)
	}
	if err := m.save(filepath.Join(dir, ManifestFile)); err != nil {
		return nil, err
	}
	x.logger.Info("export written", "dir", dir, "node_files", len(m.Nodes), "edge_files", len(m.Edges))
	return m, nil
}

func removeStale(dir string) error {
	for _, pattern := range []string{"nodes_*.csv", "edges_*.csv", ManifestFile} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return err
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove stale output %s: %w", path, err)
			}
		}
	}
	return nil
}

// observed returns the declared properties present on at least one
// instance, in declared order.
func observed(declared []core.PropertyDef, present func(string) bool) []core.PropertyDef {
	out := make([]core.PropertyDef, 0, len(declared))
	for _, def := range declared {
		if present(def.Name) {
			out = append(out, def)
		}
	}
	return out
}

// NodeHeader returns the header union for a node label.
func (x *Exporter) NodeHeader(snap *graph.Snapshot, label string) ([]string, []core.PropertyDef) {
	t, _ := x.reg.EntityType(label)
	nodes := snap.Nodes(label)
	props := observed(t.AllProperties(), func(name string) bool {
		return slices.ContainsFunc(nodes, func(n *core.Node) bool {
			_, ok := n.Properties[name]
			return ok
		})
	})
	id, lbl := x.opts.Dialect.nodeColumns(t.Namespace)
	header := []string{id, lbl}
	for _, def := range props {
		header = append(header, x.opts.Dialect.propertyColumn(def))
	}
	return header, props
}

// EdgeHeader returns the header union for a relation label.
func (x *Exporter) EdgeHeader(snap *graph.Snapshot, label string) ([]string, []core.PropertyDef) {
	rel, _ := x.reg.RelationType(label)
	edges := snap.Edges(label)
	props := observed(rel.Properties, func(name string) bool {
		return slices.ContainsFunc(edges, func(e *core.Edge) bool {
			_, ok := e.Properties[name]
			return ok
		})
	})
	id, start, end, typ := x.opts.Dialect.edgeColumns(x.reg.Namespace(rel.Source), x.reg.Namespace(rel.Target))
	header := []string{id, start, end, typ}
	for _, def := range props {
		header = append(header, x.opts.Dialect.propertyColumn(def))
	}
	return header, props
}

func (x *Exporter) value(v core.Value, ok bool) string {
	switch {
	case !ok:
		return x.opts.Empty
	case v.IsList:
		return x.codec.EncodeField(x.codec.EncodeList(v.List))
	default:
		return x.codec.EncodeField(v.Scalar)
	}
}

func (x *Exporter) nodeLabels(label string) string {
	if !x.opts.AncestorLabels {
		return label
	}
	t, _ := x.reg.EntityType(label)
	out := label
	for _, a := range t.Ancestors() {
		out += labelSeparator + a.Label
	}
	return out
}

func (x *Exporter) writeNodes(snap *graph.Snapshot, label, dir string) (FileEntry, error) {
	header, props := x.NodeHeader(snap, label)
	ns := x.reg.Namespace(label)
	labels := x.nodeLabels(label)
	nodes := snap.Nodes(label)

	entry := FileEntry{Label: label, File: "nodes_" + fileLabel(label) + ".csv", Rows: len(nodes), Header: header}
	err := x.writeTable(filepath.Join(dir, entry.File), header, func(emit func([]string) error) error {
		for _, n := range nodes {
			row := make([]string, 0, len(header))
			row = append(row,
				x.codec.EncodeField(x.opts.Dialect.nodeID(ns, n.ID)),
				x.codec.EncodeField(labels))
			for _, def := range props {
				v, ok := n.Properties[def.Name]
				row = append(row, x.value(v, ok))
			}
			if err := emit(row); err != nil {
				return err
			}
		}
		return nil
	})
	return entry, err
}

func (x *Exporter) writeEdges(snap *graph.Snapshot, label, dir string) (FileEntry, error) {
	header, props := x.EdgeHeader(snap, label)
	edges := snap.Edges(label)

	entry := FileEntry{Label: label, File: "edges_" + fileLabel(label) + ".csv", Rows: len(edges), Header: header}
	err := x.writeTable(filepath.Join(dir, entry.File), header, func(emit func([]string) error) error {
		for _, e := range edges {
			row := make([]string, 0, len(header))
			row = append(row,
				x.codec.EncodeField(EdgeID(e)),
				x.codec.EncodeField(x.opts.Dialect.nodeID(x.reg.Namespace(e.SourceLabel), e.SourceID)),
				x.codec.EncodeField(x.opts.Dialect.nodeID(x.reg.Namespace(e.TargetLabel), e.TargetID)),
				x.codec.EncodeField(e.Label))
			for _, def := range props {
				v, ok := e.Properties[def.Name]
				row = append(row, x.value(v, ok))
			}
			if err := emit(row); err != nil {
				return err
			}
		}
		return nil
	})
	return entry, err
}

// writeTable writes a header and rows. Row fields arrive already encoded.
func (x *Exporter) writeTable(path string, header []string, rows func(emit func([]string) error) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	writeLine := func(fields []string) error {
		for i, field := range fields {
			if i > 0 {
				if _, err := w.WriteString(x.opts.Delimiter); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(field); err != nil {
				return err
			}
		}
		_, err := w.WriteString("\n")
		return err
	}

	encoded := make([]string, len(header))
	for i, h := range header {
		encoded[i] = x.codec.EncodeField(h)
	}
	err = writeLine(encoded)
	if err == nil {
		err = rows(writeLine)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func fileLabel(label string) string {
	return unsafeFileChars.ReplaceAllString(label, "_")
}

// edgeNamespace scopes deterministic edge identifiers.
var edgeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://leapgraph/edge"))

// EdgeID returns a deterministic identifier for an edge: a name-based UUID
// of its label, endpoints and, for parallel edges, sequence number.
func EdgeID(e *core.Edge) string {
	name := e.Label + "\x00" + e.SourceID + "\x00" + e.TargetID
	if e.Seq > 0 {
		name += "\x00" + strconv.Itoa(e.Seq)
	}
	return uuid.NewSHA1(edgeNamespace, []byte(name)).String()
}
