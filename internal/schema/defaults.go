package schema

import "github.com/leapstack-labs/leapgraph/pkg/core"

// Default schema values.
const (
	DefaultComposedSeparator = ":"
	DefaultListSeparator     = "|"
	DefaultDelimiter         = "\t"
	DefaultQuote             = `"`
	DefaultComment           = "#"
	DefaultStanza            = "Term"
	// DefaultBridgeProvenance is the provenance key of pairs with no via binding
	DefaultBridgeProvenance = "bridge"
	// QuoteNone disables quote handling for delimited sources
	QuoteNone = "none"
)

// applySettingsDefaults fills unset schema-wide settings.
func applySettingsDefaults(s *core.Settings) {
	if s.IdentifierCase == "" {
		s.IdentifierCase = core.CasePreserve
	}
	if s.ComposedSeparator == "" {
		s.ComposedSeparator = DefaultComposedSeparator
	}
}

// applySourceDefaults fills unset reader options based on the source format.
func applySourceDefaults(src *core.SourceConfig, doc *sourceDoc) {
	if src.Format == "" {
		src.Format = core.FormatDelimited
	}
	src.Header = true
	if doc.Header != nil {
		src.Header = *doc.Header
	}
	if doc.Comment != nil {
		src.Comment = *doc.Comment
	} else if src.Format != core.FormatOBO {
		src.Comment = DefaultComment
	}

	switch src.Format {
	case core.FormatDelimited:
		if src.Delimiter == "" {
			src.Delimiter = DefaultDelimiter
		}
		if src.Quote == "" {
			src.Quote = DefaultQuote
		}
	case core.FormatOBO:
		if src.Stanza == "" {
			src.Stanza = DefaultStanza
		}
	case core.FormatGMT:
		src.Delimiter = "\t"
		src.Header = false
	}
}

// provenanceFor returns the provenance property of a bridge pair.
func provenanceFor(pair core.BridgePair, settings core.Settings) string {
	if pair.Provenance != "" {
		return pair.Provenance
	}
	if pair.Via != "" {
		return "via_" + pair.Via
	}
	if settings.ProvenanceProperty != "" {
		return settings.ProvenanceProperty
	}
	return DefaultBridgeProvenance
}
