package reader

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Field names produced for gene-set (GMT) sources.
const (
	GMTTerm        = "term"
	GMTTermName    = "term_name"
	GMTDescription = "description"
	GMTGenes       = "genes"
)

// scanGMT reads "term <TAB> description <TAB> gene..." lines. Genes are
// joined with "|" so bindings can split them with the default separator.
// term_name is the term with its trailing accession token removed, e.g.
// "Apoptosis WP254" becomes "Apoptosis".
func (r *Reader) scanGMT(rd io.Reader, yield func(core.Record, error) bool) {
	sc := newScanner(rd)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		if r.src.Comment != "" && strings.HasPrefix(text, r.src.Comment) {
			continue
		}
		parts := strings.Split(text, "\t")
		rec := core.Record{Row: line, Fields: make(map[string]string, 4)}
		setField(rec.Fields, GMTTerm, parts[0])
		setField(rec.Fields, GMTTermName, termName(parts[0]))
		if len(parts) > 1 {
			setField(rec.Fields, GMTDescription, parts[1])
		}
		if len(parts) > 2 {
			genes := make([]string, 0, len(parts)-2)
			for _, g := range parts[2:] {
				// weighted libraries append ",<weight>"
				g, _, _ = strings.Cut(g, ",")
				if g = strings.TrimSpace(g); g != "" {
					genes = append(genes, g)
				}
			}
			setField(rec.Fields, GMTGenes, strings.Join(genes, "|"))
		}
		if !yield(rec, nil) {
			return
		}
	}
	if err := sc.Err(); err != nil {
		yield(core.Record{}, r.fail(line, fmt.Errorf("failed to read line: %w", err)))
	}
}

func termName(term string) string {
	term = strings.TrimSpace(term)
	i := strings.LastIndex(term, " ")
	if i < 0 {
		return term
	}
	return strings.TrimSpace(strings.ReplaceAll(term[:i], "'", ""))
}
