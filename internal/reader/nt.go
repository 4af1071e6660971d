package reader

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Fields set on every N-Triples record.
const (
	ntSubjectField = "subject"
	ntIDField      = "id"
)

type termKind int

const (
	termIRI termKind = iota
	termBlank
	termLiteral
)

// scanNTriples groups consecutive triples sharing a subject into one record.
// Predicates are keyed by their local name and IRI objects are reduced to
// their local name, so a MeSH descriptor's concept link reads as "M0000001".
// Dumps are sorted by subject; a subject that reappears later yields a second
// record, which the accumulator merges like any repeated entity.
func (r *Reader) scanNTriples(rd io.Reader, yield func(core.Record, error) bool) {
	sc := newScanner(rd)
	var cur *stanza
	line := 0

	flush := func() bool {
		if cur == nil {
			return true
		}
		return yield(core.Record{Row: cur.line, Fields: cur.fields}, nil)
	}

	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if r.src.Comment != "" && strings.HasPrefix(text, r.src.Comment) {
			continue
		}
		subject, predicate, object, err := parseTriple(text)
		if err != nil {
			yield(core.Record{}, r.fail(line, err))
			return
		}
		if cur == nil || cur.kind != subject {
			if !flush() {
				return
			}
			cur = &stanza{kind: subject, line: line, fields: map[string]string{
				ntSubjectField: subject,
				ntIDField:      localName(subject),
			}}
		}
		cur.add(predicate, strings.TrimSpace(object))
	}
	if err := sc.Err(); err != nil {
		yield(core.Record{}, r.fail(line, fmt.Errorf("failed to read line: %w", err)))
		return
	}
	flush()
}

// parseTriple splits one "<s> <p> o ." line. The predicate is returned as its
// local name, an IRI object as its local name and a literal as its text.
func parseTriple(text string) (subject, predicate, object string, err error) {
	rest, ok := strings.CutSuffix(text, ".")
	if !ok {
		return "", "", "", fmt.Errorf("malformed triple %q: missing final '.'", text)
	}

	var kind termKind
	if subject, kind, rest, err = nextTerm(strings.TrimSpace(rest)); err != nil {
		return "", "", "", err
	}
	if kind == termLiteral {
		return "", "", "", fmt.Errorf("malformed triple %q: literal subject", text)
	}
	if predicate, kind, rest, err = nextTerm(rest); err != nil {
		return "", "", "", err
	}
	if kind != termIRI {
		return "", "", "", fmt.Errorf("malformed triple %q: predicate must be an IRI", text)
	}
	if object, kind, rest, err = nextTerm(rest); err != nil {
		return "", "", "", err
	}
	if rest != "" {
		return "", "", "", fmt.Errorf("malformed triple %q: unexpected %q", text, rest)
	}
	if kind == termIRI {
		object = localName(object)
	}
	return subject, localName(predicate), object, nil
}

// nextTerm reads one term from the start of s and returns the remainder with
// leading space removed.
func nextTerm(s string) (value string, kind termKind, rest string, err error) {
	switch {
	case strings.HasPrefix(s, "<"):
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return "", 0, "", fmt.Errorf("unterminated IRI in %q", s)
		}
		return s[1:end], termIRI, strings.TrimSpace(s[end+1:]), nil
	case strings.HasPrefix(s, "_:"):
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			end = len(s)
		}
		return s[:end], termBlank, strings.TrimSpace(s[end:]), nil
	case strings.HasPrefix(s, `"`):
		text, n, err := unescapeLiteral(s)
		if err != nil {
			return "", 0, "", err
		}
		rest = s[n:]
		switch {
		case strings.HasPrefix(rest, "@"):
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			rest = rest[end:]
		case strings.HasPrefix(rest, "^^<"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return "", 0, "", fmt.Errorf("unterminated datatype in %q", s)
			}
			rest = rest[end+1:]
		}
		return text, termLiteral, strings.TrimSpace(rest), nil
	case s == "":
		return "", 0, "", fmt.Errorf("missing term")
	default:
		return "", 0, "", fmt.Errorf("unexpected term %q", s)
	}
}

// unescapeLiteral decodes the quoted literal at the start of s and returns
// its text and the number of bytes consumed, closing quote included.
func unescapeLiteral(s string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			return b.String(), i + 1, nil
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			break
		}
		i++
		switch e := s[i]; e {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u', 'U':
			width := 4
			if e == 'U' {
				width = 8
			}
			if i+width >= len(s) {
				return "", 0, fmt.Errorf("truncated escape in %q", s)
			}
			code, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", 0, fmt.Errorf("invalid escape in %q: %w", s, err)
			}
			b.WriteRune(rune(code))
			i += width
		default:
			b.WriteByte(e)
		}
	}
	return "", 0, fmt.Errorf("unterminated literal in %q", s)
}

// localName returns the part of an IRI after its last '#' or '/'.
func localName(iri string) string {
	i := strings.LastIndexAny(iri, "#/")
	if i < 0 || i == len(iri)-1 {
		return iri
	}
	return iri[i+1:]
}
