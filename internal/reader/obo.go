package reader

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// repeatJoin joins the values of a tag repeated within one record.
const repeatJoin = "|"

// stanza accumulates the tag/value pairs of one OBO [Type] block or of one
// N-Triples subject.
type stanza struct {
	kind   string
	line   int
	fields map[string]string
}

func (s *stanza) add(tag, value string) {
	if value == "" {
		return
	}
	if prev, ok := s.fields[tag]; ok {
		s.fields[tag] = prev + repeatJoin + value
		return
	}
	s.fields[tag] = value
}

func (r *Reader) scanOBO(rd io.Reader, yield func(core.Record, error) bool) {
	sc := newScanner(rd)
	var cur *stanza
	line := 0

	// flush emits the current stanza; it reports false when iteration stopped
	flush := func() bool {
		if cur == nil || cur.kind != r.src.Stanza {
			return true
		}
		if r.src.SkipObsolete && cur.fields["is_obsolete"] == "true" {
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
		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			if !flush() {
				return
			}
			cur = &stanza{kind: text[1 : len(text)-1], line: line, fields: make(map[string]string)}
			continue
		}
		if cur == nil {
			// header frame
			continue
		}
		tag, value, ok := strings.Cut(text, ":")
		if !ok {
			yield(core.Record{}, r.fail(line, fmt.Errorf("malformed tag-value line %q", text)))
			return
		}
		cur.add(strings.TrimSpace(tag), oboValue(value))
	}
	if err := sc.Err(); err != nil {
		yield(core.Record{}, r.fail(line, fmt.Errorf("failed to read line: %w", err)))
		return
	}
	flush()
}

// oboValue strips trailing modifiers and comments from a tag value. A quoted
// value (def, synonym) yields the quoted text only.
func oboValue(raw string) string {
	v := strings.TrimSpace(raw)
	if strings.HasPrefix(v, `"`) {
		if text, ok := quotedPrefix(v); ok {
			return text
		}
	}
	if i := strings.Index(v, " !"); i >= 0 {
		v = v[:i]
	}
	if i := strings.Index(v, " {"); i >= 0 && strings.HasSuffix(v, "}") {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// quotedPrefix returns the content of the leading double-quoted string,
// honoring backslash escapes.
func quotedPrefix(v string) (string, bool) {
	var b strings.Builder
	for i := 1; i < len(v); i++ {
		switch c := v[i]; c {
		case '\\':
			if i+1 < len(v) {
				i++
				b.WriteByte(v[i])
			}
		case '"':
			return b.String(), true
		default:
			b.WriteByte(c)
		}
	}
	return "", false
}
