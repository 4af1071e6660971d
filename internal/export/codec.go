package export

import (
	"strings"
)

// listEscape escapes the list delimiter and itself inside list elements.
const listEscape = `\`

// Codec encodes fields and list values for one output dialect.
type Codec struct {
	Delimiter     string
	ListDelimiter string
	Quote         string
}

// needsQuote reports whether a field must be quoted to survive splitting.
func (c Codec) needsQuote(s string) bool {
	return strings.Contains(s, c.Delimiter) ||
		strings.Contains(s, c.Quote) ||
		strings.ContainsAny(s, "\r\n")
}

// EncodeField quotes s when it contains the field delimiter, the quote
// character or a line break. Embedded quotes are doubled.
func (c Codec) EncodeField(s string) string {
	if !c.needsQuote(s) {
		return s
	}
	return c.Quote + strings.ReplaceAll(s, c.Quote, c.Quote+c.Quote) + c.Quote
}

// EncodeList joins list elements with the list delimiter, escaping the
// delimiter and the escape character inside elements.
func (c Codec) EncodeList(items []string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		item = strings.ReplaceAll(item, listEscape, listEscape+listEscape)
		escaped[i] = strings.ReplaceAll(item, c.ListDelimiter, listEscape+c.ListDelimiter)
	}
	return strings.Join(escaped, c.ListDelimiter)
}

// DecodeList reverses EncodeList.
func (c Codec) DecodeList(s string) []string {
	if s == "" {
		return nil
	}
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], listEscape) && i+len(listEscape) < len(s):
			i += len(listEscape)
			if strings.HasPrefix(s[i:], c.ListDelimiter) {
				cur.WriteString(c.ListDelimiter)
				i += len(c.ListDelimiter)
				continue
			}
			cur.WriteByte(s[i])
			i++
		case strings.HasPrefix(s[i:], c.ListDelimiter):
			out = append(out, cur.String())
			cur.Reset()
			i += len(c.ListDelimiter)
		default:
			cur.WriteByte(s[i])
			i++
		}
	}
	return append(out, cur.String())
}

// EncodeRecord encodes and joins one row.
func (c Codec) EncodeRecord(fields []string) string {
	encoded := make([]string, len(fields))
	for i, f := range fields {
		encoded[i] = c.EncodeField(f)
	}
	return strings.Join(encoded, c.Delimiter)
}

// SplitRecord splits one encoded row back into raw fields, undoing EncodeField.
func (c Codec) SplitRecord(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	inQuote := false
	atStart := true
	for i := 0; i < len(line); {
		rest := line[i:]
		switch {
		case inQuote && strings.HasPrefix(rest, c.Quote+c.Quote):
			cur.WriteString(c.Quote)
			i += 2 * len(c.Quote)
		case inQuote && strings.HasPrefix(rest, c.Quote):
			inQuote = false
			i += len(c.Quote)
		case !inQuote && atStart && strings.HasPrefix(rest, c.Quote):
			inQuote = true
			atStart = false
			i += len(c.Quote)
		case !inQuote && strings.HasPrefix(rest, c.Delimiter):
			fields = append(fields, cur.String())
			cur.Reset()
			atStart = true
			i += len(c.Delimiter)
		default:
			cur.WriteByte(line[i])
			atStart = false
			i++
		}
	}
	return append(fields, cur.String())
}
