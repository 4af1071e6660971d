package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

const quoteNone = "none"

func (r *Reader) scanDelimited(rd io.Reader, yield func(core.Record, error) bool) {
	if r.src.Quote != `"` {
		r.scanSplit(rd, yield)
		return
	}

	cr := csv.NewReader(rd)
	cr.Comma, _ = utf8.DecodeRuneInString(r.src.Delimiter)
	if r.src.Comment != "" {
		cr.Comment, _ = utf8.DecodeRuneInString(r.src.Comment)
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	columns := r.src.Columns
	needHeader := r.src.Header
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		line, _ := cr.FieldPos(0)
		if err != nil {
			yield(core.Record{}, r.fail(line, fmt.Errorf("failed to parse row: %w", err)))
			return
		}
		if needHeader {
			needHeader = false
			if columns == nil {
				columns = headerColumns(fields)
			}
			continue
		}
		if !yield(toRecord(line, columns, fields), nil) {
			return
		}
	}
}

// scanSplit splits lines on the delimiter without quote handling. Used for
// quote: none and for quote characters encoding/csv does not support.
func (r *Reader) scanSplit(rd io.Reader, yield func(core.Record, error) bool) {
	sc := newScanner(rd)
	quote := ""
	if r.src.Quote != quoteNone {
		quote = r.src.Quote
	}
	columns := r.src.Columns
	needHeader := r.src.Header
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		if r.src.Comment != "" && strings.HasPrefix(text, r.src.Comment) {
			continue
		}
		fields := strings.Split(text, r.src.Delimiter)
		if quote != "" {
			for i, f := range fields {
				fields[i] = unquote(f, quote)
			}
		}
		if needHeader {
			needHeader = false
			if columns == nil {
				columns = headerColumns(fields)
			}
			continue
		}
		if !yield(toRecord(line, columns, fields), nil) {
			return
		}
	}
	if err := sc.Err(); err != nil {
		yield(core.Record{}, r.fail(line, fmt.Errorf("failed to read line: %w", err)))
	}
}

// unquote strips a surrounding quote pair and undoubles embedded quotes.
func unquote(field, quote string) string {
	if len(field) >= 2*len(quote) && strings.HasPrefix(field, quote) && strings.HasSuffix(field, quote) {
		inner := field[len(quote) : len(field)-len(quote)]
		return strings.ReplaceAll(inner, quote+quote, quote)
	}
	return field
}

func headerColumns(fields []string) []string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if i == 0 {
			f = strings.TrimPrefix(f, "\ufeff")
		}
		cols[i] = f
	}
	return cols
}

// toRecord maps positional fields to column names. Short rows leave the
// trailing columns absent; extra fields are ignored.
func toRecord(line int, columns, fields []string) core.Record {
	rec := core.Record{Row: line, Fields: make(map[string]string, len(columns))}
	for i, name := range columns {
		if i >= len(fields) || name == "" {
			continue
		}
		setField(rec.Fields, name, fields[i])
	}
	return rec
}
