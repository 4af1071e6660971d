// Package reader turns source files into lazy sequences of raw field records.
//
// Every format normalizes to the same contract: a core.Record whose Fields map
// holds only present values. Blank or whitespace-only values are absent.
package reader

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// maxLineSize bounds one physical line of a source file.
const maxLineSize = 16 << 20

// Reader produces records for one configured source.
type Reader struct {
	src  *core.SourceConfig
	fsys fs.FS
}

// Open returns a Reader for src resolved against fsys. The file is not opened
// until Records is iterated.
func Open(src *core.SourceConfig, fsys fs.FS) *Reader {
	return &Reader{src: src, fsys: fsys}
}

// Records returns a forward-only sequence of records. Each iteration reopens
// the file, so the sequence is restartable. A read error is yielded once as a
// *core.SourceError and ends the sequence.
func (r *Reader) Records() iter.Seq2[core.Record, error] {
	return func(yield func(core.Record, error) bool) {
		rc, err := r.open()
		if err != nil {
			yield(core.Record{}, &core.SourceError{Source: r.src.Name, Err: err})
			return
		}
		defer rc.Close()

		var scan func(io.Reader, func(core.Record, error) bool)
		switch r.src.Format {
		case core.FormatOBO:
			scan = r.scanOBO
		case core.FormatGMT:
			scan = r.scanGMT
		case core.FormatNTriples:
			scan = r.scanNTriples
		default:
			scan = r.scanDelimited
		}
		scan(rc, yield)
	}
}

// open opens the source file, transparently decompressing .gz files.
func (r *Reader) open() (io.ReadCloser, error) {
	name := path.Clean(filepath.ToSlash(r.src.Path))
	f, err := r.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	if !strings.HasSuffix(name, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decompress %s: %w", name, err)
	}
	return &gzipFile{Reader: gz, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file fs.File
}

func (g *gzipFile) Close() error {
	gerr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gerr
}

func newScanner(rd io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

// setField stores a value unless it is blank.
func setField(fields map[string]string, key, raw string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	fields[key] = v
}

func (r *Reader) fail(row int, err error) error {
	return &core.SourceError{Source: r.src.Name, Row: row, Err: err}
}
