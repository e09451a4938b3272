// Package input opens variant and reference files, transparently
// decompressing gzip, bzip2 and zstd content.
package input

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies how a file's content is encoded.
type Compression int

const (
	None Compression = iota
	Gzip
	Bzip2
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect decides the compression of a file from its leading bytes, falling
// back to the file name suffix when the header is inconclusive.
func Detect(path string, head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	case len(head) >= 4 && bytes.HasPrefix(head, bzip2Magic) && head[3] >= '1' && head[3] <= '9':
		return Bzip2
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return Gzip
	case strings.HasSuffix(lower, ".bz2"):
		return Bzip2
	case strings.HasSuffix(lower, ".zst"):
		return Zstd
	}
	return None
}

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open opens path for reading. "-" reads standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return NewReader("", io.NopCloser(os.Stdin))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := NewReader(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rc, nil
}

// NewReader wraps rc with the decompressor its content calls for. The name is
// only used as a hint when the leading bytes do not identify the format.
func NewReader(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(rc, 64*1024)
	head, _ := br.Peek(4)

	switch Detect(name, head) {
	case Gzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		return &multiReadCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil
	case Bzip2:
		return &multiReadCloser{Reader: bzip2.NewReader(br), closers: []io.Closer{rc}}, nil
	case Zstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open zstd reader: %w", err)
		}
		release := closerFunc(func() error { zr.Close(); return nil })
		return &multiReadCloser{Reader: zr, closers: []io.Closer{release, rc}}, nil
	default:
		return &multiReadCloser{Reader: br, closers: []io.Closer{rc}}, nil
	}
}
