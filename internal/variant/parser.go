package variant

import (
	"bufio"
	"fmt"
	"io"

	"github.com/inodb/vibe-hap/internal/input"
)

// lineReader yields non-comment lines with their 1-based line numbers.
type lineReader struct {
	reader     *bufio.Reader
	closer     io.Closer
	lineNumber int
}

func openLines(path string) (*lineReader, error) {
	rc, err := input.Open(path)
	if err != nil {
		return nil, err
	}
	return &lineReader{reader: bufio.NewReaderSize(rc, 256*1024), closer: rc}, nil
}

func newLines(r io.Reader) *lineReader {
	return &lineReader{reader: bufio.NewReaderSize(r, 256*1024)}
}

// next returns the next record line, or "", io.EOF at end of input.
func (lr *lineReader) next() (string, error) {
	for {
		line, err := lr.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read line: %w", err)
		}
		if line == "" && err == io.EOF {
			return "", io.EOF
		}
		lr.lineNumber++

		if IsComment(line) {
			if err == io.EOF {
				return "", io.EOF
			}
			continue
		}
		return line, nil
	}
}

func (lr *lineReader) close() error {
	if lr.closer != nil {
		return lr.closer.Close()
	}
	return nil
}

// SNVParser reads records from an SNV table.
type SNVParser struct {
	lines *lineReader
}

// NewSNVParser opens an SNV table, decompressing it if needed.
func NewSNVParser(path string) (*SNVParser, error) {
	lr, err := openLines(path)
	if err != nil {
		return nil, fmt.Errorf("open snv file: %w", err)
	}
	return &SNVParser{lines: lr}, nil
}

// NewSNVParserFromReader creates a parser over r.
func NewSNVParserFromReader(r io.Reader) *SNVParser {
	return &SNVParser{lines: newLines(r)}
}

// Next reads the next record. It returns nil, nil at end of input and a
// *MalformedRecordError for a row that cannot be decoded; parsing may
// continue after a malformed row.
func (p *SNVParser) Next() (*SNVRecord, error) {
	line, err := p.lines.next()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeSNV(line, p.lines.lineNumber)
}

// LineNumber returns the current line number being processed.
func (p *SNVParser) LineNumber() int {
	return p.lines.lineNumber
}

// Close closes the parser and underlying file.
func (p *SNVParser) Close() error {
	return p.lines.close()
}

// SVParser reads records from an SV table.
type SVParser struct {
	lines *lineReader
}

// NewSVParser opens an SV table, decompressing it if needed.
func NewSVParser(path string) (*SVParser, error) {
	lr, err := openLines(path)
	if err != nil {
		return nil, fmt.Errorf("open sv file: %w", err)
	}
	return &SVParser{lines: lr}, nil
}

// NewSVParserFromReader creates a parser over r.
func NewSVParserFromReader(r io.Reader) *SVParser {
	return &SVParser{lines: newLines(r)}
}

// Next reads the next record, with the same contract as SNVParser.Next.
func (p *SVParser) Next() (*SVRecord, error) {
	line, err := p.lines.next()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeSV(line, p.lines.lineNumber)
}

// LineNumber returns the current line number being processed.
func (p *SVParser) LineNumber() int {
	return p.lines.lineNumber
}

// Close closes the parser and underlying file.
func (p *SVParser) Close() error {
	return p.lines.close()
}
