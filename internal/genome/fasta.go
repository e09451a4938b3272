package genome

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/inodb/vibe-hap/internal/input"
)

// FileAccessError reports a reference or variant file that cannot be used.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot access %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// LoadReference reads a FASTA reference (optionally compressed) into a haplotype.
func LoadReference(path string) (*Haplotype, error) {
	rc, err := input.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	defer rc.Close()

	h, err := ReadFASTA(rc)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	return h, nil
}

// ReadFASTA parses FASTA content. Each record's lines are joined into one
// buffer; the record name is the header text up to the first whitespace.
func ReadFASTA(r io.Reader) (*Haplotype, error) {
	scanner := bufio.NewScanner(r)
	// Allow very long single-line sequences
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	h := NewHaplotype()
	var (
		name     string
		inRecord bool
		seq      []byte
	)

	flush := func() {
		if inRecord {
			h.Add(name, seq)
		}
	}

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if line[0] == '>' {
			flush()
			name = parseHeader(string(line))
			inRecord = true
			seq = seq[:0]
			continue
		}
		if line[0] == ';' {
			continue
		}
		if !inRecord {
			return nil, fmt.Errorf("sequence data before first header")
		}
		seq = append(seq, line...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	flush()

	if h.Len() == 0 {
		return nil, fmt.Errorf("no sequence records")
	}
	return h, nil
}

// parseHeader extracts the record name from a FASTA header line.
func parseHeader(header string) string {
	header = header[1:]
	for i, c := range header {
		if c == ' ' || c == '\t' {
			return header[:i]
		}
	}
	return header
}
