// Package output writes synthesized haplotypes as FASTA.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/vibe-hap/internal/genome"
)

// DefaultLineWidth is the number of bases per sequence line.
const DefaultLineWidth = 70

// FASTAWriter writes FASTA records, dropping deletion placeholders.
type FASTAWriter struct {
	w     *bufio.Writer
	width int
}

// NewFASTAWriter creates a writer wrapping sequence lines at width bases.
// A width of 0 or less uses DefaultLineWidth.
func NewFASTAWriter(w io.Writer, width int) *FASTAWriter {
	if width <= 0 {
		width = DefaultLineWidth
	}
	return &FASTAWriter{w: bufio.NewWriterSize(w, 1<<20), width: width}
}

// WriteRecord writes one record. Placeholders are removed before wrapping.
func (fw *FASTAWriter) WriteRecord(name string, seq []byte) error {
	if _, err := fmt.Fprintf(fw.w, ">%s\n", name); err != nil {
		return err
	}

	line := make([]byte, 0, fw.width+1)
	for _, c := range seq {
		if c == genome.Placeholder {
			continue
		}
		line = append(line, c)
		if len(line) == fw.width {
			line = append(line, '\n')
			if _, err := fw.w.Write(line); err != nil {
				return err
			}
			line = line[:0]
		}
	}
	if len(line) > 0 {
		line = append(line, '\n')
		if _, err := fw.w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// WriteHaplotype writes every chromosome of h in load order.
func (fw *FASTAWriter) WriteHaplotype(h *genome.Haplotype) error {
	for _, name := range h.Names() {
		b, _ := h.Buffer(name)
		if err := fw.WriteRecord(name, b.Bytes()); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// Flush writes any buffered data.
func (fw *FASTAWriter) Flush() error {
	return fw.w.Flush()
}

// WriteFile writes h to path. Paths ending in ".gz" are gzip-compressed.
func WriteFile(path string, h *genome.Haplotype, width int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	var (
		w  io.Writer = f
		gz *gzip.Writer
	)
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	fw := NewFASTAWriter(w, width)
	if err := fw.WriteHaplotype(h); err != nil {
		f.Close()
		return err
	}
	if err := fw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return fmt.Errorf("close gzip output: %w", err)
		}
	}
	return f.Close()
}

// Haplotype2Path derives the second haplotype's output path by inserting
// ".hap2" ahead of the FASTA extension, e.g. donor.fa -> donor.hap2.fa and
// donor.fa.gz -> donor.hap2.fa.gz.
func Haplotype2Path(path string) string {
	dir, base := filepath.Split(path)

	suffix := ""
	if strings.HasSuffix(base, ".gz") {
		suffix = ".gz"
		base = strings.TrimSuffix(base, ".gz")
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}
	return dir + stem + ".hap2" + ext + suffix
}
