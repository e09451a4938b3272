package apply

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/inodb/vibe-hap/internal/genome"
)

// ErrMissingChromosome is returned when an edit names a chromosome the
// haplotype does not carry.
var ErrMissingChromosome = errors.New("chromosome not in haplotype")

// ImmediateEditor applies length-preserving edits directly to a haplotype.
type ImmediateEditor struct {
	hap *genome.Haplotype
}

// NewImmediateEditor creates an editor for hap.
func NewImmediateEditor(hap *genome.Haplotype) *ImmediateEditor {
	return &ImmediateEditor{hap: hap}
}

func (ed *ImmediateEditor) buffer(chrom string) (*genome.Buffer, error) {
	b, ok := ed.hap.Buffer(chrom)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingChromosome, chrom)
	}
	return b, nil
}

// Substitute overwrites [start, start+len(allele)) with allele.
func (ed *ImmediateEditor) Substitute(chrom string, start int, allele []byte) error {
	b, err := ed.buffer(chrom)
	if err != nil {
		return err
	}
	return b.ReplaceRange(start, len(allele), allele)
}

// MaskDeletion writes placeholders over [start, start+length).
func (ed *ImmediateEditor) MaskDeletion(chrom string, start, length int) error {
	b, err := ed.buffer(chrom)
	if err != nil {
		return err
	}
	if err := b.CheckRange(start, length); err != nil {
		return err
	}
	return b.ReplaceRange(start, length, bytes.Repeat([]byte{genome.Placeholder}, length))
}

// InvertInPlace reverses [start, start+length). Bases are not complemented.
func (ed *ImmediateEditor) InvertInPlace(chrom string, start, length int) error {
	b, err := ed.buffer(chrom)
	if err != nil {
		return err
	}
	seg, err := b.Slice(start, length)
	if err != nil {
		return err
	}
	return b.ReplaceRange(start, length, reverse(seg))
}
