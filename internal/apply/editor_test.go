package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-hap/internal/genome"
)

func TestImmediateEditor_Substitute(t *testing.T) {
	h := haplotype("chr1", "AAAAAAAAAAAAAAA")
	ed := NewImmediateEditor(h)

	require.NoError(t, ed.Substitute("chr1", 10, []byte("G")))
	got := seqOf(t, h, "chr1")
	assert.Equal(t, byte('G'), got[10])
	assert.Len(t, got, 15)
}

func TestImmediateEditor_MaskDeletion(t *testing.T) {
	h := haplotype("chr1", "ACGTACGTACGTACGTACGTACGTACGT")
	ed := NewImmediateEditor(h)

	require.NoError(t, ed.MaskDeletion("chr1", 20, 4))
	b, _ := h.Buffer("chr1")
	assert.Equal(t, 28, b.Len())
	assert.Equal(t, "****", b.String()[20:24])
	assert.Len(t, b.Stripped(), 24)
}

func TestImmediateEditor_InvertInPlace(t *testing.T) {
	h := haplotype("chr1", "TTAACGTT")
	ed := NewImmediateEditor(h)

	require.NoError(t, ed.InvertInPlace("chr1", 2, 4))
	assert.Equal(t, "TTGCAATT", seqOf(t, h, "chr1"), "reversed, not complemented")
}

func TestImmediateEditor_Errors(t *testing.T) {
	h := haplotype("chr1", "ACGT")
	ed := NewImmediateEditor(h)

	assert.ErrorIs(t, ed.Substitute("chr2", 0, []byte("A")), ErrMissingChromosome)
	assert.ErrorIs(t, ed.MaskDeletion("chr1", 2, 5), genome.ErrOutOfRange)
	assert.ErrorIs(t, ed.InvertInPlace("chr1", 3, 2), genome.ErrOutOfRange)
	assert.Equal(t, "ACGT", seqOf(t, h, "chr1"))
}

func TestReverseComplement(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"AAGG", "CCTT"},
		{"ACGT", "ACGT"},
		{"acgTN", "NAcgt"},
		{"A*C", "G*T"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, string(ReverseComplement([]byte(tt.in))))
		})
	}
}
