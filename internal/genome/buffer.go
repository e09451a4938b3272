// Package genome holds the per-chromosome sequence buffers of one or two
// haplotypes and loads them from a FASTA reference.
package genome

import (
	"errors"
	"fmt"
)

// Placeholder marks a deleted base. Deleted bases stay in the buffer during
// editing so offsets remain valid; they are dropped when the sequence is written.
const Placeholder byte = '*'

// ErrOutOfRange is returned when an edit falls outside its buffer.
var ErrOutOfRange = errors.New("range outside sequence")

// Buffer is a growable, 0-based sequence of bases.
type Buffer struct {
	seq []byte
}

// NewBuffer creates a buffer holding a copy of seq.
func NewBuffer(seq []byte) *Buffer {
	return &Buffer{seq: append([]byte(nil), seq...)}
}

// Len returns the current length, placeholders included.
func (b *Buffer) Len() int {
	return len(b.seq)
}

// Bytes returns the live contents. The slice is invalidated by the next edit.
func (b *Buffer) Bytes() []byte {
	return b.seq
}

// String returns a copy of the contents as a string.
func (b *Buffer) String() string {
	return string(b.seq)
}

// Slice returns a copy of [start, start+length).
func (b *Buffer) Slice(start, length int) ([]byte, error) {
	if err := b.CheckRange(start, length); err != nil {
		return nil, err
	}
	return append([]byte(nil), b.seq[start:start+length]...), nil
}

// ReplaceRange replaces [start, start+length) with content. This is the only
// mutating primitive; all edits are expressed through it.
func (b *Buffer) ReplaceRange(start, length int, content []byte) error {
	if err := b.CheckRange(start, length); err != nil {
		return err
	}

	// Same-length replacement is done in place.
	if len(content) == length {
		copy(b.seq[start:], content)
		return nil
	}

	tail := b.seq[start+length:]
	out := make([]byte, 0, len(b.seq)-length+len(content))
	out = append(out, b.seq[:start]...)
	out = append(out, content...)
	out = append(out, tail...)
	b.seq = out
	return nil
}

// Clone returns an independent copy.
func (b *Buffer) Clone() *Buffer {
	return NewBuffer(b.seq)
}

// Stripped returns the contents with every placeholder removed.
func (b *Buffer) Stripped() []byte {
	out := make([]byte, 0, len(b.seq))
	for _, c := range b.seq {
		if c != Placeholder {
			out = append(out, c)
		}
	}
	return out
}

// CheckRange reports ErrOutOfRange unless [start, start+length) lies within
// the buffer.
func (b *Buffer) CheckRange(start, length int) error {
	return checkRange(start, length, len(b.seq))
}

// checkRange never forms start+length, which overflows for lengths read
// from malformed rows.
func checkRange(start, length, size int) error {
	if start < 0 || length < 0 || start > size || length > size-start {
		return fmt.Errorf("%w: start %d length %d of %d", ErrOutOfRange, start, length, size)
	}
	return nil
}
