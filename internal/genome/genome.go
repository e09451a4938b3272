package genome

import (
	"fmt"
	"strings"
)

// Sex selects which sex chromosome the second haplotype carries.
type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// ParseSex parses "M" or "F" (case-insensitive).
func ParseSex(s string) (Sex, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return Male, nil
	case "F":
		return Female, nil
	}
	return "", fmt.Errorf("invalid sex %q: expected M or F", s)
}

// ChromClass classifies a contig for ploidy purposes.
type ChromClass int

const (
	Autosome ChromClass = iota
	ChromX
	ChromY
	Mitochondrial
)

// Classify returns the class of a chromosome name. A leading "chr" is ignored.
func Classify(name string) ChromClass {
	n := strings.ToUpper(name)
	n = strings.TrimPrefix(n, "CHR")
	switch n {
	case "X":
		return ChromX
	case "Y":
		return ChromY
	case "M", "MT":
		return Mitochondrial
	}
	return Autosome
}

// Haplotype maps chromosome names to mutable buffers, keeping reference order.
type Haplotype struct {
	names   []string
	buffers map[string]*Buffer
}

// NewHaplotype creates an empty haplotype.
func NewHaplotype() *Haplotype {
	return &Haplotype{buffers: make(map[string]*Buffer)}
}

// Add stores a copy of seq under name, replacing any previous sequence.
func (h *Haplotype) Add(name string, seq []byte) {
	if _, ok := h.buffers[name]; !ok {
		h.names = append(h.names, name)
	}
	h.buffers[name] = NewBuffer(seq)
}

// Buffer returns the live buffer for a chromosome.
func (h *Haplotype) Buffer(name string) (*Buffer, bool) {
	b, ok := h.buffers[name]
	return b, ok
}

// Has reports whether the chromosome is present.
func (h *Haplotype) Has(name string) bool {
	_, ok := h.buffers[name]
	return ok
}

// Names returns chromosome names in load order.
func (h *Haplotype) Names() []string {
	return append([]string(nil), h.names...)
}

// Len returns the number of chromosomes.
func (h *Haplotype) Len() int {
	return len(h.names)
}

// Snapshot copies every buffer into an immutable view.
func (h *Haplotype) Snapshot() *Snapshot {
	return h.SnapshotOf(h.names...)
}

// SnapshotOf copies only the named chromosomes. Names not present are ignored.
func (h *Haplotype) SnapshotOf(names ...string) *Snapshot {
	s := &Snapshot{seqs: make(map[string][]byte, len(names))}
	for _, name := range names {
		if b, ok := h.buffers[name]; ok {
			s.seqs[name] = append([]byte(nil), b.seq...)
		}
	}
	return s
}

// Snapshot is a frozen copy of a haplotype. Deferred events that copy material
// read from it, never from the live buffers.
type Snapshot struct {
	seqs map[string][]byte
}

// Slice returns a copy of [start, start+length) on chromosome name.
func (s *Snapshot) Slice(name string, start, length int) ([]byte, error) {
	seq, ok := s.seqs[name]
	if !ok {
		return nil, fmt.Errorf("chromosome %q not in snapshot", name)
	}
	if err := checkRange(start, length, len(seq)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return append([]byte(nil), seq[start:start+length]...), nil
}

// Options configures how a Genome is built from a reference.
type Options struct {
	Diploid bool
	Sex     Sex
}

// Genome owns the haplotypes being edited. H2 is nil unless diploid.
type Genome struct {
	H1 *Haplotype
	H2 *Haplotype
}

// New builds a genome from a loaded reference. The reference becomes H1.
// In diploid mode H2 copies every autosome plus X for females or Y for males,
// and never the mitochondrial contig.
func New(ref *Haplotype, opts Options) *Genome {
	g := &Genome{H1: ref}
	if !opts.Diploid {
		return g
	}

	g.H2 = NewHaplotype()
	for _, name := range ref.names {
		if !inSecondHaplotype(Classify(name), opts.Sex) {
			continue
		}
		g.H2.Add(name, ref.buffers[name].seq)
	}
	return g
}

func inSecondHaplotype(class ChromClass, sex Sex) bool {
	switch class {
	case Mitochondrial:
		return false
	case ChromX:
		return sex == Female
	case ChromY:
		return sex != Female
	}
	return true
}

// Haplotypes returns H1 and, when present, H2.
func (g *Genome) Haplotypes() []*Haplotype {
	if g.H2 == nil {
		return []*Haplotype{g.H1}
	}
	return []*Haplotype{g.H1, g.H2}
}

// Diploid reports whether a second haplotype exists.
func (g *Genome) Diploid() bool {
	return g.H2 != nil
}
