package apply

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-hap/internal/genome"
	"github.com/inodb/vibe-hap/internal/variant"
)

var testRef = strings.Repeat("ACGTACGTAC", 4) // 40 bases

func newGenome(diploid bool, sex genome.Sex) *genome.Genome {
	ref := genome.NewHaplotype()
	ref.Add("chr1", []byte(testRef))
	ref.Add("chr2", []byte("GGGGGGGGGGGGGGGGGGGG"))
	ref.Add("chrX", []byte("AAAAAAAAAA"))
	ref.Add("chrM", []byte("CCCCCCCCCC"))
	return genome.New(ref, genome.Options{Diploid: diploid, Sex: sex})
}

func snv(chrom string, start, end int, typ, ref, a1, a2 string) *variant.SNVRecord {
	return &variant.SNVRecord{
		Chrom:      chrom,
		Start:      start,
		End:        end,
		CallStatus: "hom",
		Type:       typ,
		Ref:        ref,
		Alleles:    [2]string{a1, a2},
	}
}

func TestEngine_Substitution(t *testing.T) {
	g := newGenome(false, genome.Male)
	e := NewEngine(g, DefaultOptions())

	r := snv("chr1", 10, 11, variant.TypeSNP, "A", "G", "G")
	require.NoError(t, e.ApplySNV(r))

	got := seqOf(t, g.H1, "chr1")
	assert.Equal(t, byte('G'), got[10])
	assert.Len(t, got, len(testRef))
	assert.Equal(t, 1, e.Stats().Substitutions)
	assert.Equal(t, 0, e.Pending(0))
}

func TestEngine_DeletionMarking(t *testing.T) {
	g := newGenome(false, genome.Male)
	e := NewEngine(g, DefaultOptions())

	r := snv("chr1", 20, 24, variant.TypeDel, "ACGT", "?", "?")
	require.NoError(t, e.ApplySNV(r))
	require.NoError(t, e.Finish())

	b, _ := g.H1.Buffer("chr1")
	assert.Equal(t, "****", b.String()[20:24])
	assert.Equal(t, len(testRef), b.Len())
	assert.Len(t, b.Stripped(), len(testRef)-4)
	assert.Equal(t, 1, e.Stats().Deletions)
}

func TestEngine_DeletionAlleles(t *testing.T) {
	g := newGenome(true, genome.Female)
	e := NewEngine(g, DefaultOptions())

	// An empty allele is deferred and keeps only the anchor base; the
	// reference allele masks the span.
	r := snv("chr1", 20, 24, variant.TypeDel, "ACGT", "", "ACGT")
	require.NoError(t, e.ApplySNV(r))
	assert.Equal(t, 1, e.Pending(0))
	assert.Equal(t, 0, e.Pending(1))
	require.NoError(t, e.Finish())

	h1 := seqOf(t, g.H1, "chr1")
	assert.Len(t, h1, len(testRef)-3)
	assert.Equal(t, testRef[:21]+testRef[24:], h1)

	h2 := seqOf(t, g.H2, "chr1")
	assert.Equal(t, testRef[:20]+"****"+testRef[24:], h2)
}

func TestEngine_SkippedRecords(t *testing.T) {
	g := newGenome(false, genome.Male)
	opts := DefaultOptions()
	opts.Types = variant.NewTypeSet([]string{"snp", "ref"})
	log := &EditLog{}
	e := NewEngine(g, opts)
	e.SetRecorder(log)

	noCall := snv("chr1", 1, 2, variant.TypeSNP, "C", "T", "T")
	noCall.CallStatus = variant.NoCall

	records := []*variant.SNVRecord{
		noCall,
		snv("chr1", 1, 2, variant.TypeRef, "C", "C", "C"),
		snv("chr1", 1, 2, variant.TypeComplex, "C", "T", "T"),
		snv("chr1", 1, 2, variant.TypeIns, "", "T", "T"),
		snv("chr9", 1, 2, variant.TypeSNP, "C", "T", "T"),
	}
	for _, r := range records {
		require.NoError(t, e.ApplySNV(r))
	}

	assert.Equal(t, 5, e.Stats().Skipped)
	assert.Equal(t, testRef, seqOf(t, g.H1, "chr1"))

	skipped := log.ByPhase(PhaseSkipped)
	require.Len(t, skipped, 5)
	assert.Equal(t, SkipNoCall, skipped[0].Reason)
	assert.Equal(t, SkipExcludedType, skipped[1].Reason)
	assert.Equal(t, SkipExcludedType, skipped[2].Reason)
	assert.Equal(t, SkipNotAllowed, skipped[3].Reason)
	assert.Equal(t, SkipUnknownChrom, skipped[4].Reason)
}

func TestEngine_DiploidAlleles(t *testing.T) {
	g := newGenome(true, genome.Female)
	e := NewEngine(g, DefaultOptions())

	require.NoError(t, e.ApplySNV(snv("chr1", 0, 1, variant.TypeSNP, "A", "T", "A")))
	require.NoError(t, e.ApplySNV(snv("chr1", 4, 4, variant.TypeIns, "", "?", "GG")))
	// chrM is haploid: only H1 is edited.
	require.NoError(t, e.ApplySNV(snv("chrM", 0, 1, variant.TypeSNP, "C", "G", "G")))
	require.NoError(t, e.Finish())

	h1 := seqOf(t, g.H1, "chr1")
	h2 := seqOf(t, g.H2, "chr1")

	assert.Equal(t, "T"+testRef[1:], h1)
	assert.Equal(t, testRef[:4]+"A"+"GG"+testRef[4:], h2)
	assert.Equal(t, "GCCCCCCCCC", seqOf(t, g.H1, "chrM"))
	assert.False(t, g.H2.Has("chrM"))
}

func svRecord(typ, freq, ochr string, ostart, olen int, ostrand, dchr string, dstart, dlen int, dstrand string) *variant.SVRecord {
	f, err := variant.ParseFrequency(freq)
	if err != nil {
		panic(err)
	}
	return &variant.SVRecord{
		Type:         typ,
		Frequency:    f,
		OriginChrom:  ochr,
		OriginStart:  ostart,
		OriginEnd:    ostart + olen,
		OriginLength: olen,
		OriginStrand: ostrand,
		DestChrom:    dchr,
		DestStart:    dstart,
		DestEnd:      dstart + dlen,
		DestLength:   dlen,
		DestStrand:   dstrand,
	}
}

func TestEngine_ZygosityThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		freq      string
		wantH1    bool
		wantH2    bool
	}{
		{"0.1 gates low h1", 0.1, "0.05;0.5", false, true},
		{"0.01 admits both", 0.01, "0.05;0.5", true, true},
		{"0.1 gates low h2", 0.1, "0.9;0.0", true, false},
		{"single value applies everywhere", 0.1, "0.0", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenome(true, genome.Male)
			opts := DefaultOptions()
			opts.ZygosityThreshold = tt.threshold
			e := NewEngine(g, opts)

			r := svRecord(variant.TypeDeletion, tt.freq, "chr2", 2, 3, "+", "", 0, 0, "")
			require.NoError(t, e.ApplySV(r))

			masked := func(h *genome.Haplotype) bool {
				return seqOf(t, h, "chr2")[2:5] == "***"
			}
			assert.Equal(t, tt.wantH1, masked(g.H1))
			assert.Equal(t, tt.wantH2, masked(g.H2))
		})
	}
}

func TestEngine_ProbableInversion(t *testing.T) {
	g := newGenome(false, genome.Male)
	e := NewEngine(g, DefaultOptions())

	require.NoError(t, e.ApplySV(svRecord(variant.TypeProbableInversion, "1", "chr1", 0, 4, "+", "", 0, 0, "")))
	assert.Equal(t, "TGCA"+testRef[4:], seqOf(t, g.H1, "chr1"))
	assert.Equal(t, 1, e.Stats().Inversions)
}

func TestEngine_DeferredSVs(t *testing.T) {
	g := newGenome(false, genome.Male)
	log := &EditLog{}
	e := NewEngine(g, DefaultOptions())
	e.SetRecorder(log)

	// Tandem duplication of chr2 [0,4) and a translocation that reads the
	// same interval from the snapshot.
	require.NoError(t, e.ApplySV(svRecord(variant.TypeTandemDuplication, "1", "chr2", 0, 4, "+", "chr2", 0, 4, "+")))
	require.NoError(t, e.ApplySV(svRecord(variant.TypeInterchromosomal, "1", "chr1", 0, 4, "+", "chr2", 10, 0, "-")))
	assert.Equal(t, 2, e.Pending(0))
	assert.Equal(t, "GGGGGGGGGGGGGGGGGGGG", seqOf(t, g.H1, "chr2"), "deferred until Finish")

	require.NoError(t, e.Finish())

	// chr1 [0,4) = ACGT, reverse complement ACGT.
	assert.Equal(t, strings.Repeat("G", 14)+"ACGT"+strings.Repeat("G", 10), seqOf(t, g.H1, "chr2"))

	stats := e.Stats()
	assert.Equal(t, 2, stats.Deferred)
	assert.Equal(t, 2, stats.Replayed)

	replayed := log.ByPhase(PhaseReplayed)
	require.Len(t, replayed, 2)
	assert.Equal(t, 10, replayed[0].Pos)
	assert.Equal(t, 4, replayed[0].NetChange)
	assert.Equal(t, 0, replayed[1].Pos)
	assert.Equal(t, 4, replayed[1].NetChange)
}

func TestEngine_LastWriteWinsAtSamePosition(t *testing.T) {
	g := newGenome(false, genome.Male)
	e := NewEngine(g, DefaultOptions())

	require.NoError(t, e.ApplySNV(snv("chr2", 5, 5, variant.TypeIns, "", "AAA", "AAA")))
	require.NoError(t, e.ApplySNV(snv("chr2", 5, 5, variant.TypeIns, "", "TT", "TT")))
	require.NoError(t, e.Finish())

	assert.Equal(t, "GGGGGG"+"TT"+"GGGGGGGGGGGGGGG", seqOf(t, g.H1, "chr2"))
	assert.Equal(t, 1, e.Stats().Overwritten)
}

func TestEngine_KeyByKindKeepsBoth(t *testing.T) {
	g := newGenome(false, genome.Male)
	opts := DefaultOptions()
	opts.KeyByKind = true
	e := NewEngine(g, opts)

	require.NoError(t, e.ApplySNV(snv("chr2", 5, 5, variant.TypeIns, "", "AAA", "AAA")))
	require.NoError(t, e.ApplySV(svRecord(variant.TypeTandemDuplication, "1", "chr2", 5, 2, "+", "chr2", 5, 2, "+")))
	assert.Equal(t, 2, e.Pending(0))
	assert.Equal(t, 0, e.Stats().Overwritten)
}

func TestEngine_MalformedRecordsLoggedAndSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := newGenome(false, genome.Male)
	e := NewEngine(g, DefaultOptions())
	e.SetLogger(zap.New(core))

	table := "1\t2\tchr1\tbad\t11\thom\tsnp\tA\tG\tG\n" +
		"1\t2\tchr1\t10\t11\thom\tsnp\tA\tG\tG\n"
	require.NoError(t, e.ApplySNVs(variant.NewSNVParserFromReader(strings.NewReader(table))))

	assert.Equal(t, 1, e.Stats().Malformed)
	assert.Equal(t, 1, e.Stats().Substitutions)
	require.Equal(t, 1, logs.FilterMessage("skipping malformed record").Len())
	entry := logs.FilterMessage("skipping malformed record").All()[0]
	assert.Equal(t, int64(1), entry.ContextMap()["line"])
}

func TestEngine_OutOfRangeEditLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := newGenome(false, genome.Male)
	e := NewEngine(g, DefaultOptions())
	e.SetLogger(zap.New(core))

	require.NoError(t, e.ApplySNV(snv("chrX", 9, 11, variant.TypeSub, "AA", "GG", "GG")))
	assert.Equal(t, 1, e.Stats().Failed)
	assert.Equal(t, 0, e.Stats().Substitutions)
	assert.Equal(t, 1, logs.FilterMessage("skipping edit").Len())
}

func TestEngine_HugeLengthsSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := newGenome(false, genome.Male)
	e := NewEngine(g, DefaultOptions())
	e.SetLogger(zap.New(core))

	require.NoError(t, e.ApplySV(svRecord(variant.TypeProbableInversion, "1", "chr1", 2, math.MaxInt, "+", "", 0, 0, "")))
	require.NoError(t, e.ApplySV(svRecord(variant.TypeDeletion, "1", "chr1", 2, 1<<50, "+", "", 0, 0, "")))
	require.NoError(t, e.ApplySV(svRecord(variant.TypeTandemDuplication, "1", "chr1", 2, math.MaxInt, "+", "chr1", 2, math.MaxInt, "+")))
	require.NoError(t, e.ApplySNV(snv("chr1", 30, math.MaxInt, variant.TypeIns, "", "TT", "TT")))
	require.NoError(t, e.Finish())

	assert.Equal(t, 4, e.Stats().Failed)
	assert.Equal(t, testRef, seqOf(t, g.H1, "chr1"))
	assert.Equal(t, 2, logs.FilterMessage("skipping edit").Len())
	assert.Equal(t, 2, logs.FilterMessage("skipping deferred event").Len())
}

func TestEngine_Finished(t *testing.T) {
	e := NewEngine(newGenome(false, genome.Male), DefaultOptions())
	require.NoError(t, e.Finish())

	assert.ErrorIs(t, e.ApplySNV(snv("chr1", 0, 1, variant.TypeSNP, "A", "G", "G")), ErrFinished)
	assert.ErrorIs(t, e.ApplySV(svRecord(variant.TypeDeletion, "1", "chr1", 0, 1, "+", "", 0, 0, "")), ErrFinished)
	assert.ErrorIs(t, e.Finish(), ErrFinished)
}

func TestEngine_EmptyInputLeavesReference(t *testing.T) {
	g := newGenome(true, genome.Female)
	e := NewEngine(g, DefaultOptions())

	require.NoError(t, e.ApplySNVs(variant.NewSNVParserFromReader(strings.NewReader(""))))
	require.NoError(t, e.ApplySVs(variant.NewSVParserFromReader(strings.NewReader("# nothing\n"))))
	require.NoError(t, e.Finish())

	assert.Equal(t, testRef, seqOf(t, g.H1, "chr1"))
	assert.Equal(t, testRef, seqOf(t, g.H2, "chr1"))
}
