package apply

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hap/internal/genome"
	"github.com/inodb/vibe-hap/internal/variant"
)

// ErrFinished is returned when records are applied after Finish.
var ErrFinished = errors.New("engine already finished")

// Stats counts what a run did. Per-haplotype edits are counted once per
// haplotype.
type Stats struct {
	SNVRecords    int
	SVRecords     int
	Skipped       int
	Malformed     int
	Substitutions int
	Deletions     int
	Inversions    int
	Deferred      int
	Overwritten   int
	Replayed      int
	Ignored       int
	Failed        int
}

// Engine applies variant records to a genome.
type Engine struct {
	genome     *genome.Genome
	opts       Options
	classifier *Classifier
	editors    []*ImmediateEditor
	queues     []*Queue
	recorder   Recorder
	logger     *zap.Logger
	stats      Stats
	finished   bool
}

// NewEngine creates an engine editing g in place.
func NewEngine(g *genome.Genome, opts Options) *Engine {
	e := &Engine{
		genome:     g,
		opts:       opts,
		classifier: NewClassifier(opts.Types, g.H1.Has),
		recorder:   nopRecorder{},
		logger:     zap.NewNop(),
	}
	for _, hap := range g.Haplotypes() {
		e.editors = append(e.editors, NewImmediateEditor(hap))
		e.queues = append(e.queues, NewQueue(opts.KeyByKind))
	}
	return e
}

// SetLogger sets the logger for warning and info messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetRecorder sets the receiver of every logged edit.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// Stats returns the counts so far.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Pending returns the number of deferred events queued for haplotype h (0-based).
func (e *Engine) Pending(h int) int {
	return e.queues[h].Len()
}

func (e *Engine) skip(chrom string, pos, line int, kind, reason string) {
	e.stats.Skipped++
	e.recorder.Record(Edit{Chrom: chrom, Pos: pos, Kind: kind, Phase: PhaseSkipped, Line: line, Reason: reason})
}

// ApplySNV classifies one SNV record and applies or defers it on each haplotype.
func (e *Engine) ApplySNV(r *variant.SNVRecord) error {
	if e.finished {
		return ErrFinished
	}
	e.stats.SNVRecords++

	if reason := e.classifier.FilterSNV(r); reason != "" {
		e.skip(r.Chrom, r.Start, r.Line, r.Type, reason)
		return nil
	}

	for h, hap := range e.genome.Haplotypes() {
		if !hap.Has(r.Chrom) {
			continue
		}
		allele := r.Alleles[h]
		edit := Edit{
			Haplotype:    h + 1,
			Chrom:        r.Chrom,
			Pos:          r.Start,
			Kind:         r.Type,
			OriginChrom:  r.Chrom,
			OriginStart:  r.Start,
			OriginLength: r.Length(),
			Line:         r.Line,
		}

		var err error
		switch ClassifySNVAllele(r, allele) {
		case ActionNone:
			continue
		case ActionSubstitute:
			err = e.editors[h].Substitute(r.Chrom, r.Start, []byte(allele))
			e.countImmediate(&e.stats.Substitutions, err)
		case ActionMaskDeletion:
			edit.OriginLength = len(r.Ref)
			err = e.editors[h].MaskDeletion(r.Chrom, r.Start, len(r.Ref))
			e.countImmediate(&e.stats.Deletions, err)
		case ActionDefer:
			e.queue(h, DeferredEvent{
				Kind:         KindInsertion,
				OriginChrom:  r.Chrom,
				OriginStart:  r.Start,
				OriginLength: r.Length(),
				DestChrom:    r.Chrom,
				DestStart:    r.Start,
				DestLength:   r.Length(),
				Payload:      []byte(allele),
				Line:         r.Line,
			}, edit)
			continue
		}
		e.immediate(edit, err)
	}
	return nil
}

// ApplySV classifies one SV record and applies or defers it on each haplotype
// its frequency gate admits.
func (e *Engine) ApplySV(r *variant.SVRecord) error {
	if e.finished {
		return ErrFinished
	}
	e.stats.SVRecords++

	if reason := e.classifier.FilterSV(r); reason != "" {
		e.skip(r.OriginChrom, r.OriginStart, r.Line, r.Type, reason)
		return nil
	}

	action := ClassifySV(r)
	for h, hap := range e.genome.Haplotypes() {
		if !r.Frequency.Gate(h, e.opts.ZygosityThreshold) {
			continue
		}
		edit := Edit{
			Haplotype:    h + 1,
			Kind:         r.Type,
			OriginChrom:  r.OriginChrom,
			OriginStart:  r.OriginStart,
			OriginLength: r.OriginLength,
			Line:         r.Line,
		}

		var err error
		switch action {
		case ActionMaskDeletion, ActionInvert:
			if !hap.Has(r.OriginChrom) {
				continue
			}
			edit.Chrom, edit.Pos = r.OriginChrom, r.OriginStart
			if action == ActionMaskDeletion {
				err = e.editors[h].MaskDeletion(r.OriginChrom, r.OriginStart, r.OriginLength)
				e.countImmediate(&e.stats.Deletions, err)
			} else {
				err = e.editors[h].InvertInPlace(r.OriginChrom, r.OriginStart, r.OriginLength)
				e.countImmediate(&e.stats.Inversions, err)
			}
			e.immediate(edit, err)
		case ActionDefer:
			if !hap.Has(r.DestChrom) {
				continue
			}
			edit.Chrom, edit.Pos, edit.DestLength = r.DestChrom, r.DestStart, r.DestLength
			e.queue(h, DeferredEvent{
				Kind:         EventKind(r.Type),
				OriginChrom:  r.OriginChrom,
				OriginStart:  r.OriginStart,
				OriginLength: r.OriginLength,
				OriginStrand: r.OriginStrand,
				DestChrom:    r.DestChrom,
				DestStart:    r.DestStart,
				DestLength:   r.DestLength,
				DestStrand:   r.DestStrand,
				Line:         r.Line,
			}, edit)
		}
	}
	return nil
}

func (e *Engine) countImmediate(counter *int, err error) {
	if err == nil {
		*counter++
	}
}

func (e *Engine) immediate(edit Edit, err error) {
	if err != nil {
		e.stats.Failed++
		edit.Phase = PhaseFailed
		edit.Reason = err.Error()
		e.logger.Warn("skipping edit",
			zap.Int("haplotype", edit.Haplotype),
			zap.String("chrom", edit.Chrom),
			zap.Int("pos", edit.Pos),
			zap.Int("line", edit.Line),
			zap.String("kind", edit.Kind),
			zap.Error(err))
	} else {
		edit.Phase = PhaseImmediate
	}
	e.recorder.Record(edit)
}

func (e *Engine) queue(h int, ev DeferredEvent, edit Edit) {
	e.stats.Deferred++
	if e.queues[h].Add(ev) {
		e.stats.Overwritten++
		e.logger.Debug("deferred event replaces earlier event at same position",
			zap.Int("haplotype", h+1),
			zap.String("chrom", ev.DestChrom),
			zap.Int("pos", ev.DestStart),
			zap.Int("line", ev.Line))
	}
	edit.Phase = PhaseDeferred
	e.recorder.Record(edit)
}

// ApplySNVs applies every record from src. Malformed records are logged and
// skipped; any other read error stops the run.
func (e *Engine) ApplySNVs(src variant.SNVSource) error {
	for {
		r, err := src.Next()
		if err != nil {
			if e.malformed(err) {
				continue
			}
			return fmt.Errorf("read snv record: %w", err)
		}
		if r == nil {
			return nil
		}
		if err := e.ApplySNV(r); err != nil {
			return err
		}
	}
}

// ApplySVs applies every record from src, with the same error handling as
// ApplySNVs.
func (e *Engine) ApplySVs(src variant.SVSource) error {
	for {
		r, err := src.Next()
		if err != nil {
			if e.malformed(err) {
				continue
			}
			return fmt.Errorf("read sv record: %w", err)
		}
		if r == nil {
			return nil
		}
		if err := e.ApplySV(r); err != nil {
			return err
		}
	}
}

func (e *Engine) malformed(err error) bool {
	var mre *variant.MalformedRecordError
	if !errors.As(err, &mre) {
		return false
	}
	e.stats.Malformed++
	e.logger.Warn("skipping malformed record",
		zap.String("format", mre.Format),
		zap.Int("line", mre.Line),
		zap.String("reason", mre.Message))
	return true
}

// Finish replays the deferred events of every haplotype. Each haplotype is
// snapshotted after its immediate edits and before its first deferred edit.
// The genome's buffers then hold the final sequences, placeholders included.
func (e *Engine) Finish() error {
	if e.finished {
		return ErrFinished
	}
	e.finished = true

	for h, hap := range e.genome.Haplotypes() {
		q := e.queues[h]
		if q.Len() == 0 {
			continue
		}
		snap := hap.SnapshotOf(q.OriginChromosomes()...)
		for _, res := range q.Replay(hap, snap) {
			e.replayed(h, res)
		}
	}

	e.logger.Info("variant application complete",
		zap.Int("snv_records", e.stats.SNVRecords),
		zap.Int("sv_records", e.stats.SVRecords),
		zap.Int("skipped", e.stats.Skipped),
		zap.Int("malformed", e.stats.Malformed),
		zap.Int("substitutions", e.stats.Substitutions),
		zap.Int("deletions", e.stats.Deletions),
		zap.Int("inversions", e.stats.Inversions),
		zap.Int("deferred", e.stats.Deferred),
		zap.Int("overwritten", e.stats.Overwritten),
		zap.Int("replayed", e.stats.Replayed),
		zap.Int("ignored", e.stats.Ignored),
		zap.Int("failed", e.stats.Failed))
	return nil
}

func (e *Engine) replayed(h int, res ReplayResult) {
	ev := res.Event
	edit := Edit{
		Haplotype:    h + 1,
		Chrom:        ev.DestChrom,
		Pos:          ev.DestStart,
		Kind:         string(ev.Kind),
		OriginChrom:  ev.OriginChrom,
		OriginStart:  ev.OriginStart,
		OriginLength: ev.OriginLength,
		DestLength:   ev.DestLength,
		NetChange:    res.NetChange,
		Line:         ev.Line,
	}

	switch res.Status {
	case Replayed:
		e.stats.Replayed++
		edit.Phase = PhaseReplayed
	case Ignored:
		e.stats.Ignored++
		edit.Phase = PhaseIgnored
	case Failed:
		e.stats.Failed++
		edit.Phase = PhaseFailed
		edit.Reason = res.Err.Error()
		e.logger.Warn("skipping deferred event",
			zap.Int("haplotype", h+1),
			zap.String("chrom", ev.DestChrom),
			zap.Int("pos", ev.DestStart),
			zap.Int("line", ev.Line),
			zap.String("kind", string(ev.Kind)),
			zap.Error(res.Err))
	}
	e.recorder.Record(edit)
}
