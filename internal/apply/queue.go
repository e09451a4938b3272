package apply

import (
	"fmt"
	"sort"

	"github.com/inodb/vibe-hap/internal/genome"
	"github.com/inodb/vibe-hap/internal/variant"
)

// EventKind names what a deferred event does at replay.
type EventKind string

const (
	KindInsertion         EventKind = "insertion"
	KindTandemDuplication EventKind = variant.TypeTandemDuplication
	KindDistalDuplication EventKind = variant.TypeDistalDuplication
	KindInterchromosomal  EventKind = variant.TypeInterchromosomal
	KindInversion         EventKind = variant.TypeInversion
)

// DeferredEvent is a length-changing or cross-locus edit waiting for replay.
type DeferredEvent struct {
	Kind         EventKind
	OriginChrom  string
	OriginStart  int
	OriginLength int
	OriginStrand string
	DestChrom    string
	DestStart    int
	DestLength   int
	DestStrand   string
	Payload      []byte // inserted allele, insertions only
	Line         int    // source line, for diagnostics
}

type eventKey struct {
	pos  int
	kind EventKind
}

// Queue holds the deferred events of one haplotype, keyed by destination
// chromosome and destination position.
type Queue struct {
	keyByKind bool
	events    map[string]map[eventKey]*DeferredEvent
	count     int
}

// NewQueue creates an empty queue. With keyByKind the event kind is part of
// the key; otherwise a later event at the same position replaces the earlier.
func NewQueue(keyByKind bool) *Queue {
	return &Queue{
		keyByKind: keyByKind,
		events:    make(map[string]map[eventKey]*DeferredEvent),
	}
}

func (q *Queue) key(e *DeferredEvent) eventKey {
	k := eventKey{pos: e.DestStart}
	if q.keyByKind {
		k.kind = e.Kind
	}
	return k
}

// Add stores e and reports whether it replaced an event with the same key.
// Last write wins.
func (q *Queue) Add(e DeferredEvent) bool {
	byPos, ok := q.events[e.DestChrom]
	if !ok {
		byPos = make(map[eventKey]*DeferredEvent)
		q.events[e.DestChrom] = byPos
	}
	k := q.key(&e)
	_, replaced := byPos[k]
	byPos[k] = &e
	if !replaced {
		q.count++
	}
	return replaced
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return q.count
}

// Chromosomes returns destination chromosomes with pending events, sorted.
func (q *Queue) Chromosomes() []string {
	out := make([]string, 0, len(q.events))
	for chrom := range q.events {
		out = append(out, chrom)
	}
	sort.Strings(out)
	return out
}

// OriginChromosomes returns every chromosome a pending event reads from.
func (q *Queue) OriginChromosomes() []string {
	seen := make(map[string]bool)
	for _, byPos := range q.events {
		for _, e := range byPos {
			seen[e.OriginChrom] = true
		}
	}
	out := make([]string, 0, len(seen))
	for chrom := range seen {
		out = append(out, chrom)
	}
	sort.Strings(out)
	return out
}

// descending returns the keys of chrom from highest to lowest position.
// Ties (keyByKind only) are broken by descending kind name.
func (q *Queue) descending(chrom string) []eventKey {
	byPos := q.events[chrom]
	keys := make([]eventKey, 0, len(byPos))
	for k := range byPos {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pos != keys[j].pos {
			return keys[i].pos > keys[j].pos
		}
		return keys[i].kind > keys[j].kind
	})
	return keys
}

// ReplayStatus is the outcome of replaying one event.
type ReplayStatus int

const (
	Replayed ReplayStatus = iota
	Ignored               // unknown kind
	Failed                // out of range or missing chromosome
)

func (s ReplayStatus) String() string {
	switch s {
	case Replayed:
		return "replayed"
	case Ignored:
		return "ignored"
	default:
		return "failed"
	}
}

// ReplayResult reports what happened to one event.
type ReplayResult struct {
	Event     *DeferredEvent
	Status    ReplayStatus
	NetChange int
	Err       error
}

// Replay applies every pending event to live. Chromosomes are visited in
// sorted order and, within a chromosome, positions from highest to lowest so
// that no edit shifts the position of one still pending. Material copied from
// elsewhere is read from snap, which must not alias live.
func (q *Queue) Replay(live *genome.Haplotype, snap *genome.Snapshot) []ReplayResult {
	results := make([]ReplayResult, 0, q.count)
	for _, chrom := range q.Chromosomes() {
		results = q.replayKeys(live, snap, chrom, q.descending(chrom), results)
	}
	return results
}

func (q *Queue) replayKeys(live *genome.Haplotype, snap *genome.Snapshot, chrom string, keys []eventKey, results []ReplayResult) []ReplayResult {
	byPos := q.events[chrom]
	for _, k := range keys {
		e := byPos[k]
		net, known, err := replayEvent(live, snap, e)
		r := ReplayResult{Event: e, NetChange: net, Err: err}
		switch {
		case !known:
			r.Status = Ignored
		case err != nil:
			r.Status = Failed
		default:
			r.Status = Replayed
		}
		results = append(results, r)
	}
	return results
}

// replayEvent applies e and returns the net length change. known is false for
// kinds with no handler, which are skipped without error.
func replayEvent(live *genome.Haplotype, snap *genome.Snapshot, e *DeferredEvent) (net int, known bool, err error) {
	switch e.Kind {
	case KindInsertion:
	case KindTandemDuplication, KindDistalDuplication, KindInterchromosomal, KindInversion:
	default:
		return 0, false, nil
	}

	buf, ok := live.Buffer(e.DestChrom)
	if !ok {
		return 0, true, fmt.Errorf("%w: %s", ErrMissingChromosome, e.DestChrom)
	}

	var (
		start   = e.DestStart
		length  int
		content []byte
	)

	switch e.Kind {
	case KindInsertion:
		// The base at the position is kept as an anchor ahead of the payload.
		length = e.OriginLength
		if start >= 0 && start < buf.Len() {
			content = append(content, buf.Bytes()[start])
		}
		content = append(content, e.Payload...)

	case KindTandemDuplication:
		seg, err := snap.Slice(e.OriginChrom, e.OriginStart, e.OriginLength)
		if err != nil {
			return 0, true, err
		}
		length = e.OriginLength
		content = append(seg, seg...)

	default:
		seg, err := snap.Slice(e.OriginChrom, e.OriginStart, e.OriginLength)
		if err != nil {
			return 0, true, err
		}
		if e.OriginStrand != e.DestStrand {
			seg = ReverseComplement(seg)
		}
		length = e.DestLength
		content = seg
	}

	if err := buf.ReplaceRange(start, length, content); err != nil {
		return 0, true, err
	}
	return len(content) - length, true, nil
}
