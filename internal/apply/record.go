package apply

// Phase says at which point of a run an edit was logged.
type Phase string

const (
	PhaseImmediate Phase = "immediate"
	PhaseDeferred  Phase = "deferred"
	PhaseReplayed  Phase = "replayed"
	PhaseIgnored   Phase = "ignored"
	PhaseFailed    Phase = "failed"
	PhaseSkipped   Phase = "skipped"
)

// Edit describes one edit made, queued or refused on a haplotype.
type Edit struct {
	Haplotype    int // 1 or 2; 0 for records skipped before haplotype selection
	Chrom        string
	Pos          int
	Kind         string
	Phase        Phase
	OriginChrom  string
	OriginStart  int
	OriginLength int
	DestLength   int
	NetChange    int
	Line         int
	Reason       string
}

// Recorder receives every edit an Engine logs.
type Recorder interface {
	Record(e Edit)
}

// EditLog is a Recorder that keeps edits in memory.
type EditLog struct {
	Edits []Edit
}

// Record appends e.
func (l *EditLog) Record(e Edit) {
	l.Edits = append(l.Edits, e)
}

// ByPhase returns the edits logged in phase p.
func (l *EditLog) ByPhase(p Phase) []Edit {
	var out []Edit
	for _, e := range l.Edits {
		if e.Phase == p {
			out = append(out, e)
		}
	}
	return out
}

type nopRecorder struct{}

func (nopRecorder) Record(Edit) {}
