// Package apply applies called variants to haplotype buffers.
//
// Edits that keep a buffer's length (substitutions, deletion placeholders,
// in-place inversions) are applied as records arrive. Edits that change a
// buffer's length or copy material from another locus are deferred and
// replayed once every record is in, highest position first, reading their
// source material from a snapshot taken before replay starts.
package apply

import (
	"fmt"

	"github.com/inodb/vibe-hap/internal/variant"
)

// DefaultZygosityThreshold is the per-haplotype frequency an SV must exceed
// to be applied to that haplotype.
const DefaultZygosityThreshold = 0.1

// Options configures an Engine.
type Options struct {
	// Types is the allow-list of variant types to apply.
	Types variant.TypeSet

	// ZygosityThreshold gates "f1;f2" SV frequencies per haplotype.
	ZygosityThreshold float64

	// KeyByKind adds the event kind to the deferred-event key, so events of
	// different kinds at one position are all kept. When false the key is the
	// position alone and the last record at a position wins.
	KeyByKind bool
}

// DefaultOptions returns options with every known type allowed.
func DefaultOptions() Options {
	return Options{
		Types:             variant.DefaultTypes(),
		ZygosityThreshold: DefaultZygosityThreshold,
	}
}

// Validate checks option values.
func (o Options) Validate() error {
	if o.ZygosityThreshold < 0 || o.ZygosityThreshold > 1 {
		return fmt.Errorf("zygosity threshold %g outside [0,1]", o.ZygosityThreshold)
	}
	if len(o.Types) == 0 {
		return fmt.Errorf("no variant types allowed")
	}
	return nil
}
