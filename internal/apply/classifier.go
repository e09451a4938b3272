package apply

import (
	"github.com/inodb/vibe-hap/internal/variant"
)

// Action is what to do with one allele of a record on one haplotype.
type Action int

const (
	ActionNone Action = iota
	ActionSubstitute
	ActionMaskDeletion
	ActionInvert
	ActionDefer
)

func (a Action) String() string {
	switch a {
	case ActionSubstitute:
		return "substitute"
	case ActionMaskDeletion:
		return "mask-deletion"
	case ActionInvert:
		return "invert"
	case ActionDefer:
		return "defer"
	default:
		return "none"
	}
}

// Skip reasons for whole records.
const (
	SkipNoCall       = "no-call"
	SkipExcludedType = "excluded-type"
	SkipNotAllowed   = "type-not-allowed"
	SkipUnknownChrom = "unknown-chromosome"
)

// Classifier decides which records are kept and what each kept allele does.
type Classifier struct {
	types variant.TypeSet
	known func(chrom string) bool
}

// NewClassifier creates a classifier. known reports whether the reference
// carries a chromosome.
func NewClassifier(types variant.TypeSet, known func(chrom string) bool) *Classifier {
	return &Classifier{types: types, known: known}
}

// FilterSNV returns a skip reason, or "" when the record is kept.
func (c *Classifier) FilterSNV(r *variant.SNVRecord) string {
	switch {
	case r.CallStatus == variant.NoCall:
		return SkipNoCall
	case r.Type == variant.TypeRef || r.Type == variant.TypeComplex:
		return SkipExcludedType
	case !c.types.Allows(r.Type):
		return SkipNotAllowed
	case !c.known(r.Chrom):
		return SkipUnknownChrom
	}
	return ""
}

// ClassifySNVAllele decides the action for one haplotype's allele. The rules
// are tried in order:
//
//  1. a same-length allele other than "?" that differs from the reference is
//     substituted;
//  2. on a deletion record, any non-empty allele masks the reference span;
//  3. any other allele that differs from the reference and is not "?" is
//     deferred, an empty one leaving only the anchor base.
//
// Everything else leaves the haplotype untouched.
func ClassifySNVAllele(r *variant.SNVRecord, allele string) Action {
	differs := allele != "?" && allele != r.Ref
	switch {
	case differs && len(allele) == len(r.Ref):
		return ActionSubstitute
	case r.Type == variant.TypeDel && len(allele) >= 1:
		return ActionMaskDeletion
	case differs:
		return ActionDefer
	}
	return ActionNone
}

// FilterSV returns a skip reason, or "" when the record is kept. In-place
// types need their origin chromosome; others need origin and destination.
func (c *Classifier) FilterSV(r *variant.SVRecord) string {
	if !c.types.Allows(r.Type) {
		return SkipNotAllowed
	}
	if !c.known(r.OriginChrom) {
		return SkipUnknownChrom
	}
	if !r.InPlace() && !c.known(r.DestChrom) {
		return SkipUnknownChrom
	}
	return ""
}

// ClassifySV returns the action an SV type calls for.
func ClassifySV(r *variant.SVRecord) Action {
	switch r.Type {
	case variant.TypeDeletion:
		return ActionMaskDeletion
	case variant.TypeProbableInversion:
		return ActionInvert
	}
	return ActionDefer
}
