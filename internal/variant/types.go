// Package variant decodes SNV and SV call tables into typed records.
package variant

import (
	"sort"
	"strings"
)

// SNV variant types.
const (
	TypeSNP     = "snp"
	TypeIns     = "ins"
	TypeDel     = "del"
	TypeSub     = "sub"
	TypeRef     = "ref"
	TypeComplex = "complex"
)

// SV variant types.
const (
	TypeDeletion          = "deletion"
	TypeProbableInversion = "probable-inversion"
	TypeDistalDuplication = "distal-duplication"
	TypeInterchromosomal  = "interchromosomal"
	TypeInversion         = "inversion"
	TypeTandemDuplication = "tandem-duplication"
)

// NoCall is the call status of an SNV row with no usable call.
const NoCall = "no-call"

// KnownTypes lists every type the engine can apply.
var KnownTypes = []string{
	TypeSNP, TypeIns, TypeDel, TypeSub,
	TypeDeletion, TypeProbableInversion, TypeDistalDuplication,
	TypeInterchromosomal, TypeInversion, TypeTandemDuplication,
}

// TypeSet is an allow-list of variant types.
type TypeSet map[string]bool

// DefaultTypes returns an allow-list holding every known type.
func DefaultTypes() TypeSet {
	return NewTypeSet(KnownTypes)
}

// NewTypeSet builds an allow-list from names. Names are case-insensitive and
// may themselves be comma-separated lists.
func NewTypeSet(names []string) TypeSet {
	ts := make(TypeSet)
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				ts[part] = true
			}
		}
	}
	return ts
}

// Allows reports whether t is on the list.
func (ts TypeSet) Allows(t string) bool {
	return ts[t]
}

// Unknown returns allow-listed names the engine has no handler for.
func (ts TypeSet) Unknown() []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, k := range KnownTypes {
		known[k] = true
	}
	var out []string
	for t := range ts {
		if !known[t] {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Names returns the allow-listed types in sorted order.
func (ts TypeSet) Names() []string {
	out := make([]string, 0, len(ts))
	for t := range ts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
