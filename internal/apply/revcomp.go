package apply

var complement [256]byte

func init() {
	for i := range complement {
		complement[i] = byte(i)
	}
	pairs := []string{"AT", "CG", "at", "cg"}
	for _, p := range pairs {
		complement[p[0]] = p[1]
		complement[p[1]] = p[0]
	}
}

// ReverseComplement returns the reverse complement of seq. Case is kept;
// bases other than A, C, G and T (including placeholders) map to themselves.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, c := range seq {
		out[len(seq)-1-i] = complement[c]
	}
	return out
}

// reverse returns seq reversed without complementing.
func reverse(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, c := range seq {
		out[len(seq)-1-i] = c
	}
	return out
}
