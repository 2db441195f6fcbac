package patch

// Wildcard marks a "don't care" position in an anchor or before pattern.
// Signatures are hand-curated, so a literal 0x2A never needs to be matched.
const Wildcard byte = '*'

// Match reports whether candidate equals pattern at every position where the
// pattern is not Wildcard. Sequences of different length never match.
func Match(candidate, pattern []byte) bool {
	if len(candidate) != len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p != Wildcard && p != candidate[i] {
			return false
		}
	}
	return true
}
