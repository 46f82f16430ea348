package util

// SameMembers reports whether a and b hold the same elements regardless of
// order. Duplicates must match in count.
func SameMembers[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	counts := make(map[T]int, len(a))
	for _, x := range a {
		counts[x]++
	}
	for _, y := range b {
		counts[y]--
		if counts[y] < 0 {
			return false
		}
	}
	return true
}

// Missing returns the elements of want absent from have.
func Missing[T comparable](want, have []T) []T {
	set := make(map[T]struct{}, len(have))
	for _, x := range have {
		set[x] = struct{}{}
	}

	var out []T
	for _, w := range want {
		if _, ok := set[w]; !ok {
			out = append(out, w)
		}
	}
	return out
}
