package performance

// MoveReference moves refs[fromIndex] to toIndex with stable move
// semantics: the element is removed first and reinserted at toIndex in
// the already-shortened slice. Out-of-range indices are clamped. Both
// playlist and queue reorders share these semantics.
func MoveReference(refs []Reference, fromIndex, toIndex int) []Reference {
	if len(refs) == 0 {
		return refs
	}

	fromIndex = clamp(fromIndex, 0, len(refs)-1)
	ref := refs[fromIndex]
	refs = append(refs[:fromIndex], refs[fromIndex+1:]...)

	toIndex = clamp(toIndex, 0, len(refs))
	return append(refs[:toIndex], append([]Reference{ref}, refs[toIndex:]...)...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
