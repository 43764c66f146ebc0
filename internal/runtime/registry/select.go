package registry

import (
	"cmp"
	"slices"
)

// SelectByPriority returns the highest-priority handler accepted by match.
// Handlers with equal priority are tried in snapshot order. The snapshot is
// not modified.
func SelectByPriority[H Prioritized](snapshot []H, match func(H) bool) (H, bool) {
	ordered := slices.Clone(snapshot)
	slices.SortStableFunc(ordered, func(a, b H) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
	for _, h := range ordered {
		if match(h) {
			return h, true
		}
	}
	var zero H
	return zero, false
}

// Filter keeps every handler accepted by keep, in snapshot order. The result
// is never nil.
func Filter[H Handler](snapshot []H, keep func(H) bool) []H {
	out := make([]H, 0, len(snapshot))
	for _, h := range snapshot {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

// First returns the first handler in snapshot order accepted by match.
func First[H Handler](snapshot []H, match func(H) bool) (H, bool) {
	for _, h := range snapshot {
		if match(h) {
			return h, true
		}
	}
	var zero H
	return zero, false
}
