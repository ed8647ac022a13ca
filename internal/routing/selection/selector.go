// Package selection picks the winning vendor from a set of eligible
// candidates.
package selection

import (
	"bytes"
	"sort"

	vendorrepo "leadrouter_backend/internal/vendors/repository"
)

// DefaultTopK is the size of the performance re-rank window.
const DefaultTopK = 3

// Rank orders candidates for assignment. Fairness comes first: vendors
// who waited longest (never-assigned first, then oldest last_assigned_at)
// lead the queue, with the vendor id as a deterministic tie-break. The
// top window is then re-ranked by close rate; the stable sort keeps the
// fairness order between vendors with equal close rates, so a fresh pool
// still rotates round-robin.
func Rank(candidates []vendorrepo.Vendor, topK int) []vendorrepo.Vendor {
	if topK < 1 {
		topK = DefaultTopK
	}

	ranked := make([]vendorrepo.Vendor, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		return fairnessLess(ranked[i], ranked[j])
	})

	window := topK
	if window > len(ranked) {
		window = len(ranked)
	}
	head := ranked[:window]
	sort.SliceStable(head, func(i, j int) bool {
		return head[i].CloseRate > head[j].CloseRate
	})

	return ranked
}

// Pick returns the winning vendor, or false when there are no candidates.
func Pick(candidates []vendorrepo.Vendor, topK int) (vendorrepo.Vendor, bool) {
	if len(candidates) == 0 {
		return vendorrepo.Vendor{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}
	return Rank(candidates, topK)[0], true
}

func fairnessLess(a, b vendorrepo.Vendor) bool {
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt == nil:
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	case a.LastAssignedAt == nil:
		return true
	case b.LastAssignedAt == nil:
		return false
	case a.LastAssignedAt.Equal(*b.LastAssignedAt):
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	default:
		return a.LastAssignedAt.Before(*b.LastAssignedAt)
	}
}
