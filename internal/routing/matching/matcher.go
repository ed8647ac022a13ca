// Package matching filters the vendor pool down to the vendors eligible
// for a given lead.
package matching

import (
	"strings"

	leadrepo "leadrouter_backend/internal/leads/repository"
	vendorrepo "leadrouter_backend/internal/vendors/repository"

	"github.com/google/uuid"
)

// Eligible returns the vendors that may receive the lead, in the order the
// pool was given. A vendor qualifies when it serves the requested work and
// its coverage contains the lead's location; excluded vendors never
// qualify regardless of fit.
func Eligible(lead leadrepo.Lead, pool []vendorrepo.Vendor, exclude map[uuid.UUID]struct{}) []vendorrepo.Vendor {
	matched := make([]vendorrepo.Vendor, 0, len(pool))
	for _, vendor := range pool {
		if _, skip := exclude[vendor.ID]; skip {
			continue
		}
		if !servesRequest(vendor, lead) {
			continue
		}
		if !vendor.Coverage.Contains(lead.County, lead.State) {
			continue
		}
		matched = append(matched, vendor)
	}
	return matched
}

// servesRequest reports whether any capability covers the lead's request.
// Category equality alone qualifies, and so does an exact specific-service
// match on its own: a vendor working in the lead's category takes any
// service in it, and a specialist in the exact requested service qualifies
// even when the capability sits under another category label.
func servesRequest(vendor vendorrepo.Vendor, lead leadrepo.Lead) bool {
	for _, capability := range vendor.Capabilities {
		if strings.EqualFold(capability.Category, lead.RequestedCategory) {
			return true
		}
		if capability.SpecificService != "" && lead.RequestedService != "" &&
			strings.EqualFold(capability.SpecificService, lead.RequestedService) {
			return true
		}
	}
	return false
}
