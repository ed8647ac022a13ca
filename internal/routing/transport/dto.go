// Package transport defines request and response DTOs for routing
// endpoints.
package transport

import (
	"github.com/google/uuid"
)

type ReassignRequest struct {
	Reason           string      `json:"reason" validate:"required,max=500"`
	ExcludeVendorIDs []uuid.UUID `json:"excludeVendorIds" validate:"omitempty,max=50"`
	Force            bool        `json:"force"`
}

// AssignmentResponse reports the outcome of an assign or reassign call.
// Duplicate marks a replayed reassignment that was absorbed without
// routing again.
type AssignmentResponse struct {
	LeadID     uuid.UUID  `json:"leadId"`
	Status     string     `json:"status"`
	VendorID   *uuid.UUID `json:"vendorId,omitempty"`
	VendorName string     `json:"vendorName,omitempty"`
	EventType  string     `json:"eventType,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Duplicate  bool       `json:"duplicate,omitempty"`
}
