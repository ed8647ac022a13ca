package events

import "github.com/google/uuid"

// LeadAssigned fires after an assignment transition commits. The crmsync
// module pushes it to the source of truth asynchronously.
type LeadAssigned struct {
	BaseEvent
	AccountID             uuid.UUID
	LeadID                uuid.UUID
	LeadExternalRef       string
	VendorID              uuid.UUID
	VendorExternalUserRef string
	Reassigned            bool
	Reason                string
}

// EventName implements Event.
func (LeadAssigned) EventName() string { return "lead.assigned" }

// LeadClosedNoMatch fires when a reassignment exhausts its candidates or cap.
// Expected business state, not a failure: operators watch for these.
type LeadClosedNoMatch struct {
	BaseEvent
	AccountID uuid.UUID
	LeadID    uuid.UUID
	Reason    string
}

// EventName implements Event.
func (LeadClosedNoMatch) EventName() string { return "lead.closed_no_match" }

// ReconcileCompleted summarizes a finished reconciliation batch.
type ReconcileCompleted struct {
	BaseEvent
	Entity  string
	Updated int
	Deleted int
	Added   int
	Errors  int
}

// EventName implements Event.
func (ReconcileCompleted) EventName() string { return "reconcile.completed" }
