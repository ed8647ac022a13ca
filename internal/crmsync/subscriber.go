// Package crmsync pushes committed assignments back to the CRM source of
// truth. It listens on the event bus so a slow or flapping CRM never sits
// in the routing request path.
package crmsync

import (
	"context"
	"fmt"

	"leadrouter_backend/internal/crm"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/retry"
)

// Subscriber pushes lead.assigned events to the CRM.
type Subscriber struct {
	crm    crm.Client
	log    *logger.Logger
	policy retry.Policy
}

// NewSubscriber creates a new CRM push subscriber.
func NewSubscriber(crmClient crm.Client, log *logger.Logger, policy retry.Policy) *Subscriber {
	return &Subscriber{crm: crmClient, log: log, policy: policy}
}

// Register attaches the subscriber to the bus.
func (s *Subscriber) Register(bus events.Bus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(s.handleLeadAssigned))
}

func (s *Subscriber) handleLeadAssigned(ctx context.Context, event events.Event) error {
	assigned, ok := event.(events.LeadAssigned)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	// A lead that only exists locally has nothing to push yet; the next
	// reconciliation pass links it up.
	if assigned.LeadExternalRef == "" {
		s.log.Debug("skipping crm push for unsynced lead", "lead_id", assigned.LeadID.String())
		return nil
	}

	result := s.policy.Do(ctx, func(ctx context.Context) error {
		return s.crm.PushAssignment(ctx, assigned.LeadExternalRef, assigned.VendorExternalUserRef)
	})
	if result.Outcome != retry.OutcomeSuccess {
		s.log.Error("crm assignment push failed",
			"lead_ref", assigned.LeadExternalRef,
			"vendor_user_ref", assigned.VendorExternalUserRef,
			"outcome", result.Outcome.String(),
			"attempts", result.Attempts,
			"error", result.Err,
		)
		return result.Err
	}

	s.log.Info("crm assignment pushed",
		"lead_ref", assigned.LeadExternalRef,
		"vendor_user_ref", assigned.VendorExternalUserRef,
		"attempts", result.Attempts,
	)
	return nil
}
