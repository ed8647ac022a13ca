// Package assignment orchestrates lead routing: match, select, commit,
// record. Commits ride compare-and-set status updates so concurrent
// routers settle on exactly one winner per lead.
package assignment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"leadrouter_backend/internal/events"
	leadrepo "leadrouter_backend/internal/leads/repository"
	"leadrouter_backend/internal/routing/matching"
	"leadrouter_backend/internal/routing/selection"
	"leadrouter_backend/internal/routing/transport"
	vendorrepo "leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/clock"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	reasonNoEligible = "no eligible vendor"
	reasonCapReached = "reassignment cap reached"
)

// LeadStore is the slice of the leads repository the router needs.
// CommitAssignment carries the assignment timestamp because the commit
// stamps the winner's last_assigned_at in the same transaction.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID, accountID uuid.UUID) (leadrepo.Lead, error)
	CommitAssignment(ctx context.Context, id uuid.UUID, vendorID uuid.UUID, fromStatus string, assignedAt time.Time) (bool, error)
	BeginReassign(ctx context.Context, id uuid.UUID, reassignKey string) (bool, error)
	CloseNoMatch(ctx context.Context, id uuid.UUID, fromStatus string) (bool, error)
	AppendAssignmentEvent(ctx context.Context, event leadrepo.AssignmentEvent) error
	ListEverAssignedVendorIDs(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error)
}

// VendorStore is the slice of the vendors repository the router needs.
type VendorStore interface {
	ListAssignable(ctx context.Context, accountID uuid.UUID) ([]vendorrepo.Vendor, error)
}

// Service routes leads to vendors.
type Service struct {
	leads        LeadStore
	vendors      VendorStore
	bus          events.Bus
	log          *logger.Logger
	clk          clock.Clock
	accountID    uuid.UUID
	topK         int
	maxReassigns int
}

// New creates a new assignment service.
func New(
	leads LeadStore,
	vendors VendorStore,
	bus events.Bus,
	log *logger.Logger,
	clk clock.Clock,
	accountID uuid.UUID,
	topK int,
	maxReassigns int,
) *Service {
	if topK < 1 {
		topK = selection.DefaultTopK
	}
	return &Service{
		leads:        leads,
		vendors:      vendors,
		bus:          bus,
		log:          log,
		clk:          clk,
		accountID:    accountID,
		topK:         topK,
		maxReassigns: maxReassigns,
	}
}

// Assign routes a new lead to a vendor. Losing a concurrent race for the
// same lead surfaces as a conflict; the lead keeps the first winner.
func (s *Service) Assign(ctx context.Context, leadID uuid.UUID) (transport.AssignmentResponse, error) {
	lead, err := s.leads.GetByID(ctx, leadID, s.accountID)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	switch lead.Status {
	case leadrepo.StatusNew:
		return s.route(ctx, lead, leadrepo.StatusNew, leadrepo.EventAssigned, "", nil)
	case leadrepo.StatusReassigning:
		// A reassignment that crashed between the status flip and the
		// commit can be resumed through the same endpoint.
		exclude, err := s.historyExclusions(ctx, lead)
		if err != nil {
			return transport.AssignmentResponse{}, err
		}
		return s.route(ctx, lead, leadrepo.StatusReassigning, leadrepo.EventReassigned, "", exclude)
	default:
		return transport.AssignmentResponse{}, apperr.Conflict("lead is not routable in status " + lead.Status)
	}
}

// Reassign pulls a lead back from its current vendor and routes it again,
// excluding every vendor that already held it. Requests carry a
// fingerprint of reason and exclusions; a replay of the same request is
// absorbed without routing twice unless force is set.
func (s *Service) Reassign(ctx context.Context, leadID uuid.UUID, req transport.ReassignRequest) (transport.AssignmentResponse, error) {
	key := reassignKey(req.Reason, req.ExcludeVendorIDs)

	lead, err := s.leads.GetByID(ctx, leadID, s.accountID)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	if !req.Force && lead.LastReassignKey == key {
		return transport.AssignmentResponse{
			LeadID:    lead.ID,
			Status:    lead.Status,
			VendorID:  lead.AssignedVendorID,
			Duplicate: true,
		}, nil
	}

	if lead.Status != leadrepo.StatusAssigned {
		return transport.AssignmentResponse{}, apperr.Conflict("lead is not assigned")
	}

	if s.maxReassigns > 0 && lead.ReassignCount >= s.maxReassigns {
		return s.closeNoMatch(ctx, lead, leadrepo.StatusAssigned, reasonCapReached)
	}

	moved, err := s.leads.BeginReassign(ctx, leadID, key)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	if !moved {
		return transport.AssignmentResponse{}, apperr.Conflict("lead changed while starting reassignment")
	}

	exclude, err := s.historyExclusions(ctx, lead)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	for _, id := range req.ExcludeVendorIDs {
		exclude[id] = struct{}{}
	}
	if lead.AssignedVendorID != nil {
		exclude[*lead.AssignedVendorID] = struct{}{}
	}

	return s.route(ctx, lead, leadrepo.StatusReassigning, leadrepo.EventReassigned, req.Reason, exclude)
}

func (s *Service) route(
	ctx context.Context,
	lead leadrepo.Lead,
	fromStatus string,
	eventType string,
	reason string,
	exclude map[uuid.UUID]struct{},
) (transport.AssignmentResponse, error) {
	pool, err := s.vendors.ListAssignable(ctx, s.accountID)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}

	eligible := matching.Eligible(lead, pool, exclude)
	winner, ok := selection.Pick(eligible, s.topK)
	if !ok {
		return s.closeNoMatch(ctx, lead, fromStatus, reasonNoEligible)
	}

	now := s.clk.Now()
	committed, err := s.leads.CommitAssignment(ctx, lead.ID, winner.ID, fromStatus, now)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	if !committed {
		return transport.AssignmentResponse{}, apperr.Conflict("lead was routed concurrently")
	}

	if err := s.leads.AppendAssignmentEvent(ctx, leadrepo.AssignmentEvent{
		ID:               uuid.New(),
		LeadID:           lead.ID,
		PreviousVendorID: lead.AssignedVendorID,
		VendorID:         &winner.ID,
		EventType:        eventType,
		Reason:           reason,
		CreatedAt:        now,
	}); err != nil {
		return transport.AssignmentResponse{}, err
	}

	s.log.AssignmentEvent(eventType, lead.ID.String(), winner.ID.String(), reason)
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:             events.NewBaseEvent(),
		AccountID:             s.accountID,
		LeadID:                lead.ID,
		LeadExternalRef:       lead.ExternalRef,
		VendorID:              winner.ID,
		VendorExternalUserRef: winner.ExternalUserRef,
		Reassigned:            eventType == leadrepo.EventReassigned,
		Reason:                reason,
	})

	return transport.AssignmentResponse{
		LeadID:     lead.ID,
		Status:     leadrepo.StatusAssigned,
		VendorID:   &winner.ID,
		VendorName: winner.Name,
		EventType:  eventType,
		Reason:     reason,
	}, nil
}

func (s *Service) closeNoMatch(ctx context.Context, lead leadrepo.Lead, fromStatus, reason string) (transport.AssignmentResponse, error) {
	closed, err := s.leads.CloseNoMatch(ctx, lead.ID, fromStatus)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	if !closed {
		return transport.AssignmentResponse{}, apperr.Conflict("lead changed while closing")
	}

	if err := s.leads.AppendAssignmentEvent(ctx, leadrepo.AssignmentEvent{
		ID:               uuid.New(),
		LeadID:           lead.ID,
		PreviousVendorID: lead.AssignedVendorID,
		EventType:        leadrepo.EventClosedNoMatch,
		Reason:           reason,
		CreatedAt:        s.clk.Now(),
	}); err != nil {
		return transport.AssignmentResponse{}, err
	}

	s.log.AssignmentEvent(leadrepo.EventClosedNoMatch, lead.ID.String(), "", reason)
	s.bus.Publish(ctx, events.LeadClosedNoMatch{
		BaseEvent: events.NewBaseEvent(),
		AccountID: s.accountID,
		LeadID:    lead.ID,
		Reason:    reason,
	})

	return transport.AssignmentResponse{
		LeadID:    lead.ID,
		Status:    leadrepo.StatusClosedNoMatch,
		EventType: leadrepo.EventClosedNoMatch,
		Reason:    reason,
	}, nil
}

func (s *Service) historyExclusions(ctx context.Context, lead leadrepo.Lead) (map[uuid.UUID]struct{}, error) {
	ids, err := s.leads.ListEverAssignedVendorIDs(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	exclude := make(map[uuid.UUID]struct{}, len(ids)+1)
	for _, id := range ids {
		exclude[id] = struct{}{}
	}
	return exclude, nil
}

// reassignKey fingerprints a reassignment request. Exclusions are sorted
// first so two requests naming the same set in different order collapse
// to the same key.
func reassignKey(reason string, exclude []uuid.UUID) string {
	sorted := make([]string, 0, len(exclude))
	for _, id := range exclude {
		sorted = append(sorted, id.String())
	}
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(reason))
	for _, id := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
