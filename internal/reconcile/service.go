// Package reconcile keeps the local registry aligned with the CRM source
// of truth. Each run walks two passes: validate (re-fetch every synced
// record, the CRM wins) and discover (adopt qualifying records we have
// not seen yet). One bad record never aborts a batch; failures are
// counted and logged per record.
package reconcile

import (
	"context"
	"time"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/internal/crm"
	"leadrouter_backend/internal/events"
	leadrepo "leadrouter_backend/internal/leads/repository"
	vendorrepo "leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/platform/clock"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// Summary reports what one reconciliation pass changed.
type Summary struct {
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Added   int `json:"added"`
	Errors  int `json:"errors"`
}

// VendorStore is the slice of the vendors repository the engine needs.
type VendorStore interface {
	ListSynced(ctx context.Context, accountID uuid.UUID) ([]vendorrepo.Vendor, error)
	Create(ctx context.Context, vendor vendorrepo.Vendor) (vendorrepo.Vendor, error)
	UpdateFromSoT(ctx context.Context, vendor vendorrepo.Vendor) (vendorrepo.Vendor, error)
	DeleteStale(ctx context.Context, id uuid.UUID, batchStart time.Time) (bool, error)
}

// LeadStore is the slice of the leads repository the engine needs.
type LeadStore interface {
	ListSynced(ctx context.Context, accountID uuid.UUID) ([]leadrepo.Lead, error)
	Create(ctx context.Context, lead leadrepo.Lead) (leadrepo.Lead, error)
	UpdateFromSoT(ctx context.Context, lead leadrepo.Lead) (leadrepo.Lead, error)
	DeleteStale(ctx context.Context, id uuid.UUID, batchStart time.Time) (bool, error)
}

// Service runs reconciliation batches.
type Service struct {
	crm        crm.Client
	vendors    VendorStore
	leads      LeadStore
	normalizer *coverage.Normalizer
	geo        coverage.GeoLookup
	bus        events.Bus
	log        *logger.Logger
	clk        clock.Clock
	accountID  uuid.UUID
}

// New creates a new reconciliation service.
func New(
	crmClient crm.Client,
	vendors VendorStore,
	leads LeadStore,
	normalizer *coverage.Normalizer,
	geo coverage.GeoLookup,
	bus events.Bus,
	log *logger.Logger,
	clk clock.Clock,
	accountID uuid.UUID,
) *Service {
	return &Service{
		crm:        crmClient,
		vendors:    vendors,
		leads:      leads,
		normalizer: normalizer,
		geo:        geo,
		bus:        bus,
		log:        log,
		clk:        clk,
		accountID:  accountID,
	}
}

// ReconcileVendors runs a full vendor batch: validate then discover.
func (s *Service) ReconcileVendors(ctx context.Context) (Summary, error) {
	batchStart := s.clk.Now()
	var summary Summary

	local, err := s.vendors.ListSynced(ctx, s.accountID)
	if err != nil {
		return summary, err
	}

	known := make(map[string]struct{}, len(local))
	for _, vendor := range local {
		known[vendor.ExternalRef] = struct{}{}
		s.validateVendor(ctx, vendor, batchStart, &summary)
	}

	records, err := s.crm.ListRecords(ctx, crm.Filter{Kind: crm.KindVendor})
	if err != nil {
		// Validate already ran; report what it did alongside the error.
		return summary, err
	}
	for _, record := range records {
		if _, ok := known[record.ExternalRef]; ok {
			continue
		}
		if !vendorQualifies(record) {
			continue
		}
		s.discoverVendor(ctx, record, batchStart, &summary)
	}

	s.finish(ctx, "vendors", summary)
	return summary, nil
}

// ReconcileLeads runs a full lead batch: validate then discover.
func (s *Service) ReconcileLeads(ctx context.Context) (Summary, error) {
	batchStart := s.clk.Now()
	var summary Summary

	local, err := s.leads.ListSynced(ctx, s.accountID)
	if err != nil {
		return summary, err
	}

	known := make(map[string]struct{}, len(local))
	for _, lead := range local {
		known[lead.ExternalRef] = struct{}{}
		s.validateLead(ctx, lead, batchStart, &summary)
	}

	records, err := s.crm.ListRecords(ctx, crm.Filter{Kind: crm.KindLead})
	if err != nil {
		return summary, err
	}
	for _, record := range records {
		if _, ok := known[record.ExternalRef]; ok {
			continue
		}
		if !leadQualifies(record) {
			continue
		}
		s.discoverLead(ctx, record, batchStart, &summary)
	}

	s.finish(ctx, "leads", summary)
	return summary, nil
}

func (s *Service) finish(ctx context.Context, entity string, summary Summary) {
	s.log.Info("reconciliation finished",
		"entity", entity,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"added", summary.Added,
		"errors", summary.Errors,
	)
	s.bus.Publish(ctx, events.ReconcileCompleted{
		BaseEvent: events.NewBaseEvent(),
		Entity:    entity,
		Updated:   summary.Updated,
		Deleted:   summary.Deleted,
		Added:     summary.Added,
		Errors:    summary.Errors,
	})
}
