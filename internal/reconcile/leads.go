package reconcile

import (
	"context"
	"strings"
	"time"

	"leadrouter_backend/internal/crm"
	leadrepo "leadrouter_backend/internal/leads/repository"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/phone"
	"leadrouter_backend/platform/sanitize"

	"github.com/google/uuid"
)

// leadQualifies reports whether a CRM record is a routable lead: it asks
// for a service category and no operator is attached to it yet.
func leadQualifies(record crm.Record) bool {
	return strings.TrimSpace(record.Field(crm.FieldCategory)) != "" &&
		strings.TrimSpace(record.Field(crm.FieldExternalUserRef)) == ""
}

func (s *Service) validateLead(ctx context.Context, local leadrepo.Lead, batchStart time.Time, summary *Summary) {
	record, err := s.crm.GetRecord(ctx, local.ExternalRef)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.deleteLead(ctx, local, batchStart, summary)
			return
		}
		s.log.RecordError("lead", local.ExternalRef, err)
		summary.Errors++
		return
	}

	updated := s.leadFromRecord(ctx, record, local)
	if leadInSync(local, updated) {
		return
	}
	if _, err := s.leads.UpdateFromSoT(ctx, updated); err != nil {
		s.log.RecordError("lead", local.ExternalRef, err)
		summary.Errors++
		return
	}
	summary.Updated++
}

// leadInSync reports whether the freshly extracted record matches the
// local row on every field the source of truth owns. Routing state is
// outside the comparison, so an unchanged record re-runs as a no-op.
func leadInSync(local, fresh leadrepo.Lead) bool {
	return local.FirstName == fresh.FirstName &&
		local.LastName == fresh.LastName &&
		local.Email == fresh.Email &&
		local.Phone == fresh.Phone &&
		local.PostalCode == fresh.PostalCode &&
		local.County == fresh.County &&
		local.State == fresh.State &&
		local.RequestedCategory == fresh.RequestedCategory &&
		local.RequestedService == fresh.RequestedService
}

func (s *Service) deleteLead(ctx context.Context, local leadrepo.Lead, batchStart time.Time, summary *Summary) {
	deleted, err := s.leads.DeleteStale(ctx, local.ID, batchStart)
	if err != nil {
		s.log.RecordError("lead", local.ExternalRef, err)
		summary.Errors++
		return
	}
	if deleted {
		summary.Deleted++
	}
}

func (s *Service) discoverLead(ctx context.Context, record crm.Record, batchStart time.Time, summary *Summary) {
	lead := s.leadFromRecord(ctx, record, leadrepo.Lead{
		ID:        uuid.New(),
		AccountID: s.accountID,
		Status:    leadrepo.StatusNew,
		CreatedAt: batchStart,
		UpdatedAt: batchStart,
	})

	if _, err := s.leads.Create(ctx, lead); err != nil {
		s.log.RecordError("lead", record.ExternalRef, err)
		summary.Errors++
		return
	}
	summary.Added++
}

// leadFromRecord maps a CRM record onto a lead, starting from base so
// routing state (status, assignment, reassignment bookkeeping) survives.
func (s *Service) leadFromRecord(ctx context.Context, record crm.Record, base leadrepo.Lead) leadrepo.Lead {
	lead := base
	lead.ExternalRef = record.ExternalRef
	lead.FirstName = sanitize.Text(record.Field(crm.FieldFirstName))
	lead.LastName = sanitize.Text(record.Field(crm.FieldLastName))
	lead.Email = strings.ToLower(strings.TrimSpace(record.Field(crm.FieldEmail)))
	lead.Phone = phone.NormalizeE164(record.Field(crm.FieldPhone))
	lead.RequestedCategory = sanitize.Text(record.Field(crm.FieldCategory))
	lead.RequestedService = sanitize.Text(record.Field(crm.FieldSpecificService))
	lead.PostalCode = strings.TrimSpace(record.Field(crm.FieldZip))

	lead.County = ""
	lead.State = ""
	if lead.PostalCode != "" {
		place, err := s.geo.Resolve(ctx, lead.PostalCode)
		if err != nil {
			s.log.Warn("postal code did not resolve",
				"lead_ref", record.ExternalRef, "postal_code", lead.PostalCode, "error", err)
		} else {
			lead.County = place.County
			lead.State = place.State
		}
	}

	return lead
}
