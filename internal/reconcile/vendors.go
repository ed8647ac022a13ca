package reconcile

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"leadrouter_backend/internal/crm"
	vendorrepo "leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/phone"
	"leadrouter_backend/platform/sanitize"

	"github.com/google/uuid"
)

// vendorQualifies reports whether a CRM record is a vendor the engine
// should track: an operator has been provisioned for it.
func vendorQualifies(record crm.Record) bool {
	return strings.TrimSpace(record.Field(crm.FieldExternalUserRef)) != ""
}

func (s *Service) validateVendor(ctx context.Context, local vendorrepo.Vendor, batchStart time.Time, summary *Summary) {
	record, err := s.crm.GetRecord(ctx, local.ExternalRef)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.deleteVendor(ctx, local, batchStart, summary)
			return
		}
		s.log.RecordError("vendor", local.ExternalRef, err)
		summary.Errors++
		return
	}

	// A record that stops qualifying is gone as far as routing is
	// concerned, same as a deleted one.
	if !vendorQualifies(record) {
		s.deleteVendor(ctx, local, batchStart, summary)
		return
	}

	updated := s.vendorFromRecord(ctx, record, local)
	if vendorInSync(local, updated) {
		return
	}
	if _, err := s.vendors.UpdateFromSoT(ctx, updated); err != nil {
		s.log.RecordError("vendor", local.ExternalRef, err)
		summary.Errors++
		return
	}
	summary.Updated++
}

// vendorInSync reports whether the freshly extracted record matches the
// local row on every field the source of truth owns. Local-only state
// (internal id, routing stats, timestamps) is outside the comparison, so
// an unchanged record re-runs as a no-op.
func vendorInSync(local, fresh vendorrepo.Vendor) bool {
	return local.ExternalUserRef == fresh.ExternalUserRef &&
		local.Name == fresh.Name &&
		local.Email == fresh.Email &&
		local.Phone == fresh.Phone &&
		local.Status == fresh.Status &&
		local.AcceptingWork == fresh.AcceptingWork &&
		local.CloseRate == fresh.CloseRate &&
		local.RawCoverage == fresh.RawCoverage &&
		local.Coverage.Type == fresh.Coverage.Type &&
		equalStrings(local.Coverage.Counties, fresh.Coverage.Counties) &&
		equalStrings(local.Coverage.States, fresh.Coverage.States) &&
		equalCapabilities(local.Capabilities, fresh.Capabilities)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalCapabilities(a, b []vendorrepo.Capability) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Service) deleteVendor(ctx context.Context, local vendorrepo.Vendor, batchStart time.Time, summary *Summary) {
	deleted, err := s.vendors.DeleteStale(ctx, local.ID, batchStart)
	if err != nil {
		s.log.RecordError("vendor", local.ExternalRef, err)
		summary.Errors++
		return
	}
	if deleted {
		summary.Deleted++
	}
}

func (s *Service) discoverVendor(ctx context.Context, record crm.Record, batchStart time.Time, summary *Summary) {
	now := batchStart
	vendor := s.vendorFromRecord(ctx, record, vendorrepo.Vendor{
		ID:        uuid.New(),
		AccountID: s.accountID,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if _, err := s.vendors.Create(ctx, vendor); err != nil {
		s.log.RecordError("vendor", record.ExternalRef, err)
		summary.Errors++
		return
	}
	summary.Added++
}

// vendorFromRecord maps a CRM record onto a vendor, starting from base so
// local-only state (id, routing stats, created_at) survives. Validate and
// discover share this path: one extraction, one set of rules.
func (s *Service) vendorFromRecord(ctx context.Context, record crm.Record, base vendorrepo.Vendor) vendorrepo.Vendor {
	vendor := base
	vendor.ExternalRef = record.ExternalRef
	vendor.ExternalUserRef = strings.TrimSpace(record.Field(crm.FieldExternalUserRef))
	vendor.Name = sanitize.Text(strings.TrimSpace(record.Field(crm.FieldFirstName) + " " + record.Field(crm.FieldLastName)))
	vendor.Email = strings.ToLower(strings.TrimSpace(record.Field(crm.FieldEmail)))
	vendor.Phone = phone.NormalizeE164(record.Field(crm.FieldPhone))
	vendor.Status = normalizeVendorStatus(record.Field(crm.FieldStatus))
	vendor.AcceptingWork = parseBool(record.Field(crm.FieldAcceptingWork))
	vendor.Capabilities = parseCapabilities(record)
	vendor.CloseRate = parseCloseRate(record.Field(crm.FieldCloseRate))

	vendor.RawCoverage = record.Field(crm.FieldRawCoverage)
	result := s.normalizer.Normalize(ctx, vendor.RawCoverage)
	vendor.Coverage = result.Coverage
	for _, warning := range result.Warnings {
		s.log.Warn("coverage normalization warning",
			"vendor_ref", record.ExternalRef, "warning", warning)
	}

	return vendor
}

func normalizeVendorStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case vendorrepo.StatusActive:
		return vendorrepo.StatusActive
	case vendorrepo.StatusInactive:
		return vendorrepo.StatusInactive
	default:
		return vendorrepo.StatusPending
	}
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

func parseCloseRate(raw string) float64 {
	rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || rate < 0 {
		return 0
	}
	// Some accounts store percentages, some fractions.
	if rate > 1 {
		rate = rate / 100
	}
	if rate > 1 {
		rate = 1
	}
	return rate
}

// parseCapabilities reads the structured capabilities field when present
// and falls back to the flat category and specific-service fields.
func parseCapabilities(record crm.Record) []vendorrepo.Capability {
	if raw := strings.TrimSpace(record.Field(crm.FieldCapabilities)); raw != "" {
		var caps []vendorrepo.Capability
		if err := json.Unmarshal([]byte(raw), &caps); err == nil {
			out := caps[:0]
			for _, c := range caps {
				if strings.TrimSpace(c.Category) != "" {
					out = append(out, c)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}

	category := strings.TrimSpace(record.Field(crm.FieldCategory))
	if category == "" {
		return nil
	}
	return []vendorrepo.Capability{{
		Category:        category,
		SpecificService: strings.TrimSpace(record.Field(crm.FieldSpecificService)),
	}}
}
