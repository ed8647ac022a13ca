// Package crm defines the source-of-truth interface consumed by the
// reconciliation engine and the assignment push path. The CRM always wins:
// reconciliation overwrites local fields from these records.
package crm

import (
	"context"
	"time"
)

// Kind selects which entity type a listing targets.
type Kind string

const (
	// KindVendor lists vendor-qualifying records.
	KindVendor Kind = "vendor"
	// KindLead lists lead-qualifying records.
	KindLead Kind = "lead"
)

// Filter narrows a ListRecords call.
type Filter struct {
	Kind Kind
}

// Record is a CRM record reduced to canonical field names. Custom fields
// arrive keyed by opaque external field ids and are translated through the
// FieldMap before the engine sees them.
type Record struct {
	ExternalRef string
	UpdatedAt   time.Time
	Fields      map[string]string
}

// Field returns a canonical field value, empty when absent.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// Canonical field names shared by reconciliation and routing.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldZip             = "zip"
	FieldCategory        = "category"
	FieldSpecificService = "specific_service"
	FieldRawCoverage     = "raw_coverage"
	FieldExternalUserRef = "external_user_ref"
	FieldStatus          = "status"
	FieldAcceptingWork   = "accepting_work"
	FieldCloseRate       = "close_rate"
	FieldCapabilities    = "capabilities"
)

// Client is the source-of-truth CRM consumed by the engine.
type Client interface {
	// GetRecord fetches one record by external reference. A missing record
	// returns an apperr.KindNotFound error.
	GetRecord(ctx context.Context, externalRef string) (Record, error)

	// ListRecords lists records matching the filter's qualifying predicate.
	ListRecords(ctx context.Context, filter Filter) ([]Record, error)

	// PushAssignment writes a committed lead-to-vendor assignment back to
	// the CRM.
	PushAssignment(ctx context.Context, leadExternalRef, vendorExternalUserRef string) error
}
