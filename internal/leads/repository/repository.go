// Package repository provides database operations for leads and their
// assignment history.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadrouter_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

// Lead statuses. Transitions are guarded by compare-and-set updates so two
// concurrent routers can never both win the same lead.
const (
	StatusNew           = "new"
	StatusAssigned      = "assigned"
	StatusReassigning   = "reassigning"
	StatusClosedNoMatch = "closed_no_match"
)

// Assignment event types recorded in the append-only history.
const (
	EventAssigned      = "assigned"
	EventReassigned    = "reassigned"
	EventClosedNoMatch = "closed_no_match"
)

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                uuid.UUID
	AccountID         uuid.UUID
	ExternalRef       string
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	PostalCode        string
	County            string
	State             string
	RequestedCategory string
	RequestedService  string
	Status            string
	AssignedVendorID  *uuid.UUID
	ReassignCount     int
	LastReassignKey   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AssignmentEvent is one append-only record of a routing decision.
// PreviousVendorID names the vendor the lead was pulled from, nil on a
// first assignment; VendorID names the new holder, nil on a close.
type AssignmentEvent struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	PreviousVendorID *uuid.UUID
	VendorID         *uuid.UUID
	EventType        string
	Reason           string
	CreatedAt        time.Time
}

type ListParams struct {
	AccountID uuid.UUID
	Status    string
	Page      int
	PageSize  int
}

type ListResult struct {
	Items      []Lead
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

const leadColumns = `id, account_id, external_ref, first_name, last_name, email, phone,
		postal_code, county, state, requested_category, requested_service,
		status, assigned_vendor_id, reassign_count, last_reassign_key,
		created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID,
		&l.AccountID,
		&l.ExternalRef,
		&l.FirstName,
		&l.LastName,
		&l.Email,
		&l.Phone,
		&l.PostalCode,
		&l.County,
		&l.State,
		&l.RequestedCategory,
		&l.RequestedService,
		&l.Status,
		&l.AssignedVendorID,
		&l.ReassignCount,
		&l.LastReassignKey,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	return l, err
}

// Create inserts a new lead.
func (r *Repository) Create(ctx context.Context, lead Lead) (Lead, error) {
	query := `
		INSERT INTO leads (
			id, account_id, external_ref, first_name, last_name, email, phone,
			postal_code, county, state, requested_category, requested_service,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15
		)
	`

	_, err := r.pool.Exec(ctx, query,
		lead.ID,
		lead.AccountID,
		lead.ExternalRef,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.PostalCode,
		lead.County,
		lead.State,
		lead.RequestedCategory,
		lead.RequestedService,
		lead.Status,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}

	return lead, nil
}

// GetByID fetches one lead scoped to the account.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, accountID uuid.UUID) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND account_id = $2`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}

	return lead, nil
}

// List returns a page of leads.
func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 25
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM leads WHERE account_id = $1 AND ($2 = '' OR status = $2)`
	if err := r.pool.QueryRow(ctx, countQuery, params.AccountID, params.Status).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count leads: %w", err)
	}

	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE account_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, params.AccountID, params.Status, pageSize, (page-1)*pageSize)
	if err != nil {
		return ListResult{}, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	items, err := collectLeads(rows)
	if err != nil {
		return ListResult{}, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

// CommitAssignment moves a lead into assigned with the winning vendor and
// stamps the vendor's last_assigned_at in the same transaction, so a
// committed assignment never misses its fairness bookkeeping. The status
// guard makes the update a compare-and-set: zero rows affected means
// another router already won and the caller must treat the commit as lost.
// The vendor clock advances via GREATEST, last writer by timestamp, so
// retried or out-of-order deliveries cannot move it backwards.
func (r *Repository) CommitAssignment(ctx context.Context, id uuid.UUID, vendorID uuid.UUID, fromStatus string, assignedAt time.Time) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin commit assignment: %w", err)
	}
	defer tx.Rollback(ctx)

	casQuery := `
		UPDATE leads
		SET status = $3, assigned_vendor_id = $4, updated_at = now()
		WHERE id = $1 AND status = $2
	`
	tag, err := tx.Exec(ctx, casQuery, id, fromStatus, StatusAssigned, vendorID)
	if err != nil {
		return false, fmt.Errorf("commit assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	touchQuery := `
		UPDATE vendors
		SET last_assigned_at = GREATEST(COALESCE(last_assigned_at, 'epoch'::timestamptz), $2)
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, touchQuery, vendorID, assignedAt); err != nil {
		return false, fmt.Errorf("touch last assigned: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit assignment tx: %w", err)
	}
	return true, nil
}

// BeginReassign moves an assigned lead into reassigning, stamps the request
// fingerprint, and bumps the attempt counter. Compare-and-set on status.
func (r *Repository) BeginReassign(ctx context.Context, id uuid.UUID, reassignKey string) (bool, error) {
	query := `
		UPDATE leads
		SET status = $2, last_reassign_key = $3, reassign_count = reassign_count + 1, updated_at = now()
		WHERE id = $1 AND status = $4
	`

	tag, err := r.pool.Exec(ctx, query, id, StatusReassigning, reassignKey, StatusAssigned)
	if err != nil {
		return false, fmt.Errorf("begin reassign: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CloseNoMatch terminates a lead that has no eligible vendor left.
func (r *Repository) CloseNoMatch(ctx context.Context, id uuid.UUID, fromStatus string) (bool, error) {
	query := `
		UPDATE leads
		SET status = $3, assigned_vendor_id = NULL, updated_at = now()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, fromStatus, StatusClosedNoMatch)
	if err != nil {
		return false, fmt.Errorf("close lead: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseVendorAssignments detaches every lead held by a vendor that is
// being removed, returning the leads to the routable pool.
func (r *Repository) ReleaseVendorAssignments(ctx context.Context, vendorID uuid.UUID) (int, error) {
	query := `
		UPDATE leads
		SET status = $2, assigned_vendor_id = NULL, updated_at = now()
		WHERE assigned_vendor_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, vendorID, StatusNew)
	if err != nil {
		return 0, fmt.Errorf("release vendor assignments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// AppendAssignmentEvent records a routing decision. Events are append-only;
// nothing updates or deletes them.
func (r *Repository) AppendAssignmentEvent(ctx context.Context, event AssignmentEvent) error {
	query := `
		INSERT INTO assignment_events (id, lead_id, previous_vendor_id, vendor_id, event_type, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID, event.LeadID, event.PreviousVendorID, event.VendorID, event.EventType, event.Reason, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append assignment event: %w", err)
	}
	return nil
}

// ListAssignmentEvents returns a lead's routing history, oldest first.
func (r *Repository) ListAssignmentEvents(ctx context.Context, leadID uuid.UUID) ([]AssignmentEvent, error) {
	query := `
		SELECT id, lead_id, previous_vendor_id, vendor_id, event_type, reason, created_at
		FROM assignment_events
		WHERE lead_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("list assignment events: %w", err)
	}
	defer rows.Close()

	events := make([]AssignmentEvent, 0, 8)
	for rows.Next() {
		var e AssignmentEvent
		if err := rows.Scan(&e.ID, &e.LeadID, &e.PreviousVendorID, &e.VendorID, &e.EventType, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignment events: %w", err)
	}
	return events, nil
}

// ListEverAssignedVendorIDs returns the distinct vendors that have held
// this lead at any point, for reassignment exclusion.
func (r *Repository) ListEverAssignedVendorIDs(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT vendor_id
		FROM assignment_events
		WHERE lead_id = $1 AND vendor_id IS NOT NULL
	`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("list assigned vendor ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, 4)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan vendor id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor ids: %w", err)
	}
	return ids, nil
}

// ListSynced returns every lead with an external reference, for the
// reconciliation validate pass.
func (r *Repository) ListSynced(ctx context.Context, accountID uuid.UUID) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE account_id = $1 AND external_ref <> ''
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list synced leads: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

// UpdateFromSoT overwrites the fields owned by the source of truth while
// preserving routing state (status, assignment, reassignment bookkeeping).
func (r *Repository) UpdateFromSoT(ctx context.Context, lead Lead) (Lead, error) {
	query := `
		UPDATE leads
		SET
			first_name = $3,
			last_name = $4,
			email = $5,
			phone = $6,
			postal_code = $7,
			county = $8,
			state = $9,
			requested_category = $10,
			requested_service = $11,
			updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING ` + leadColumns + `
	`

	updated, err := scanLead(r.pool.QueryRow(ctx, query,
		lead.ID,
		lead.AccountID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.PostalCode,
		lead.County,
		lead.State,
		lead.RequestedCategory,
		lead.RequestedService,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return Lead{}, fmt.Errorf("update lead from sot: %w", err)
	}

	return updated, nil
}

// DeleteStale removes a lead that disappeared from the source of truth,
// guarded by the batch-start watermark.
func (r *Repository) DeleteStale(ctx context.Context, id uuid.UUID, batchStart time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM leads WHERE id = $1 AND updated_at < $2`,
		id, batchStart,
	)
	if err != nil {
		return false, fmt.Errorf("delete stale lead: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0, 16)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}
