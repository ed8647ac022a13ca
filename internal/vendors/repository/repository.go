// Package repository provides database operations for the vendor registry.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const vendorNotFoundMsg = "vendor not found"

// Vendor statuses mirrored from the source of truth.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// Repository provides database operations for vendors.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new vendors repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Capability is one (category, optional specific service) pair a vendor
// can serve.
type Capability struct {
	Category        string `json:"category"`
	SpecificService string `json:"specificService,omitempty"`
}

type Vendor struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	ExternalRef     string
	ExternalUserRef string
	Name            string
	Email           string
	Phone           string
	Status          string
	AcceptingWork   bool
	Capabilities    []Capability
	RawCoverage     string
	Coverage        coverage.Coverage
	CloseRate       float64
	LastAssignedAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ListParams struct {
	AccountID uuid.UUID
	Status    string
	Page      int
	PageSize  int
}

type ListResult struct {
	Items      []Vendor
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

const vendorColumns = `id, account_id, external_ref, external_user_ref, name, email, phone,
		status, accepting_work, capabilities, raw_coverage,
		coverage_type, coverage_counties, coverage_states,
		close_rate, last_assigned_at, created_at, updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	var capabilitiesJSON []byte
	var coverageType string
	err := row.Scan(
		&v.ID,
		&v.AccountID,
		&v.ExternalRef,
		&v.ExternalUserRef,
		&v.Name,
		&v.Email,
		&v.Phone,
		&v.Status,
		&v.AcceptingWork,
		&capabilitiesJSON,
		&v.RawCoverage,
		&coverageType,
		&v.Coverage.Counties,
		&v.Coverage.States,
		&v.CloseRate,
		&v.LastAssignedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return Vendor{}, err
	}
	v.Coverage.Type = coverage.Type(coverageType)
	if len(capabilitiesJSON) > 0 {
		if err := json.Unmarshal(capabilitiesJSON, &v.Capabilities); err != nil {
			return Vendor{}, fmt.Errorf("decode capabilities: %w", err)
		}
	}
	return v, nil
}

// Create inserts a vendor synced from the source of truth.
func (r *Repository) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	capabilitiesJSON, err := json.Marshal(vendor.Capabilities)
	if err != nil {
		return Vendor{}, fmt.Errorf("encode capabilities: %w", err)
	}

	query := `
		INSERT INTO vendors (
			id, account_id, external_ref, external_user_ref, name, email, phone,
			status, accepting_work, capabilities, raw_coverage,
			coverage_type, coverage_counties, coverage_states,
			close_rate, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17
		)
	`

	_, err = r.pool.Exec(ctx, query,
		vendor.ID,
		vendor.AccountID,
		vendor.ExternalRef,
		vendor.ExternalUserRef,
		vendor.Name,
		vendor.Email,
		vendor.Phone,
		vendor.Status,
		vendor.AcceptingWork,
		capabilitiesJSON,
		vendor.RawCoverage,
		string(vendor.Coverage.Type),
		vendor.Coverage.Counties,
		vendor.Coverage.States,
		vendor.CloseRate,
		vendor.CreatedAt,
		vendor.UpdatedAt,
	)
	if err != nil {
		return Vendor{}, fmt.Errorf("create vendor: %w", err)
	}

	return vendor, nil
}

// GetByID fetches one vendor scoped to the account.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, accountID uuid.UUID) (Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1 AND account_id = $2`

	vendor, err := scanVendor(r.pool.QueryRow(ctx, query, id, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, apperr.NotFound(vendorNotFoundMsg)
		}
		return Vendor{}, fmt.Errorf("get vendor: %w", err)
	}

	return vendor, nil
}

// ListAssignable returns vendors eligible for routing: active, accepting
// work, and fully synced (external user ref present).
func (r *Repository) ListAssignable(ctx context.Context, accountID uuid.UUID) ([]Vendor, error) {
	query := `
		SELECT ` + vendorColumns + `
		FROM vendors
		WHERE account_id = $1
		  AND status = $2
		  AND accepting_work = TRUE
		  AND external_user_ref <> ''
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, accountID, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list assignable vendors: %w", err)
	}
	defer rows.Close()

	return collectVendors(rows)
}

// ListSynced returns every vendor with an external reference, for the
// reconciliation validate pass.
func (r *Repository) ListSynced(ctx context.Context, accountID uuid.UUID) ([]Vendor, error) {
	query := `
		SELECT ` + vendorColumns + `
		FROM vendors
		WHERE account_id = $1 AND external_ref <> ''
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list synced vendors: %w", err)
	}
	defer rows.Close()

	return collectVendors(rows)
}

// List returns a page of vendors for registry read endpoints.
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
	countQuery := `SELECT COUNT(*) FROM vendors WHERE account_id = $1 AND ($2 = '' OR status = $2)`
	if err := r.pool.QueryRow(ctx, countQuery, params.AccountID, params.Status).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count vendors: %w", err)
	}

	query := `
		SELECT ` + vendorColumns + `
		FROM vendors
		WHERE account_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY name, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, params.AccountID, params.Status, pageSize, (page-1)*pageSize)
	if err != nil {
		return ListResult{}, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	items, err := collectVendors(rows)
	if err != nil {
		return ListResult{}, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

// UpdateFromSoT overwrites the fields owned by the source of truth while
// preserving local-only state (internal id, routing stats, created_at).
func (r *Repository) UpdateFromSoT(ctx context.Context, vendor Vendor) (Vendor, error) {
	capabilitiesJSON, err := json.Marshal(vendor.Capabilities)
	if err != nil {
		return Vendor{}, fmt.Errorf("encode capabilities: %w", err)
	}

	query := `
		UPDATE vendors
		SET
			external_user_ref = $3,
			name = $4,
			email = $5,
			phone = $6,
			status = $7,
			accepting_work = $8,
			capabilities = $9,
			raw_coverage = $10,
			coverage_type = $11,
			coverage_counties = $12,
			coverage_states = $13,
			close_rate = $14,
			updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING ` + vendorColumns + `
	`

	updated, err := scanVendor(r.pool.QueryRow(ctx, query,
		vendor.ID,
		vendor.AccountID,
		vendor.ExternalUserRef,
		vendor.Name,
		vendor.Email,
		vendor.Phone,
		vendor.Status,
		vendor.AcceptingWork,
		capabilitiesJSON,
		vendor.RawCoverage,
		string(vendor.Coverage.Type),
		vendor.Coverage.Counties,
		vendor.Coverage.States,
		vendor.CloseRate,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, apperr.NotFound(vendorNotFoundMsg)
		}
		return Vendor{}, fmt.Errorf("update vendor from sot: %w", err)
	}

	return updated, nil
}

// DeleteStale removes a vendor that disappeared from the source of truth
// and releases every lead it held back into the routable pool, in one
// transaction. The watermark guard refuses to delete a record modified at
// or after the batch start, so concurrent writers are never clobbered.
func (r *Repository) DeleteStale(ctx context.Context, id uuid.UUID, batchStart time.Time) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin delete stale vendor: %w", err)
	}
	defer tx.Rollback(ctx)

	releaseQuery := `
		UPDATE leads
		SET status = 'new', assigned_vendor_id = NULL, updated_at = now()
		WHERE assigned_vendor_id = $1
		  AND EXISTS (SELECT 1 FROM vendors WHERE id = $1 AND updated_at < $2)
	`
	if _, err := tx.Exec(ctx, releaseQuery, id, batchStart); err != nil {
		return false, fmt.Errorf("release vendor leads: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM vendors WHERE id = $1 AND updated_at < $2`,
		id, batchStart,
	)
	if err != nil {
		return false, fmt.Errorf("delete stale vendor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit delete stale vendor: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func collectVendors(rows pgx.Rows) ([]Vendor, error) {
	vendors := make([]Vendor, 0, 16)
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return vendors, nil
}
