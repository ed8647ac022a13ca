// Package service provides business logic for the vendor registry.
package service

import (
	"context"

	"leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/internal/vendors/transport"

	"github.com/google/uuid"
)

// Service provides read access to the vendor registry. Writes go through
// the reconciliation engine; vendors have no local create/update surface.
type Service struct {
	repo      *repository.Repository
	accountID uuid.UUID
}

// New creates a new vendors service scoped to the configured account.
func New(repo *repository.Repository, accountID uuid.UUID) *Service {
	return &Service{repo: repo, accountID: accountID}
}

func (s *Service) List(ctx context.Context, req transport.ListVendorsRequest) (transport.ListVendorsResponse, error) {
	result, err := s.repo.List(ctx, repository.ListParams{
		AccountID: s.accountID,
		Status:    req.Status,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return transport.ListVendorsResponse{}, err
	}

	items := make([]transport.VendorResponse, 0, len(result.Items))
	for _, vendor := range result.Items {
		items = append(items, transport.FromVendor(vendor))
	}

	return transport.ListVendorsResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.VendorResponse, error) {
	vendor, err := s.repo.GetByID(ctx, id, s.accountID)
	if err != nil {
		return transport.VendorResponse{}, err
	}
	return transport.FromVendor(vendor), nil
}

// ListAssignable exposes routing-eligible vendors to the matching engine.
func (s *Service) ListAssignable(ctx context.Context) ([]repository.Vendor, error) {
	return s.repo.ListAssignable(ctx, s.accountID)
}
