// Package service provides business logic for lead intake and reads.
package service

import (
	"context"
	"strings"
	"time"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/internal/leads/repository"
	"leadrouter_backend/internal/leads/transport"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/phone"
	"leadrouter_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Service provides business logic for leads.
type Service struct {
	repo      *repository.Repository
	geo       coverage.GeoLookup
	log       *logger.Logger
	accountID uuid.UUID
}

// New creates a new leads service scoped to the configured account.
func New(repo *repository.Repository, geo coverage.GeoLookup, log *logger.Logger, accountID uuid.UUID) *Service {
	return &Service{repo: repo, geo: geo, log: log, accountID: accountID}
}

// Create ingests a new lead. The postal code is resolved to county and
// state when the resolver knows it; intake never fails on geo errors, the
// lead just lands without a resolved location.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	now := time.Now()
	lead := repository.Lead{
		ID:                uuid.New(),
		AccountID:         s.accountID,
		FirstName:         sanitize.Text(req.FirstName),
		LastName:          sanitize.Text(req.LastName),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             phone.NormalizeE164(req.Phone),
		PostalCode:        strings.TrimSpace(req.PostalCode),
		RequestedCategory: sanitize.Text(req.RequestedCategory),
		RequestedService:  sanitize.Text(req.RequestedService),
		Status:            repository.StatusNew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if lead.PostalCode != "" {
		place, err := s.geo.Resolve(ctx, lead.PostalCode)
		if err != nil {
			s.log.Warn("postal code did not resolve", "postal_code", lead.PostalCode, "error", err)
		} else {
			lead.County = place.County
			lead.State = place.State
		}
	}

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	return transport.FromLead(created), nil
}

func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.ListLeadsResponse, error) {
	result, err := s.repo.List(ctx, repository.ListParams{
		AccountID: s.accountID,
		Status:    req.Status,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return transport.ListLeadsResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(result.Items))
	for _, lead := range result.Items {
		items = append(items, transport.FromLead(lead))
	}

	return transport.ListLeadsResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, s.accountID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.FromLead(lead), nil
}

// History returns the lead's assignment history, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]transport.AssignmentEventResponse, error) {
	if _, err := s.repo.GetByID(ctx, id, s.accountID); err != nil {
		return nil, err
	}

	events, err := s.repo.ListAssignmentEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]transport.AssignmentEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, transport.FromAssignmentEvent(e))
	}
	return out, nil
}
