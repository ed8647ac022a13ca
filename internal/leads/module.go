// Package leads provides the leads bounded context module.
package leads

import (
	"leadrouter_backend/internal/coverage"
	apphttp "leadrouter_backend/internal/http"
	"leadrouter_backend/internal/leads/handler"
	"leadrouter_backend/internal/leads/repository"
	"leadrouter_backend/internal/leads/service"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	geo coverage.GeoLookup,
	log *logger.Logger,
	accountID uuid.UUID,
	val *validator.Validator,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, geo, log, accountID)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the routing pipeline and the
// reconciliation engine.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.V1.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
