// Package vendors provides the vendor registry bounded context module.
package vendors

import (
	apphttp "leadrouter_backend/internal/http"
	"leadrouter_backend/internal/vendors/handler"
	"leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/internal/vendors/service"
	"leadrouter_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the vendor registry bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the vendors module with all its dependencies.
func NewModule(pool *pgxpool.Pool, accountID uuid.UUID, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, accountID)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "vendors"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the reconciliation engine and
// routing pipeline.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts vendor routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	vendorsGroup := ctx.V1.Group("/vendors")
	m.handler.RegisterRoutes(vendorsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
