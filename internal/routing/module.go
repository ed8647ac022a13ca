// Package routing provides the lead routing bounded context module.
package routing

import (
	"leadrouter_backend/internal/events"
	apphttp "leadrouter_backend/internal/http"
	leadrepo "leadrouter_backend/internal/leads/repository"
	"leadrouter_backend/internal/routing/assignment"
	"leadrouter_backend/internal/routing/handler"
	vendorrepo "leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/platform/clock"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/validator"

	"github.com/google/uuid"
)

// Module is the routing bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *assignment.Service
}

// NewModule creates and initializes the routing module with all its dependencies.
func NewModule(
	leads *leadrepo.Repository,
	vendors *vendorrepo.Repository,
	bus events.Bus,
	log *logger.Logger,
	clk clock.Clock,
	accountID uuid.UUID,
	topK int,
	maxReassigns int,
	val *validator.Validator,
) *Module {
	svc := assignment.New(leads, vendors, bus, log, clk, accountID, topK, maxReassigns)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "routing"
}

// Service returns the assignment service for external use.
func (m *Module) Service() *assignment.Service {
	return m.service
}

// RegisterRoutes mounts routing routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.V1.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
