// Module wiring for the reconciliation bounded context.
package reconcile

import (
	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/internal/crm"
	"leadrouter_backend/internal/events"
	apphttp "leadrouter_backend/internal/http"
	leadrepo "leadrouter_backend/internal/leads/repository"
	vendorrepo "leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/platform/clock"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// Module is the reconciliation bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule wires the engine against the concrete repositories. The
// enqueuer may be nil when no background worker is configured.
func NewModule(
	crmClient crm.Client,
	vendors *vendorrepo.Repository,
	leads *leadrepo.Repository,
	geo coverage.GeoLookup,
	bus events.Bus,
	log *logger.Logger,
	clk clock.Clock,
	accountID uuid.UUID,
	enqueue Enqueuer,
) *Module {
	svc := New(crmClient, vendors, leads, coverage.NewNormalizer(geo), geo, bus, log, clk, accountID)
	return &Module{handler: NewHandler(svc, enqueue), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reconcile"
}

// Service returns the engine for the background worker.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the admin trigger on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
