package reconcile

import (
	"context"
	"net/http"

	"leadrouter_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Enqueuer queues reconciliation batches on the background worker.
type Enqueuer interface {
	EnqueueReconcileVendors(ctx context.Context, trigger string) error
	EnqueueReconcileLeads(ctx context.Context, trigger string) error
}

// Handler exposes the admin reconciliation trigger. Batches run inline by
// default; with ?async=true they are handed to the background worker
// instead, which suits long registries where the caller should not wait.
type Handler struct {
	svc     *Service
	enqueue Enqueuer
}

// NewHandler creates a new reconcile handler. The enqueuer may be nil
// when no background worker is configured; async requests then fall back
// to running inline.
func NewHandler(svc *Service, enqueue Enqueuer) *Handler {
	return &Handler{svc: svc, enqueue: enqueue}
}

// RegisterRoutes registers reconciliation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reconcile/:entity", h.Run)
}

// Run triggers a reconciliation batch for one entity type.
func (h *Handler) Run(c *gin.Context) {
	entity := c.Param("entity")
	if entity != "vendors" && entity != "leads" {
		httpkit.Error(c, http.StatusBadRequest, "unknown entity", nil)
		return
	}

	if c.Query("async") == "true" && h.enqueue != nil {
		var err error
		switch entity {
		case "vendors":
			err = h.enqueue.EnqueueReconcileVendors(c.Request.Context(), "manual")
		case "leads":
			err = h.enqueue.EnqueueReconcileLeads(c.Request.Context(), "manual")
		}
		if err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "queued", "entity": entity})
		return
	}

	var (
		summary Summary
		err     error
	)
	switch entity {
	case "vendors":
		summary, err = h.svc.ReconcileVendors(c.Request.Context())
	case "leads":
		summary, err = h.svc.ReconcileLeads(c.Request.Context())
	}
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, summary)
}
