// Package handler exposes routing endpoints.
package handler

import (
	"net/http"

	"leadrouter_backend/internal/routing/assignment"
	"leadrouter_backend/internal/routing/transport"
	"leadrouter_backend/platform/httpkit"
	"leadrouter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// Handler handles HTTP requests for lead routing.
type Handler struct {
	svc *assignment.Service
	val *validator.Validator
}

// New creates a new routing handler.
func New(svc *assignment.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers routing routes on the leads group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/assign", h.Assign)
	rg.POST("/:id/reassign", h.Reassign)
}

func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	resp, err := h.svc.Assign(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) Reassign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.Reassign(c.Request.Context(), id, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, resp)
}
