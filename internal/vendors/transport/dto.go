// Package transport defines request and response DTOs for the vendor
// registry HTTP API.
package transport

import (
	"time"

	"leadrouter_backend/internal/vendors/repository"

	"github.com/google/uuid"
)

type ListVendorsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=active inactive pending"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type CapabilityResponse struct {
	Category        string `json:"category"`
	SpecificService string `json:"specificService,omitempty"`
}

type CoverageResponse struct {
	Type     string   `json:"type"`
	Counties []string `json:"counties,omitempty"`
	States   []string `json:"states,omitempty"`
}

type VendorResponse struct {
	ID              uuid.UUID            `json:"id"`
	ExternalRef     string               `json:"externalRef"`
	ExternalUserRef string               `json:"externalUserRef,omitempty"`
	Name            string               `json:"name"`
	Email           string               `json:"email,omitempty"`
	Phone           string               `json:"phone,omitempty"`
	Status          string               `json:"status"`
	AcceptingWork   bool                 `json:"acceptingWork"`
	Capabilities    []CapabilityResponse `json:"capabilities"`
	RawCoverage     string               `json:"rawCoverage,omitempty"`
	Coverage        CoverageResponse     `json:"coverage"`
	CloseRate       float64              `json:"closeRate"`
	LastAssignedAt  *time.Time           `json:"lastAssignedAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type ListVendorsResponse struct {
	Items      []VendorResponse `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// FromVendor maps a repository vendor onto the public response shape.
func FromVendor(v repository.Vendor) VendorResponse {
	capabilities := make([]CapabilityResponse, 0, len(v.Capabilities))
	for _, c := range v.Capabilities {
		capabilities = append(capabilities, CapabilityResponse{
			Category:        c.Category,
			SpecificService: c.SpecificService,
		})
	}

	return VendorResponse{
		ID:              v.ID,
		ExternalRef:     v.ExternalRef,
		ExternalUserRef: v.ExternalUserRef,
		Name:            v.Name,
		Email:           v.Email,
		Phone:           v.Phone,
		Status:          v.Status,
		AcceptingWork:   v.AcceptingWork,
		Capabilities:    capabilities,
		RawCoverage:     v.RawCoverage,
		Coverage: CoverageResponse{
			Type:     string(v.Coverage.Type),
			Counties: v.Coverage.Counties,
			States:   v.Coverage.States,
		},
		CloseRate:      v.CloseRate,
		LastAssignedAt: v.LastAssignedAt,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}
