// Package transport defines request and response DTOs for the leads HTTP API.
package transport

import (
	"time"

	"leadrouter_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	FirstName         string `json:"firstName" validate:"required,max=100"`
	LastName          string `json:"lastName" validate:"required,max=100"`
	Email             string `json:"email" validate:"omitempty,email"`
	Phone             string `json:"phone" validate:"omitempty,max=32"`
	PostalCode        string `json:"postalCode" validate:"omitempty,max=10"`
	RequestedCategory string `json:"requestedCategory" validate:"required,max=100"`
	RequestedService  string `json:"requestedService" validate:"omitempty,max=150"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=new assigned reassigning closed_no_match"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type LeadResponse struct {
	ID                uuid.UUID  `json:"id"`
	ExternalRef       string     `json:"externalRef,omitempty"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	PostalCode        string     `json:"postalCode,omitempty"`
	County            string     `json:"county,omitempty"`
	State             string     `json:"state,omitempty"`
	RequestedCategory string     `json:"requestedCategory"`
	RequestedService  string     `json:"requestedService,omitempty"`
	Status            string     `json:"status"`
	AssignedVendorID  *uuid.UUID `json:"assignedVendorId,omitempty"`
	ReassignCount     int        `json:"reassignCount"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type ListLeadsResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type AssignmentEventResponse struct {
	ID               uuid.UUID  `json:"id"`
	PreviousVendorID *uuid.UUID `json:"previousVendorId,omitempty"`
	VendorID         *uuid.UUID `json:"vendorId,omitempty"`
	EventType        string     `json:"eventType"`
	Reason           string     `json:"reason,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// FromLead maps a repository lead onto the public response shape.
func FromLead(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                l.ID,
		ExternalRef:       l.ExternalRef,
		FirstName:         l.FirstName,
		LastName:          l.LastName,
		Email:             l.Email,
		Phone:             l.Phone,
		PostalCode:        l.PostalCode,
		County:            l.County,
		State:             l.State,
		RequestedCategory: l.RequestedCategory,
		RequestedService:  l.RequestedService,
		Status:            l.Status,
		AssignedVendorID:  l.AssignedVendorID,
		ReassignCount:     l.ReassignCount,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

// FromAssignmentEvent maps a history record onto the response shape.
func FromAssignmentEvent(e repository.AssignmentEvent) AssignmentEventResponse {
	return AssignmentEventResponse{
		ID:               e.ID,
		PreviousVendorID: e.PreviousVendorID,
		VendorID:         e.VendorID,
		EventType:        e.EventType,
		Reason:           e.Reason,
		CreatedAt:        e.CreatedAt,
	}
}
