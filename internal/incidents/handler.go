// Package incidents provides HTTP handlers and business logic for the
// incident lifecycle: opening, progressing through an append-only update
// log, and closing out.
package incidents

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/pkg/httputil"
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the incident routes. The router is expected to
// carry an authenticated organization in the request context.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Post("/", h.CreateIncident)
		r.Patch("/{id}", h.UpdateIncident)
		r.Post("/{id}/updates", h.AddIncidentUpdate)
		r.Delete("/{id}", h.DeleteIncident)
	})
}

// CreateIncidentRequest represents the request body for opening an incident.
type CreateIncidentRequest struct {
	ServiceID   string `json:"serviceId" validate:"required"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"required,min=1"`
	Status      string `json:"status" validate:"omitempty,oneof=investigating identified monitoring resolved"`
}

// UpdateIncidentRequest represents the request body for a status change.
// Description is optional; a generated note is logged when absent.
type UpdateIncidentRequest struct {
	Status      string `json:"status" validate:"required,oneof=investigating identified monitoring resolved"`
	Description string `json:"description"`
}

// AddUpdateRequest represents the request body for posting a progress note.
type AddUpdateRequest struct {
	Status      string `json:"status" validate:"required,oneof=investigating identified monitoring resolved"`
	Description string `json:"description" validate:"required,min=1"`
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	status := domain.IncidentStatus(req.Status)
	if status == "" {
		status = domain.IncidentStatusInvestigating
	}

	view, err := h.service.CreateIncident(r.Context(), httputil.GetOrgID(r.Context()), CreateIncidentInput{
		ServiceID:   req.ServiceID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, view)
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListIncidents(r.Context(), httputil.GetOrgID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, views)
}

// UpdateIncident handles PATCH /incidents/{id} request.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	var req UpdateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	view, err := h.service.UpdateIncident(r.Context(),
		httputil.GetOrgID(r.Context()), chi.URLParam(r, "id"), UpdateIncidentInput{
			Status:      domain.IncidentStatus(req.Status),
			Description: req.Description,
		})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, view)
}

// AddIncidentUpdate handles POST /incidents/{id}/updates request.
func (h *Handler) AddIncidentUpdate(w http.ResponseWriter, r *http.Request) {
	var req AddUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	view, err := h.service.UpdateIncident(r.Context(),
		httputil.GetOrgID(r.Context()), chi.URLParam(r, "id"), UpdateIncidentInput{
			Status:      domain.IncidentStatus(req.Status),
			Description: req.Description,
		})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, view)
}

// DeleteIncident handles DELETE /incidents/{id} request.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.DeleteIncident(r.Context(),
		httputil.GetOrgID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, view)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrIncidentNotFound), errors.Is(err, ErrServiceNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
