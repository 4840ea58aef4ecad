// Package public serves the unauthenticated status page: one read-only
// snapshot of an organization's services and incident history.
package public

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mashkov/statusdeck/internal/catalog"
	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/identity"
	"github.com/mashkov/statusdeck/internal/incidents"
	"github.com/mashkov/statusdeck/internal/pkg/httputil"
)

// OrganizationSource resolves the organization shown on the page.
type OrganizationSource interface {
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
}

// ServiceSource provides the service read models. The same call feeds the
// dashboard, so the public page gets identical projections and the same
// in-passing window repair.
type ServiceSource interface {
	ListServices(ctx context.Context, organizationID string) ([]*catalog.ServiceView, error)
}

// IncidentSource provides the date-grouped incident history.
type IncidentSource interface {
	GroupedByDate(ctx context.Context, organizationID string) (map[string][]*incidents.IncidentView, error)
}

// StatusPage is the complete public snapshot for one organization.
type StatusPage struct {
	OrganizationID   string                               `json:"organizationId"`
	OrganizationName string                               `json:"organizationName"`
	Services         []*catalog.ServiceView               `json:"services"`
	Incidents        map[string][]*incidents.IncidentView `json:"incidents"`
}

// Handler handles HTTP requests for the public status page.
type Handler struct {
	organizations OrganizationSource
	services      ServiceSource
	incidents     IncidentSource
}

// NewHandler creates a new public handler.
func NewHandler(organizations OrganizationSource, services ServiceSource, incidents IncidentSource) *Handler {
	return &Handler{
		organizations: organizations,
		services:      services,
		incidents:     incidents,
	}
}

// RegisterRoutes registers the public routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status/{organizationId}", h.GetStatusPage)
}

// GetStatusPage handles GET /status/{organizationId} request. No
// authentication: anyone holding the organization ID can read the page.
func (h *Handler) GetStatusPage(w http.ResponseWriter, r *http.Request) {
	organizationID := chi.URLParam(r, "organizationId")

	organization, err := h.organizations.GetOrganization(r.Context(), organizationID)
	if err != nil {
		if errors.Is(err, identity.ErrOrganizationNotFound) {
			httputil.Error(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	services, err := h.services.ListServices(r.Context(), organizationID)
	if err != nil {
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	grouped, err := h.incidents.GroupedByDate(r.Context(), organizationID)
	if err != nil {
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.Success(w, http.StatusOK, StatusPage{
		OrganizationID:   organization.ID,
		OrganizationName: organization.Name,
		Services:         services,
		Incidents:        grouped,
	})
}
