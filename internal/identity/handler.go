// Package identity provides HTTP handlers and business logic for users,
// organizations and team membership. Authentication itself lives with an
// external identity provider; this module only keeps the local records in
// sync and resolves callers to their organization.
package identity

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

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers routes that work before the caller has an
// organization: profile sync and organization creation.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/users/sync", h.SyncUser)
	r.Get("/users/me", h.GetCurrentUser)
	r.Get("/users/organization", h.GetUserOrganization)
	r.Post("/organizations", h.CreateOrganization)
}

// RegisterTeamRoutes registers the organization-scoped team routes.
func (h *Handler) RegisterTeamRoutes(r chi.Router) {
	r.Route("/team", func(r chi.Router) {
		r.Get("/", h.ListTeam)
		r.With(httputil.RequireAdmin).Post("/invite", h.InviteMember)
		r.With(httputil.RequireAdmin).Delete("/{userId}", h.RemoveMember)
	})
}

// SyncUserRequest represents the profile snapshot from the identity
// provider.
type SyncUserRequest struct {
	ClerkID   string `json:"clerkId" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl" validate:"omitempty,url"`
}

// CreateOrganizationRequest represents the request body for creating an
// organization.
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// InviteMemberRequest represents the request body for inviting a member.
type InviteMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin member"`
}

// SyncUser handles POST /users/sync request.
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req SyncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.SyncUser(r.Context(), SyncUserInput{
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// GetCurrentUser handles GET /users/me request. The response carries the
// user and, when the user belongs to one, the organization.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	clerkID := httputil.ClerkID(r)
	if clerkID == "" {
		httputil.Error(w, http.StatusBadRequest, "clerkId is required")
		return
	}

	user, err := h.service.GetUserByClerkID(r.Context(), clerkID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := map[string]interface{}{"user": user}
	if user.OrganizationID != nil {
		organization, err := h.service.GetOrganization(r.Context(), *user.OrganizationID)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		response["organization"] = organization
	}

	httputil.Success(w, http.StatusOK, response)
}

// GetUserOrganization handles GET /users/organization request.
func (h *Handler) GetUserOrganization(w http.ResponseWriter, r *http.Request) {
	clerkID := httputil.ClerkID(r)
	if clerkID == "" {
		httputil.Error(w, http.StatusBadRequest, "clerkId is required")
		return
	}

	user, err := h.service.GetUserByClerkID(r.Context(), clerkID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if user.OrganizationID == nil {
		httputil.Error(w, http.StatusNotFound, ErrOrganizationNotFound.Error())
		return
	}

	organization, err := h.service.GetOrganization(r.Context(), *user.OrganizationID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, organization)
}

// CreateOrganization handles POST /organizations request.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	clerkID := httputil.ClerkID(r)
	if clerkID == "" {
		httputil.Error(w, http.StatusBadRequest, "clerkId is required")
		return
	}

	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	organization, err := h.service.CreateOrganization(r.Context(), clerkID, req.Name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, organization)
}

// ListTeam handles GET /team request.
func (h *Handler) ListTeam(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListTeam(r.Context(), httputil.GetOrgID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, members)
}

// InviteMember handles POST /team/invite request.
func (h *Handler) InviteMember(w http.ResponseWriter, r *http.Request) {
	var req InviteMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleMember
	}

	member, err := h.service.InviteMember(r.Context(),
		httputil.GetOrgID(r.Context()), httputil.GetUserID(r.Context()), req.Email, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, member)
}

// RemoveMember handles DELETE /team/{userId} request.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveMember(r.Context(),
		httputil.GetOrgID(r.Context()), httputil.GetUserID(r.Context()), chi.URLParam(r, "userId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrOrganizationNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyInOrganization):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrCannotRemoveSelf):
		httputil.Error(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
