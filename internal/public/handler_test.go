package public

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mashkov/statusdeck/internal/catalog"
	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/identity"
	"github.com/mashkov/statusdeck/internal/incidents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrganizations struct {
	organizations map[string]*domain.Organization
}

func (f *fakeOrganizations) GetOrganization(_ context.Context, id string) (*domain.Organization, error) {
	organization, ok := f.organizations[id]
	if !ok {
		return nil, identity.ErrOrganizationNotFound
	}
	return organization, nil
}

type fakeServices struct {
	views []*catalog.ServiceView
}

func (f *fakeServices) ListServices(context.Context, string) ([]*catalog.ServiceView, error) {
	return f.views, nil
}

type fakeIncidents struct {
	grouped map[string][]*incidents.IncidentView
}

func (f *fakeIncidents) GroupedByDate(context.Context, string) (map[string][]*incidents.IncidentView, error) {
	return f.grouped, nil
}

func newTestRouter(orgs *fakeOrganizations, services *fakeServices, incs *fakeIncidents) *chi.Mux {
	handler := NewHandler(orgs, services, incs)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestGetStatusPage(t *testing.T) {
	orgs := &fakeOrganizations{organizations: map[string]*domain.Organization{
		"org-1": {ID: "org-1", Name: "Acme", CreatedAt: time.Now()},
	}}
	services := &fakeServices{views: []*catalog.ServiceView{
		{ID: "svc-1", Name: "API", Status: domain.ServiceStatusOperational, Uptime: 98.89},
	}}
	incs := &fakeIncidents{grouped: map[string][]*incidents.IncidentView{
		"15/06/2025": {{
			Incident:    domain.Incident{ID: "inc-1", Title: "Outage", Status: domain.IncidentStatusResolved},
			ServiceName: "API",
		}},
	}}

	router := newTestRouter(orgs, services, incs)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/org-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data StatusPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "org-1", body.Data.OrganizationID)
	assert.Equal(t, "Acme", body.Data.OrganizationName)
	require.Len(t, body.Data.Services, 1)
	assert.InDelta(t, 98.89, body.Data.Services[0].Uptime, 0.001)
	require.Contains(t, body.Data.Incidents, "15/06/2025")
	assert.Equal(t, "API", body.Data.Incidents["15/06/2025"][0].ServiceName)
}

func TestGetStatusPage_UnknownOrganization(t *testing.T) {
	router := newTestRouter(
		&fakeOrganizations{organizations: map[string]*domain.Organization{}},
		&fakeServices{},
		&fakeIncidents{},
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/org-missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
