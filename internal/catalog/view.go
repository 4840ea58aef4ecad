package catalog

import (
	"time"

	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/history"
)

// ServiceView is the read model returned by the API and carried in
// broadcast envelopes. Uptime and DailyWorstStatuses are derived from the
// status history on every read and never persisted.
type ServiceView struct {
	ID                 string                    `json:"id"`
	OrganizationID     string                    `json:"organizationId"`
	Name               string                    `json:"name"`
	Description        string                    `json:"description"`
	Status             domain.ServiceStatus      `json:"status"`
	Uptime             float64                   `json:"uptime"`
	StatusHistory      []domain.DayBucket        `json:"statusHistory"`
	DailyWorstStatuses []domain.DailyWorstStatus `json:"dailyWorstStatuses"`
	Incidents          []domain.Incident         `json:"incidents"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

// NewServiceView materializes the read model for a service: the trailing
// window projection, the uptime ratio derived from it, and the service's
// incidents.
func NewServiceView(service *domain.Service, incidents []domain.Incident, now time.Time) *ServiceView {
	projected := history.ProjectWindow(service.StatusHistory, now)
	if incidents == nil {
		incidents = make([]domain.Incident, 0)
	}

	return &ServiceView{
		ID:                 service.ID,
		OrganizationID:     service.OrganizationID,
		Name:               service.Name,
		Description:        service.Description,
		Status:             service.Status,
		Uptime:             history.UptimeRatio(projected),
		StatusHistory:      service.StatusHistory,
		DailyWorstStatuses: projected,
		Incidents:          incidents,
		CreatedAt:          service.CreatedAt,
		UpdatedAt:          service.UpdatedAt,
	}
}
