package incidents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mashkov/statusdeck/internal/catalog"
	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/realtime"
)

// ServiceSource resolves service names for incident read models.
type ServiceSource interface {
	GetServiceName(ctx context.Context, organizationID, serviceID string) (string, error)
}

// Broadcaster publishes change envelopes to an organization's live
// subscribers. Publishing never fails the calling mutation.
type Broadcaster interface {
	Publish(organizationID string, envelope realtime.Envelope)
}

// IncidentView is the read model returned by the API and carried in
// broadcast envelopes. ServiceName is resolved on read; it stays empty when
// the service has since been deleted.
type IncidentView struct {
	domain.Incident
	ServiceName string `json:"serviceName"`
}

// CreateIncidentInput holds the fields for opening an incident.
type CreateIncidentInput struct {
	ServiceID   string
	Title       string
	Description string
	Status      domain.IncidentStatus
}

// UpdateIncidentInput holds the fields for progressing an incident.
// An empty description gets a generated status-change note.
type UpdateIncidentInput struct {
	Status      domain.IncidentStatus
	Description string
}

// Service contains business logic for the incident lifecycle.
type Service struct {
	repo        Repository
	services    ServiceSource
	broadcaster Broadcaster
	now         func() time.Time
}

// NewService creates a new incidents service.
func NewService(repo Repository, services ServiceSource, broadcaster Broadcaster) *Service {
	return &Service{
		repo:        repo,
		services:    services,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// CreateIncident opens an incident against an existing service. The update
// log is seeded with one entry mirroring the opening status and
// description. Subscribers receive a create envelope after the write.
func (s *Service) CreateIncident(ctx context.Context, organizationID string, input CreateIncidentInput) (*IncidentView, error) {
	serviceName, err := s.services.GetServiceName(ctx, organizationID, input.ServiceID)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("resolve service: %w", err)
	}

	now := s.now()
	incident := &domain.Incident{
		OrganizationID: organizationID,
		ServiceID:      input.ServiceID,
		Title:          input.Title,
		Description:    input.Description,
		Status:         input.Status,
		Updates: []domain.IncidentUpdate{{
			ID:          uuid.NewString(),
			Description: input.Description,
			Status:      input.Status,
			Timestamp:   now.UTC(),
		}},
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, err
	}

	view := &IncidentView{Incident: *incident, ServiceName: serviceName}
	s.broadcaster.Publish(organizationID, realtime.NewIncidentEnvelope(organizationID, realtime.ChangeCreate, view))
	return view, nil
}

// UpdateIncident progresses an incident: the denormalized status and the
// appended log entry land in one atomic write, and exactly one update
// envelope goes out afterwards.
func (s *Service) UpdateIncident(ctx context.Context, organizationID, id string, input UpdateIncidentInput) (*IncidentView, error) {
	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Status changed to %s", input.Status)
	}

	update := domain.IncidentUpdate{
		ID:          uuid.NewString(),
		Description: description,
		Status:      input.Status,
		Timestamp:   s.now().UTC(),
	}

	incident, err := s.repo.AppendUpdate(ctx, organizationID, id, input.Status, update)
	if err != nil {
		return nil, err
	}

	view := s.view(ctx, incident)
	s.broadcaster.Publish(organizationID, realtime.NewIncidentEnvelope(organizationID, realtime.ChangeUpdate, view))
	return view, nil
}

// ListIncidents returns the organization's incidents newest first.
func (s *Service) ListIncidents(ctx context.Context, organizationID string) ([]*IncidentView, error) {
	incidents, err := s.repo.ListIncidents(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(incidents))
	views := make([]*IncidentView, 0, len(incidents))
	for i := range incidents {
		incident := &incidents[i]
		name, ok := names[incident.ServiceID]
		if !ok {
			name = s.serviceName(ctx, organizationID, incident.ServiceID)
			names[incident.ServiceID] = name
		}
		views = append(views, &IncidentView{Incident: *incident, ServiceName: name})
	}
	return views, nil
}

// ListByService returns one service's incidents, newest first. Implements
// the incident source used by the catalog read models.
func (s *Service) ListByService(ctx context.Context, organizationID, serviceID string) ([]domain.Incident, error) {
	return s.repo.ListByService(ctx, organizationID, serviceID)
}

// GroupedByDate returns the organization's incidents bucketed by their
// creation date, the grouping used on the public page. Within a bucket
// incidents stay newest first.
func (s *Service) GroupedByDate(ctx context.Context, organizationID string) (map[string][]*IncidentView, error) {
	views, err := s.ListIncidents(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*IncidentView)
	for _, view := range views {
		key := view.CreatedAt.UTC().Format(realtime.GroupDateFormat)
		grouped[key] = append(grouped[key], view)
	}
	return grouped, nil
}

// DeleteIncident removes an incident and broadcasts its final state.
func (s *Service) DeleteIncident(ctx context.Context, organizationID, id string) (*IncidentView, error) {
	incident, err := s.repo.DeleteIncident(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	view := s.view(ctx, incident)
	s.broadcaster.Publish(organizationID, realtime.NewIncidentEnvelope(organizationID, realtime.ChangeDelete, view))
	return view, nil
}

func (s *Service) view(ctx context.Context, incident *domain.Incident) *IncidentView {
	return &IncidentView{
		Incident:    *incident,
		ServiceName: s.serviceName(ctx, incident.OrganizationID, incident.ServiceID),
	}
}

// serviceName tolerates a missing service: incidents outlive deletion and
// then render without a name.
func (s *Service) serviceName(ctx context.Context, organizationID, serviceID string) string {
	name, err := s.services.GetServiceName(ctx, organizationID, serviceID)
	if err != nil {
		return ""
	}
	return name
}
