package incidents

import (
	"context"

	"github.com/mashkov/statusdeck/internal/domain"
)

// Repository defines the interface for incident storage. Incidents outlive
// their service: nothing here cascades on service deletion.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, organizationID, id string) (*domain.Incident, error)
	// ListIncidents returns the organization's incidents newest first.
	ListIncidents(ctx context.Context, organizationID string) ([]domain.Incident, error)
	ListByService(ctx context.Context, organizationID, serviceID string) ([]domain.Incident, error)
	// AppendUpdate writes the new denormalized status and appends one entry
	// to the update log in a single row update, then returns the new row
	// state. The two can never diverge.
	AppendUpdate(ctx context.Context, organizationID, id string, status domain.IncidentStatus, update domain.IncidentUpdate) (*domain.Incident, error)
	// DeleteIncident removes the row and returns its final state.
	DeleteIncident(ctx context.Context, organizationID, id string) (*domain.Incident, error)
}
