package domain

import "time"

// IncidentStatus represents the current status of an incident.
type IncidentStatus string

// Incident statuses. No transition order is enforced.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusInvestigating, IncidentStatusIdentified,
		IncidentStatusMonitoring, IncidentStatusResolved:
		return true
	}
	return false
}

// IncidentUpdate is one entry in an incident's append-only update log.
type IncidentUpdate struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Status      IncidentStatus `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Incident belongs to exactly one service and one organization. Status is
// a denormalized copy of the latest update's status; both are written
// together in a single row update so they can never diverge.
type Incident struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organizationId"`
	ServiceID      string           `json:"serviceId"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Status         IncidentStatus   `json:"status"`
	Updates        []IncidentUpdate `json:"updates"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}
