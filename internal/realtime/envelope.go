// Package realtime implements the tenant-scoped broadcast layer: typed
// event envelopes wrapping domain mutations, a websocket hub that fans
// them out to every connection joined to the owning organization's
// channel, and the merge rules receivers apply.
package realtime

// EventName identifies the kind of mutation an envelope carries.
type EventName string

// Event names.
const (
	EventServiceUpdate  EventName = "serviceUpdate"
	EventIncidentUpdate EventName = "incidentUpdate"
)

// ChangeType identifies what happened to the entity.
type ChangeType string

// Change types.
const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Payload is the envelope body: the change type plus the materialized
// entity. Exactly one of Service or Incident is set, matching Event.
type Payload struct {
	Type     ChangeType  `json:"type"`
	Service  interface{} `json:"service,omitempty"`
	Incident interface{} `json:"incident,omitempty"`
}

// Envelope is a tenant-scoped broadcast message. It is built synchronously
// after the write commits and before the HTTP response returns, from the
// same materialized view the response carries.
type Envelope struct {
	OrganizationID string    `json:"organizationId"`
	Event          EventName `json:"event"`
	Payload        Payload   `json:"data"`
}

// NewServiceEnvelope wraps a service mutation result.
func NewServiceEnvelope(organizationID string, change ChangeType, service interface{}) Envelope {
	return Envelope{
		OrganizationID: organizationID,
		Event:          EventServiceUpdate,
		Payload:        Payload{Type: change, Service: service},
	}
}

// NewIncidentEnvelope wraps an incident mutation result.
func NewIncidentEnvelope(organizationID string, change ChangeType, incident interface{}) Envelope {
	return Envelope{
		OrganizationID: organizationID,
		Event:          EventIncidentUpdate,
		Payload:        Payload{Type: change, Incident: incident},
	}
}
