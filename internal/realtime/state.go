package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// GroupDateFormat is the key format for date-grouped incidents.
const GroupDateFormat = "02/01/2006"

// ClientState is the receiving end of the broadcast contract: the merge
// rules every subscriber applies to stay consistent with the producer.
// Keeping them next to the producer lets tests assert the contract end to
// end; dashboards implement the same rules.
type ClientState struct {
	// Services is the flat service list, ordered by arrival.
	Services []map[string]interface{}
	// Incidents is grouped by the incident's creation date.
	Incidents map[string][]map[string]interface{}
}

// NewClientState creates an empty client state.
func NewClientState() *ClientState {
	return &ClientState{
		Incidents: make(map[string][]map[string]interface{}),
	}
}

// Apply merges one envelope into the state using the event's type-specific
// rules.
func (s *ClientState) Apply(envelope Envelope) error {
	switch envelope.Event {
	case EventServiceUpdate:
		return s.applyService(envelope.Payload)
	case EventIncidentUpdate:
		return s.applyIncident(envelope.Payload)
	}
	return fmt.Errorf("unknown event name: %s", envelope.Event)
}

func (s *ClientState) applyService(payload Payload) error {
	entity, err := toMap(payload.Service)
	if err != nil {
		return fmt.Errorf("decode service payload: %w", err)
	}
	id := entityID(entity)

	switch payload.Type {
	case ChangeCreate:
		s.Services = append(s.Services, entity)
	case ChangeUpdate:
		// Replace-by-identifier with a deep merge: fields absent from the
		// envelope keep their previous value.
		for i, existing := range s.Services {
			if entityID(existing) == id {
				s.Services[i] = deepMerge(existing, entity)
				return nil
			}
		}
		s.Services = append(s.Services, entity)
	case ChangeDelete:
		for i, existing := range s.Services {
			if entityID(existing) == id {
				s.Services = append(s.Services[:i], s.Services[i+1:]...)
				return nil
			}
		}
	default:
		return fmt.Errorf("unknown change type: %s", payload.Type)
	}
	return nil
}

func (s *ClientState) applyIncident(payload Payload) error {
	entity, err := toMap(payload.Incident)
	if err != nil {
		return fmt.Errorf("decode incident payload: %w", err)
	}
	id := entityID(entity)

	switch payload.Type {
	case ChangeCreate:
		key := groupKey(entity)
		for _, existing := range s.Incidents[key] {
			if entityID(existing) == id {
				return nil
			}
		}
		s.Incidents[key] = append(s.Incidents[key], entity)
	case ChangeUpdate:
		for key, bucket := range s.Incidents {
			for i, existing := range bucket {
				if entityID(existing) == id {
					s.Incidents[key][i] = entity
					return nil
				}
			}
		}
	case ChangeDelete:
		for key, bucket := range s.Incidents {
			for i, existing := range bucket {
				if entityID(existing) == id {
					s.Incidents[key] = append(bucket[:i], bucket[i+1:]...)
					if len(s.Incidents[key]) == 0 {
						delete(s.Incidents, key)
					}
					return nil
				}
			}
		}
	default:
		return fmt.Errorf("unknown change type: %s", payload.Type)
	}
	return nil
}

// toMap round-trips an entity through JSON so merge rules see exactly the
// fields the wire carries.
func toMap(entity interface{}) (map[string]interface{}, error) {
	if m, ok := entity.(map[string]interface{}); ok {
		return m, nil
	}
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func entityID(m map[string]interface{}) string {
	id, _ := m["id"].(string)
	return id
}

// groupKey derives the date bucket for an incident from its creation
// timestamp.
func groupKey(m map[string]interface{}) string {
	createdAt, _ := m["createdAt"].(string)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		return t.UTC().Format(GroupDateFormat)
	}
	return createdAt
}

// deepMerge overlays incoming onto existing, recursing into nested
// objects. Keys missing from incoming survive.
func deepMerge(existing, incoming map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		if nested, ok := v.(map[string]interface{}); ok {
			if prev, ok := out[k].(map[string]interface{}); ok {
				out[k] = deepMerge(prev, nested)
				continue
			}
		}
		out[k] = v
	}
	return out
}
