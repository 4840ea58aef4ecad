package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientState_ServiceCreateUpdateDelete(t *testing.T) {
	state := NewClientState()

	create := NewServiceEnvelope("org-1", ChangeCreate, map[string]interface{}{
		"id":     "svc-1",
		"name":   "API",
		"status": "operational",
		"statusHistory": []interface{}{
			map[string]interface{}{"date": "2025-06-15", "statuses": []interface{}{}},
		},
	})
	require.NoError(t, state.Apply(create))
	require.Len(t, state.Services, 1)

	// Update omits statusHistory: the previously known value survives.
	update := NewServiceEnvelope("org-1", ChangeUpdate, map[string]interface{}{
		"id":     "svc-1",
		"status": "down",
	})
	require.NoError(t, state.Apply(update))
	require.Len(t, state.Services, 1)
	assert.Equal(t, "down", state.Services[0]["status"])
	assert.Equal(t, "API", state.Services[0]["name"])
	assert.NotNil(t, state.Services[0]["statusHistory"], "omitted field must keep previous value")

	del := NewServiceEnvelope("org-1", ChangeDelete, map[string]interface{}{"id": "svc-1"})
	require.NoError(t, state.Apply(del))
	assert.Empty(t, state.Services)
}

func TestClientState_ServiceUpdateForUnknownIDInserts(t *testing.T) {
	state := NewClientState()

	update := NewServiceEnvelope("org-1", ChangeUpdate, map[string]interface{}{
		"id":   "svc-9",
		"name": "Search",
	})
	require.NoError(t, state.Apply(update))
	require.Len(t, state.Services, 1)
	assert.Equal(t, "Search", state.Services[0]["name"])
}

func TestClientState_IncidentCreateGroupsByDateAndDedups(t *testing.T) {
	state := NewClientState()

	incident := map[string]interface{}{
		"id":        "inc-1",
		"title":     "API outage",
		"status":    "investigating",
		"createdAt": "2025-06-15T10:00:00Z",
	}

	create := NewIncidentEnvelope("org-1", ChangeCreate, incident)
	require.NoError(t, state.Apply(create))
	// Duplicate delivery of the same create is absorbed.
	require.NoError(t, state.Apply(create))

	bucket := state.Incidents["15/06/2025"]
	require.Len(t, bucket, 1)
	assert.Equal(t, "API outage", bucket[0]["title"])
}

func TestClientState_IncidentUpdateReplacesAcrossBuckets(t *testing.T) {
	state := NewClientState()

	require.NoError(t, state.Apply(NewIncidentEnvelope("org-1", ChangeCreate, map[string]interface{}{
		"id":        "inc-1",
		"status":    "investigating",
		"createdAt": "2025-06-14T22:00:00Z",
	})))
	require.NoError(t, state.Apply(NewIncidentEnvelope("org-1", ChangeCreate, map[string]interface{}{
		"id":        "inc-2",
		"status":    "investigating",
		"createdAt": "2025-06-15T08:00:00Z",
	})))

	require.NoError(t, state.Apply(NewIncidentEnvelope("org-1", ChangeUpdate, map[string]interface{}{
		"id":        "inc-1",
		"status":    "resolved",
		"createdAt": "2025-06-14T22:00:00Z",
	})))

	bucket := state.Incidents["14/06/2025"]
	require.Len(t, bucket, 1)
	assert.Equal(t, "resolved", bucket[0]["status"])

	// The other bucket is untouched.
	assert.Equal(t, "investigating", state.Incidents["15/06/2025"][0]["status"])
}

func TestClientState_IncidentDeletePrunesEmptyBucket(t *testing.T) {
	state := NewClientState()

	require.NoError(t, state.Apply(NewIncidentEnvelope("org-1", ChangeCreate, map[string]interface{}{
		"id":        "inc-1",
		"createdAt": "2025-06-15T10:00:00Z",
	})))
	require.Len(t, state.Incidents, 1)

	require.NoError(t, state.Apply(NewIncidentEnvelope("org-1", ChangeDelete, map[string]interface{}{
		"id":        "inc-1",
		"createdAt": "2025-06-15T10:00:00Z",
	})))

	_, exists := state.Incidents["15/06/2025"]
	assert.False(t, exists, "emptied date bucket must be pruned")
}

func TestClientState_UnknownEventRejected(t *testing.T) {
	state := NewClientState()
	err := state.Apply(Envelope{Event: "somethingElse"})
	assert.Error(t, err)
}
