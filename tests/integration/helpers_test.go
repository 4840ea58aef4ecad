//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mashkov/statusdeck/internal/testutil"
	"github.com/stretchr/testify/require"
)

var identitySeq atomic.Int64

// View shapes mirror the API read models. Only the asserted fields are
// declared.

type statusSample struct {
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type dayBucket struct {
	Date     time.Time      `json:"date"`
	Statuses []statusSample `json:"statuses"`
}

type dailyWorstStatus struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

type serviceView struct {
	ID                 string             `json:"id"`
	OrganizationID     string             `json:"organizationId"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	Status             string             `json:"status"`
	Uptime             float64            `json:"uptime"`
	StatusHistory      []dayBucket        `json:"statusHistory"`
	DailyWorstStatuses []dailyWorstStatus `json:"dailyWorstStatuses"`
	Incidents          []incidentView     `json:"incidents"`
}

type incidentUpdate struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

type incidentView struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organizationId"`
	ServiceID      string           `json:"serviceId"`
	ServiceName    string           `json:"serviceName"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Status         string           `json:"status"`
	Updates        []incidentUpdate `json:"updates"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type organizationView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userView struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	OrganizationID *string `json:"organizationId"`
	Role           string  `json:"role"`
	Status         string  `json:"status"`
}

// newOrgClient signs up a fresh identity, creates an organization for it
// and returns a client acting as that identity plus the organization ID.
func newOrgClient(t *testing.T) (*testutil.Client, string) {
	t.Helper()

	seq := identitySeq.Add(1)
	clerkID := fmt.Sprintf("clerk-it-%d", seq)
	email := fmt.Sprintf("it-%d@example.com", seq)
	client := testClient.As(clerkID)

	resp, err := client.POST("/api/v1/users/sync", map[string]string{
		"clerkId": clerkID,
		"email":   email,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	resp, err = client.POST("/api/v1/organizations", map[string]string{
		"name": fmt.Sprintf("Org %d", seq),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Data organizationView `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	require.NotEmpty(t, body.Data.ID)

	return client, body.Data.ID
}

// syncUser registers a bare identity without an organization.
func syncUser(t *testing.T, clerkID, email string) *testutil.Client {
	t.Helper()

	client := testClient.As(clerkID)
	resp, err := client.POST("/api/v1/users/sync", map[string]string{
		"clerkId": clerkID,
		"email":   email,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))
	_ = resp.Body.Close()
	return client
}

func createService(t *testing.T, client *testutil.Client, name, description string) serviceView {
	t.Helper()

	resp, err := client.POST("/api/v1/services", map[string]string{
		"name":        name,
		"description": description,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var body struct {
		Data serviceView `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	return body.Data
}

func createIncident(t *testing.T, client *testutil.Client, serviceID, title, description string) incidentView {
	t.Helper()

	resp, err := client.POST("/api/v1/incidents", map[string]string{
		"serviceId":   serviceID,
		"title":       title,
		"description": description,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var body struct {
		Data incidentView `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	return body.Data
}

func listServices(t *testing.T, client *testutil.Client) []serviceView {
	t.Helper()

	resp, err := client.GET("/api/v1/services")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []serviceView `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	return body.Data
}
