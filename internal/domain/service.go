package domain

import "time"

// ServiceStatus represents the operational status of a service.
type ServiceStatus string

// Service statuses.
const (
	ServiceStatusOperational ServiceStatus = "operational"
	ServiceStatusDegraded    ServiceStatus = "degraded"
	ServiceStatusDown        ServiceStatus = "down"
)

// IsValid checks if the service status is valid.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusOperational, ServiceStatusDegraded, ServiceStatusDown:
		return true
	}
	return false
}

// Severity returns the rank used for worst-of-day reduction:
// down(3) > degraded(2) > operational(1). Unknown values rank 0.
func (s ServiceStatus) Severity() int {
	switch s {
	case ServiceStatusDown:
		return 3
	case ServiceStatusDegraded:
		return 2
	case ServiceStatusOperational:
		return 1
	}
	return 0
}

// DailyStatus is the reduced per-day status label. It extends ServiceStatus
// with the "no_data" sentinel for days without a recorded transition.
type DailyStatus string

// Daily statuses.
const (
	DailyStatusOperational DailyStatus = "operational"
	DailyStatusDegraded    DailyStatus = "degraded"
	DailyStatusDown        DailyStatus = "down"
	DailyStatusNoData      DailyStatus = "no_data"
)

// StatusSample is one recorded status value. Samples are append-only:
// never edited or removed once written.
type StatusSample struct {
	Value     ServiceStatus `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
}

// DayBucket holds the status samples recorded on one UTC calendar day.
// Date is always UTC midnight. An empty Statuses slice is the explicit
// "no data" marker for the day, distinct from any status value.
type DayBucket struct {
	Date     time.Time      `json:"date"`
	Statuses []StatusSample `json:"statuses"`
}

// DailyWorstStatus is a derived (date, worst status) pair. It is computed
// on read and never persisted.
type DailyWorstStatus struct {
	Date   string      `json:"date"`
	Status DailyStatus `json:"status"`
}

// Service represents a monitored service owned by an organization.
// StatusHistory is the ordered sequence of day buckets; at most one
// bucket exists per UTC day.
type Service struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organizationId"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Status         ServiceStatus `json:"status"`
	StatusHistory  []DayBucket   `json:"statusHistory"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}
