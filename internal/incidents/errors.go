package incidents

import "errors"

// Service errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrServiceNotFound  = errors.New("service not found")
)
