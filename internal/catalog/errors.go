package catalog

import "errors"

// Service errors.
var (
	ErrServiceNotFound = errors.New("service not found")
)
