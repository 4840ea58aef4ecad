package domain

import "time"

// Organization is the tenant boundary: it owns services and incidents,
// and every authenticated read or write is scoped to exactly one
// organization.
type Organization struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AdminClerkID string    `json:"adminClerkId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
