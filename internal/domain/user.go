package domain

import "time"

// Role represents a user's role within their organization.
type Role string

// Roles.
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// UserStatus represents a user's membership lifecycle state.
type UserStatus string

// User statuses.
const (
	UserStatusActive   UserStatus = "active"
	UserStatusInvited  UserStatus = "invited"
	UserStatusInactive UserStatus = "inactive"
)

// User is a local record keyed by the external identity provider's
// subject identifier (ClerkID). Credential verification happens outside
// this system; the ClerkID is trusted as-is. A user belongs to at most
// one organization.
type User struct {
	ID             string     `json:"id"`
	ClerkID        string     `json:"clerkId,omitempty"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName,omitempty"`
	LastName       string     `json:"lastName,omitempty"`
	ImageURL       string     `json:"imageUrl,omitempty"`
	OrganizationID *string    `json:"organizationId,omitempty"`
	Role           Role       `json:"role"`
	Status         UserStatus `json:"status"`
	InvitedBy      *string    `json:"invitedBy,omitempty"`
	LastSignIn     *time.Time `json:"lastSignIn,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
