package identity

import "errors"

// Service errors.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrOrganizationNotFound  = errors.New("organization not found")
	ErrAlreadyInOrganization = errors.New("user already belongs to an organization")
	ErrCannotRemoveSelf      = errors.New("cannot remove yourself from the organization")
)
