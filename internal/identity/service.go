package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/pkg/httputil"
)

// SyncUserInput is the profile snapshot pushed by the external identity
// provider on sign-in.
type SyncUserInput struct {
	ClerkID   string
	Email     string
	FirstName string
	LastName  string
	ImageURL  string
}

// Service contains business logic for users and organizations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SyncUser upserts the local record for an external identity. A first
// sign-in creates the user; an invited user signing in for the first time
// gets the external subject attached and flips to active. Every call
// refreshes the profile fields and the last sign-in timestamp.
func (s *Service) SyncUser(ctx context.Context, input SyncUserInput) (*domain.User, error) {
	now := s.now()

	user, err := s.repo.GetUserByClerkID(ctx, input.ClerkID)
	if err == nil {
		user.Email = input.Email
		user.FirstName = input.FirstName
		user.LastName = input.LastName
		user.ImageURL = input.ImageURL
		user.LastSignIn = &now
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	invited, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err == nil {
		invited.ClerkID = input.ClerkID
		invited.FirstName = input.FirstName
		invited.LastName = input.LastName
		invited.ImageURL = input.ImageURL
		invited.Status = domain.UserStatusActive
		invited.LastSignIn = &now
		if err := s.repo.UpdateUser(ctx, invited); err != nil {
			return nil, err
		}
		return invited, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user = &domain.User{
		ClerkID:    input.ClerkID,
		Email:      input.Email,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		ImageURL:   input.ImageURL,
		Role:       domain.RoleMember,
		Status:     domain.UserStatusActive,
		LastSignIn: &now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByClerkID retrieves the local record for an external identity.
func (s *Service) GetUserByClerkID(ctx context.Context, clerkID string) (*domain.User, error) {
	return s.repo.GetUserByClerkID(ctx, clerkID)
}

// CreateOrganization creates an organization and promotes its creator to
// admin in one motion. A user already belonging to an organization cannot
// create another.
func (s *Service) CreateOrganization(ctx context.Context, clerkID, name string) (*domain.Organization, error) {
	user, err := s.repo.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if user.OrganizationID != nil {
		return nil, ErrAlreadyInOrganization
	}

	organization := &domain.Organization{
		Name:         name,
		AdminClerkID: clerkID,
	}
	if err := s.repo.CreateOrganization(ctx, organization); err != nil {
		return nil, err
	}

	user.OrganizationID = &organization.ID
	user.Role = domain.RoleAdmin
	user.Status = domain.UserStatusActive
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("attach creator to organization: %w", err)
	}
	return organization, nil
}

// GetOrganization retrieves an organization by its ID.
func (s *Service) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	return s.repo.GetOrganization(ctx, id)
}

// ListTeam returns all members of an organization.
func (s *Service) ListTeam(ctx context.Context, organizationID string) ([]domain.User, error) {
	return s.repo.ListUsersByOrganization(ctx, organizationID)
}

// InviteMember adds a user to the organization by email. An existing
// account without an organization is attached as invited; an unknown email
// gets a placeholder record that activates on first sign-in. Users already
// in an organization cannot be invited.
func (s *Service) InviteMember(ctx context.Context, organizationID, invitedBy, email string, role domain.Role) (*domain.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		if user.OrganizationID != nil {
			return nil, ErrAlreadyInOrganization
		}
		user.OrganizationID = &organizationID
		user.Role = role
		user.Status = domain.UserStatusInvited
		user.InvitedBy = &invitedBy
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user = &domain.User{
		Email:          email,
		OrganizationID: &organizationID,
		Role:           role,
		Status:         domain.UserStatusInvited,
		InvitedBy:      &invitedBy,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RemoveMember detaches a member from the organization. The member record
// survives as inactive without an organization. Self-removal is rejected,
// an admin leaves by deleting the organization, not by removing themselves.
func (s *Service) RemoveMember(ctx context.Context, organizationID, callerUserID, memberID string) error {
	if memberID == callerUserID {
		return ErrCannotRemoveSelf
	}

	member, err := s.repo.GetUserByID(ctx, memberID)
	if err != nil {
		return err
	}
	if member.OrganizationID == nil || *member.OrganizationID != organizationID {
		return ErrUserNotFound
	}

	member.OrganizationID = nil
	member.Role = domain.RoleMember
	member.Status = domain.UserStatusInactive
	member.InvitedBy = nil
	return s.repo.UpdateUser(ctx, member)
}

// ResolveCaller implements httputil.CallerResolver: it maps an external
// subject identifier to the local user and the organization every request
// is scoped to.
func (s *Service) ResolveCaller(ctx context.Context, clerkID string) (httputil.Caller, error) {
	user, err := s.repo.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return httputil.Caller{}, httputil.ErrCallerNotFound
		}
		return httputil.Caller{}, err
	}
	if user.OrganizationID == nil {
		return httputil.Caller{}, httputil.ErrNoOrganization
	}

	return httputil.Caller{
		UserID:         user.ID,
		OrganizationID: *user.OrganizationID,
		Role:           user.Role,
	}, nil
}
