package identity

import (
	"context"

	"github.com/mashkov/statusdeck/internal/domain"
)

// Repository defines the interface for user and organization storage.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsersByOrganization(ctx context.Context, organizationID string) ([]domain.User, error)

	CreateOrganization(ctx context.Context, organization *domain.Organization) error
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
}
