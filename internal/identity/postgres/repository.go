// Package postgres provides the PostgreSQL implementation of the identity
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/identity"
)

// Repository implements the identity.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, clerk_id, email, first_name, last_name, image_url,
	organization_id, role, status, invited_by, last_sign_in, created_at, updated_at`

// CreateUser creates a new user in the database.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (clerk_id, email, first_name, last_name, image_url, organization_id, role, status, invited_by, last_sign_in)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ClerkID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ImageURL,
		user.OrganizationID,
		user.Role,
		user.Status,
		user.InvitedBy,
		user.LastSignIn,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by its ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getUser(ctx, query, id)
}

// GetUserByClerkID retrieves a user by its external subject identifier.
func (r *Repository) GetUserByClerkID(ctx context.Context, clerkID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE clerk_id = $1`
	return r.getUser(ctx, query, clerkID)
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getUser(ctx, query, email)
}

// UpdateUser updates an existing user.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET clerk_id = NULLIF($2, ''), email = $3, first_name = $4, last_name = $5, image_url = $6,
			organization_id = $7, role = $8, status = $9, invited_by = $10, last_sign_in = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.ClerkID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ImageURL,
		user.OrganizationID,
		user.Role,
		user.Status,
		user.InvitedBy,
		user.LastSignIn,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListUsersByOrganization retrieves all members of an organization.
func (r *Repository) ListUsersByOrganization(ctx context.Context, organizationID string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// CreateOrganization creates a new organization in the database.
func (r *Repository) CreateOrganization(ctx context.Context, organization *domain.Organization) error {
	query := `
		INSERT INTO organizations (name, admin_clerk_id)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		organization.Name,
		organization.AdminClerkID,
	).Scan(&organization.ID, &organization.CreatedAt, &organization.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// GetOrganization retrieves an organization by its ID.
func (r *Repository) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	query := `
		SELECT id, name, admin_clerk_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	var organization domain.Organization
	err := r.db.QueryRow(ctx, query, id).Scan(
		&organization.ID,
		&organization.Name,
		&organization.AdminClerkID,
		&organization.CreatedAt,
		&organization.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("get organization by id: %w", err)
	}
	return &organization, nil
}

func (r *Repository) getUser(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var clerkID *string
	err := row.Scan(
		&user.ID,
		&clerkID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.ImageURL,
		&user.OrganizationID,
		&user.Role,
		&user.Status,
		&user.InvitedBy,
		&user.LastSignIn,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if clerkID != nil {
		user.ClerkID = *clerkID
	}
	return &user, nil
}
