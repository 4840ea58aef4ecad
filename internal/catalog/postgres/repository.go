// Package postgres provides the PostgreSQL implementation of the catalog
// repository. The status history travels as one JSONB document per service
// row, so a history mutation is always a single-row write.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mashkov/statusdeck/internal/catalog"
	"github.com/mashkov/statusdeck/internal/domain"
)

// Repository implements the catalog.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateService creates a new service in the database.
func (r *Repository) CreateService(ctx context.Context, service *domain.Service) error {
	history, err := json.Marshal(service.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshal status history: %w", err)
	}

	query := `
		INSERT INTO services (organization_id, name, description, status, status_history)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		service.OrganizationID,
		service.Name,
		service.Description,
		service.Status,
		history,
	).Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// GetService retrieves a service by its ID within an organization.
func (r *Repository) GetService(ctx context.Context, organizationID, id string) (*domain.Service, error) {
	query := `
		SELECT id, organization_id, name, description, status, status_history, created_at, updated_at
		FROM services
		WHERE id = $1 AND organization_id = $2
	`
	service, err := scanService(r.db.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service by id: %w", err)
	}
	return service, nil
}

// ListServices retrieves all services of an organization ordered by creation.
func (r *Repository) ListServices(ctx context.Context, organizationID string) ([]domain.Service, error) {
	query := `
		SELECT id, organization_id, name, description, status, status_history, created_at, updated_at
		FROM services
		WHERE organization_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *service)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return services, nil
}

// UpdateServiceInfo updates name and description of an existing service.
func (r *Repository) UpdateServiceInfo(ctx context.Context, service *domain.Service) error {
	query := `
		UPDATE services
		SET name = $3, description = $4, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		service.ID,
		service.OrganizationID,
		service.Name,
		service.Description,
	).Scan(&service.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrServiceNotFound
		}
		return fmt.Errorf("update service info: %w", err)
	}
	return nil
}

// UpdateStatusHistory persists the full history document of a service.
func (r *Repository) UpdateStatusHistory(ctx context.Context, service *domain.Service) error {
	history, err := json.Marshal(service.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshal status history: %w", err)
	}

	query := `
		UPDATE services
		SET status = $3, status_history = $4, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING updated_at
	`
	err = r.db.QueryRow(ctx, query,
		service.ID,
		service.OrganizationID,
		service.Status,
		history,
	).Scan(&service.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrServiceNotFound
		}
		return fmt.Errorf("update status history: %w", err)
	}
	return nil
}

// DeleteService deletes a service and returns its final state.
func (r *Repository) DeleteService(ctx context.Context, organizationID, id string) (*domain.Service, error) {
	query := `
		DELETE FROM services
		WHERE id = $1 AND organization_id = $2
		RETURNING id, organization_id, name, description, status, status_history, created_at, updated_at
	`
	service, err := scanService(r.db.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("delete service: %w", err)
	}
	return service, nil
}

// BeginTx starts a new transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// GetServiceForUpdateTx retrieves a service within a transaction and locks
// its row until commit, serializing concurrent history appends.
func (r *Repository) GetServiceForUpdateTx(ctx context.Context, tx pgx.Tx, organizationID, id string) (*domain.Service, error) {
	query := `
		SELECT id, organization_id, name, description, status, status_history, created_at, updated_at
		FROM services
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`
	service, err := scanService(tx.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service for update: %w", err)
	}
	return service, nil
}

// UpdateStatusHistoryTx persists status and history within a transaction.
func (r *Repository) UpdateStatusHistoryTx(ctx context.Context, tx pgx.Tx, service *domain.Service) error {
	history, err := json.Marshal(service.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshal status history: %w", err)
	}

	query := `
		UPDATE services
		SET status = $3, status_history = $4, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING updated_at
	`
	err = tx.QueryRow(ctx, query,
		service.ID,
		service.OrganizationID,
		service.Status,
		history,
	).Scan(&service.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrServiceNotFound
		}
		return fmt.Errorf("update status history: %w", err)
	}
	return nil
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var service domain.Service
	var history []byte
	err := row.Scan(
		&service.ID,
		&service.OrganizationID,
		&service.Name,
		&service.Description,
		&service.Status,
		&history,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &service.StatusHistory); err != nil {
			return nil, fmt.Errorf("unmarshal status history: %w", err)
		}
	}
	if service.StatusHistory == nil {
		service.StatusHistory = make([]domain.DayBucket, 0)
	}
	return &service, nil
}
