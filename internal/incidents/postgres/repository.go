// Package postgres provides the PostgreSQL implementation of the incidents
// repository. The update log is a JSONB array on the incident row; the
// denormalized status and the log are always written in one statement.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/incidents"
)

// Repository implements the incidents.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateIncident creates a new incident in the database.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	updates, err := json.Marshal(incident.Updates)
	if err != nil {
		return fmt.Errorf("marshal incident updates: %w", err)
	}

	query := `
		INSERT INTO incidents (organization_id, service_id, title, description, status, updates)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		incident.OrganizationID,
		incident.ServiceID,
		incident.Title,
		incident.Description,
		incident.Status,
		updates,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident by its ID within an organization.
func (r *Repository) GetIncident(ctx context.Context, organizationID, id string) (*domain.Incident, error) {
	query := `
		SELECT id, organization_id, service_id, title, description, status, updates, created_at, updated_at
		FROM incidents
		WHERE id = $1 AND organization_id = $2
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident by id: %w", err)
	}
	return incident, nil
}

// ListIncidents retrieves all incidents of an organization, newest first.
func (r *Repository) ListIncidents(ctx context.Context, organizationID string) ([]domain.Incident, error) {
	query := `
		SELECT id, organization_id, service_id, title, description, status, updates, created_at, updated_at
		FROM incidents
		WHERE organization_id = $1
		ORDER BY created_at DESC, id
	`
	return r.list(ctx, query, organizationID)
}

// ListByService retrieves the incidents of one service, newest first.
func (r *Repository) ListByService(ctx context.Context, organizationID, serviceID string) ([]domain.Incident, error) {
	query := `
		SELECT id, organization_id, service_id, title, description, status, updates, created_at, updated_at
		FROM incidents
		WHERE organization_id = $1 AND service_id = $2
		ORDER BY created_at DESC, id
	`
	return r.list(ctx, query, organizationID, serviceID)
}

// AppendUpdate sets the denormalized status and appends one update entry in
// a single statement, returning the new row state.
func (r *Repository) AppendUpdate(ctx context.Context, organizationID, id string, status domain.IncidentStatus, update domain.IncidentUpdate) (*domain.Incident, error) {
	entry, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("marshal incident update: %w", err)
	}

	query := `
		UPDATE incidents
		SET status = $3, updates = updates || $4::jsonb, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING id, organization_id, service_id, title, description, status, updates, created_at, updated_at
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id, organizationID, status, entry))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("append incident update: %w", err)
	}
	return incident, nil
}

// DeleteIncident deletes an incident and returns its final state.
func (r *Repository) DeleteIncident(ctx context.Context, organizationID, id string) (*domain.Incident, error) {
	query := `
		DELETE FROM incidents
		WHERE id = $1 AND organization_id = $2
		RETURNING id, organization_id, service_id, title, description, status, updates, created_at, updated_at
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("delete incident: %w", err)
	}
	return incident, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Incident, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, *incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return result, nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident
	var updates []byte
	err := row.Scan(
		&incident.ID,
		&incident.OrganizationID,
		&incident.ServiceID,
		&incident.Title,
		&incident.Description,
		&incident.Status,
		&updates,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := json.Unmarshal(updates, &incident.Updates); err != nil {
			return nil, fmt.Errorf("unmarshal incident updates: %w", err)
		}
	}
	if incident.Updates == nil {
		incident.Updates = make([]domain.IncidentUpdate, 0)
	}
	return &incident, nil
}
