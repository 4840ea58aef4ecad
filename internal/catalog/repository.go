package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mashkov/statusdeck/internal/domain"
)

// Repository defines the interface for service storage. Every method is
// scoped by organization so cross-tenant access is impossible at the data
// layer.
type Repository interface {
	CreateService(ctx context.Context, service *domain.Service) error
	GetService(ctx context.Context, organizationID, id string) (*domain.Service, error)
	ListServices(ctx context.Context, organizationID string) ([]domain.Service, error)
	UpdateServiceInfo(ctx context.Context, service *domain.Service) error
	// UpdateStatusHistory persists the whole history document in one row
	// write. Used by the best-effort backfill on the read path.
	UpdateStatusHistory(ctx context.Context, service *domain.Service) error
	// DeleteService removes the row and returns its final state.
	DeleteService(ctx context.Context, organizationID, id string) (*domain.Service, error)

	// Transaction support for the append path: the row is locked so
	// concurrent appends to one service serialize and none are lost.
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetServiceForUpdateTx(ctx context.Context, tx pgx.Tx, organizationID, id string) (*domain.Service, error)
	UpdateStatusHistoryTx(ctx context.Context, tx pgx.Tx, service *domain.Service) error
}
