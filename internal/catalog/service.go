package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/history"
	"github.com/mashkov/statusdeck/internal/pkg/ctxlog"
	"github.com/mashkov/statusdeck/internal/realtime"
)

// IncidentSource provides the incidents attached to service read models.
type IncidentSource interface {
	ListByService(ctx context.Context, organizationID, serviceID string) ([]domain.Incident, error)
}

// Broadcaster publishes change envelopes to an organization's live
// subscribers. Publishing never fails the calling mutation.
type Broadcaster interface {
	Publish(organizationID string, envelope realtime.Envelope)
}

// Service contains business logic for the service catalog.
type Service struct {
	repo        Repository
	incidents   IncidentSource
	broadcaster Broadcaster
	now         func() time.Time
}

// NewService creates a new catalog service.
func NewService(repo Repository, incidents IncidentSource, broadcaster Broadcaster) *Service {
	return &Service{
		repo:        repo,
		incidents:   incidents,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// CreateService creates a service with a fully seeded status history: 89
// explicitly empty days plus today holding one sample of the initial
// status. Subscribers receive a create envelope after the write commits.
func (s *Service) CreateService(ctx context.Context, service *domain.Service) (*ServiceView, error) {
	now := s.now()
	if service.Status == "" {
		service.Status = domain.ServiceStatusOperational
	}
	service.StatusHistory = history.SeedWindow(now, service.Status)

	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, err
	}

	view := NewServiceView(service, nil, now)
	s.broadcaster.Publish(service.OrganizationID, realtime.NewServiceEnvelope(service.OrganizationID, realtime.ChangeCreate, view))
	return view, nil
}

// GetService retrieves a single service scoped to an organization.
func (s *Service) GetService(ctx context.Context, organizationID, id string) (*domain.Service, error) {
	return s.repo.GetService(ctx, organizationID, id)
}

// GetServiceName resolves a service's display name. Used by modules that
// denormalize the name into their own read models.
func (s *Service) GetServiceName(ctx context.Context, organizationID, id string) (string, error) {
	service, err := s.repo.GetService(ctx, organizationID, id)
	if err != nil {
		return "", err
	}
	return service.Name, nil
}

// ListServices returns the read models for all services of an organization.
// Histories with window gaps are repaired in passing: missing days get
// empty buckets and the repaired history is written back best-effort. A
// failed write-back never fails the read, the projection still uses the
// repaired in-memory history.
func (s *Service) ListServices(ctx context.Context, organizationID string) ([]*ServiceView, error) {
	services, err := s.repo.ListServices(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]*ServiceView, 0, len(services))
	for i := range services {
		service := &services[i]

		if repaired, changed := history.Backfill(service.StatusHistory, now); changed {
			service.StatusHistory = repaired
			if err := s.repo.UpdateStatusHistory(ctx, service); err != nil {
				ctxlog.FromContext(ctx).Warn("status history backfill write failed",
					"service_id", service.ID, "error", err)
			}
		}

		incidents, err := s.incidents.ListByService(ctx, organizationID, service.ID)
		if err != nil {
			return nil, fmt.Errorf("list incidents for service %s: %w", service.ID, err)
		}
		views = append(views, NewServiceView(service, incidents, now))
	}
	return views, nil
}

// UpdateServiceInfo changes a service's name and description. The status
// history is untouched. Subscribers receive an update envelope.
func (s *Service) UpdateServiceInfo(ctx context.Context, organizationID, id string, name, description *string) (*ServiceView, error) {
	service, err := s.repo.GetService(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		service.Name = *name
	}
	if description != nil {
		service.Description = *description
	}

	if err := s.repo.UpdateServiceInfo(ctx, service); err != nil {
		return nil, err
	}

	view, err := s.materialize(ctx, service)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Publish(organizationID, realtime.NewServiceEnvelope(organizationID, realtime.ChangeUpdate, view))
	return view, nil
}

// UpdateServiceStatus records a status transition: one sample appended to
// today's bucket, never rewriting past days. The row is locked for the
// read-modify-write so concurrent transitions serialize and both samples
// survive. Missing window days are filled with empty buckets in the same
// transaction; on this path a backfill failure aborts the transition.
func (s *Service) UpdateServiceStatus(ctx context.Context, organizationID, id string, status domain.ServiceStatus) (*ServiceView, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.FromContext(ctx).Error("failed to rollback transaction", "error", err)
		}
	}()

	service, err := s.repo.GetServiceForUpdateTx(ctx, tx, organizationID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	buckets, _ := history.Backfill(service.StatusHistory, now)
	service.StatusHistory = history.AppendSample(buckets, status, now)
	service.Status = status

	if err := s.repo.UpdateStatusHistoryTx(ctx, tx, service); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	view, err := s.materialize(ctx, service)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Publish(organizationID, realtime.NewServiceEnvelope(organizationID, realtime.ChangeUpdate, view))
	return view, nil
}

// DeleteService removes a service. Its incidents stay untouched as
// historical record. The delete envelope carries the service's final state
// with the trailing window of its history.
func (s *Service) DeleteService(ctx context.Context, organizationID, id string) (*ServiceView, error) {
	service, err := s.repo.DeleteService(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	service.StatusHistory = history.TrailingWindow(service.StatusHistory, now)
	view := NewServiceView(service, nil, now)
	s.broadcaster.Publish(organizationID, realtime.NewServiceEnvelope(organizationID, realtime.ChangeDelete, view))
	return view, nil
}

func (s *Service) materialize(ctx context.Context, service *domain.Service) (*ServiceView, error) {
	incidents, err := s.incidents.ListByService(ctx, service.OrganizationID, service.ID)
	if err != nil {
		return nil, fmt.Errorf("list incidents for service %s: %w", service.ID, err)
	}
	return NewServiceView(service, incidents, s.now()), nil
}
