package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/history"
	"github.com/mashkov/statusdeck/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type fakeRepository struct {
	services         map[string]*domain.Service
	idSeq            int
	historyWrites    int
	failHistoryWrite bool
	lastTx           *fakeTx
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{services: make(map[string]*domain.Service)}
}

func (r *fakeRepository) CreateService(_ context.Context, service *domain.Service) error {
	r.idSeq++
	service.ID = fmt.Sprintf("svc-%d", r.idSeq)
	service.CreatedAt = time.Now()
	service.UpdatedAt = service.CreatedAt
	stored := *service
	r.services[service.ID] = &stored
	return nil
}

func (r *fakeRepository) GetService(_ context.Context, organizationID, id string) (*domain.Service, error) {
	service, ok := r.services[id]
	if !ok || service.OrganizationID != organizationID {
		return nil, ErrServiceNotFound
	}
	out := *service
	return &out, nil
}

func (r *fakeRepository) ListServices(_ context.Context, organizationID string) ([]domain.Service, error) {
	out := make([]domain.Service, 0)
	for i := 1; i <= r.idSeq; i++ {
		if service, ok := r.services[fmt.Sprintf("svc-%d", i)]; ok && service.OrganizationID == organizationID {
			out = append(out, *service)
		}
	}
	return out, nil
}

func (r *fakeRepository) UpdateServiceInfo(_ context.Context, service *domain.Service) error {
	stored, ok := r.services[service.ID]
	if !ok || stored.OrganizationID != service.OrganizationID {
		return ErrServiceNotFound
	}
	stored.Name = service.Name
	stored.Description = service.Description
	stored.UpdatedAt = time.Now()
	service.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *fakeRepository) UpdateStatusHistory(_ context.Context, service *domain.Service) error {
	if r.failHistoryWrite {
		return errors.New("write failed")
	}
	stored, ok := r.services[service.ID]
	if !ok || stored.OrganizationID != service.OrganizationID {
		return ErrServiceNotFound
	}
	stored.Status = service.Status
	stored.StatusHistory = service.StatusHistory
	r.historyWrites++
	return nil
}

func (r *fakeRepository) DeleteService(_ context.Context, organizationID, id string) (*domain.Service, error) {
	service, ok := r.services[id]
	if !ok || service.OrganizationID != organizationID {
		return nil, ErrServiceNotFound
	}
	delete(r.services, id)
	return service, nil
}

func (r *fakeRepository) BeginTx(context.Context) (pgx.Tx, error) {
	r.lastTx = &fakeTx{}
	return r.lastTx, nil
}

func (r *fakeRepository) GetServiceForUpdateTx(ctx context.Context, _ pgx.Tx, organizationID, id string) (*domain.Service, error) {
	return r.GetService(ctx, organizationID, id)
}

func (r *fakeRepository) UpdateStatusHistoryTx(ctx context.Context, _ pgx.Tx, service *domain.Service) error {
	return r.UpdateStatusHistory(ctx, service)
}

type fakeIncidents struct {
	byService map[string][]domain.Incident
}

func (f *fakeIncidents) ListByService(_ context.Context, _, serviceID string) ([]domain.Incident, error) {
	return f.byService[serviceID], nil
}

type fakeBroadcaster struct {
	published []realtime.Envelope
}

func (b *fakeBroadcaster) Publish(_ string, envelope realtime.Envelope) {
	b.published = append(b.published, envelope)
}

func newTestService(repo *fakeRepository, now time.Time) (*Service, *fakeBroadcaster) {
	broadcaster := &fakeBroadcaster{}
	svc := NewService(repo, &fakeIncidents{byService: map[string][]domain.Incident{}}, broadcaster)
	svc.now = func() time.Time { return now }
	return svc, broadcaster
}

func TestCreateService_SeedsFullWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	repo := newFakeRepository()
	svc, broadcaster := newTestService(repo, now)

	view, err := svc.CreateService(context.Background(), &domain.Service{
		OrganizationID: "org-1",
		Name:           "API",
		Description:    "Public API",
	})
	require.NoError(t, err)

	require.Len(t, view.StatusHistory, history.WindowDays)
	for _, bucket := range view.StatusHistory[:history.WindowDays-1] {
		assert.Empty(t, bucket.Statuses)
	}
	today := view.StatusHistory[history.WindowDays-1]
	require.Len(t, today.Statuses, 1)
	assert.Equal(t, domain.ServiceStatusOperational, today.Statuses[0].Value)
	assert.Equal(t, "2025-06-15", history.DayKey(today.Date))

	// One known-good day out of ninety.
	assert.InDelta(t, 1.11, view.Uptime, 0.001)
	require.Len(t, view.DailyWorstStatuses, history.WindowDays)
	assert.Equal(t, domain.DailyStatusOperational, view.DailyWorstStatuses[history.WindowDays-1].Status)
	assert.Equal(t, domain.DailyStatusNoData, view.DailyWorstStatuses[0].Status)

	require.Len(t, broadcaster.published, 1)
	assert.Equal(t, realtime.EventServiceUpdate, broadcaster.published[0].Event)
	assert.Equal(t, realtime.ChangeCreate, broadcaster.published[0].Payload.Type)
}

func TestUpdateServiceStatus_AppendsToToday(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	repo := newFakeRepository()
	svc, broadcaster := newTestService(repo, now)

	view, err := svc.CreateService(context.Background(), &domain.Service{
		OrganizationID: "org-1", Name: "API", Description: "d",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateServiceStatus(context.Background(), "org-1", view.ID, domain.ServiceStatusDown)
	require.NoError(t, err)

	assert.Equal(t, domain.ServiceStatusDown, updated.Status)
	require.Len(t, updated.StatusHistory, history.WindowDays, "no new bucket on a same-day transition")
	today := updated.StatusHistory[history.WindowDays-1]
	require.Len(t, today.Statuses, 2)
	assert.Equal(t, domain.ServiceStatusOperational, today.Statuses[0].Value)
	assert.Equal(t, domain.ServiceStatusDown, today.Statuses[1].Value)

	// Worst-of-day flips today's projection and the uptime with it.
	assert.Equal(t, domain.DailyStatusDown, updated.DailyWorstStatuses[history.WindowDays-1].Status)
	assert.InDelta(t, 0.0, updated.Uptime, 0.001)

	require.True(t, repo.lastTx.committed)
	require.Len(t, broadcaster.published, 2)
	assert.Equal(t, realtime.ChangeUpdate, broadcaster.published[1].Payload.Type)
}

func TestUpdateServiceStatus_DeletedServiceReturnsNotFound(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	repo := newFakeRepository()
	svc, broadcaster := newTestService(repo, now)

	view, err := svc.CreateService(context.Background(), &domain.Service{
		OrganizationID: "org-1", Name: "API", Description: "d",
	})
	require.NoError(t, err)

	_, err = svc.DeleteService(context.Background(), "org-1", view.ID)
	require.NoError(t, err)

	published := len(broadcaster.published)
	_, err = svc.UpdateServiceStatus(context.Background(), "org-1", view.ID, domain.ServiceStatusDown)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.Len(t, broadcaster.published, published, "failed mutation must not broadcast")
}

func TestUpdateServiceStatus_ScopedToOrganization(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	repo := newFakeRepository()
	svc, _ := newTestService(repo, now)

	view, err := svc.CreateService(context.Background(), &domain.Service{
		OrganizationID: "org-1", Name: "API", Description: "d",
	})
	require.NoError(t, err)

	_, err = svc.UpdateServiceStatus(context.Background(), "org-2", view.ID, domain.ServiceStatusDown)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestListServices_BackfillsWindowGaps(t *testing.T) {
	created := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	repo := newFakeRepository()
	svc, _ := newTestService(repo, created)

	_, err := svc.CreateService(context.Background(), &domain.Service{
		OrganizationID: "org-1", Name: "API", Description: "d",
	})
	require.NoError(t, err)

	// Three days pass without any reads or transitions.
	later := created.AddDate(0, 0, 3)
	svc.now = func() time.Time { return later }

	views, err := svc.ListServices(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, views, 1)

	got := views[0]
	assert.Len(t, got.StatusHistory, history.WindowDays+3)
	assert.Equal(t, 1, repo.historyWrites, "repaired history is persisted")

	// The gap days project as no_data, not as any status.
	projected := got.DailyWorstStatuses
	require.Len(t, projected, history.WindowDays)
	assert.Equal(t, domain.DailyStatusNoData, projected[history.WindowDays-1].Status)
	assert.Equal(t, domain.DailyStatusNoData, projected[history.WindowDays-2].Status)
	assert.Equal(t, domain.DailyStatusOperational, projected[history.WindowDays-4].Status)

	// Second read finds nothing to repair.
	_, err = svc.ListServices(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.historyWrites)
}

func TestListServices_BackfillWriteFailureDoesNotFailRead(t *testing.T) {
	created := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	repo := newFakeRepository()
	svc, _ := newTestService(repo, created)

	_, err := svc.CreateService(context.Background(), &domain.Service{
		OrganizationID: "org-1", Name: "API", Description: "d",
	})
	require.NoError(t, err)

	repo.failHistoryWrite = true
	svc.now = func() time.Time { return created.AddDate(0, 0, 2) }

	views, err := svc.ListServices(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, views, 1)

	// The projection still covers the repaired in-memory window.
	assert.Len(t, views[0].StatusHistory, history.WindowDays+2)
}

func TestDeleteService_BroadcastsTrailingWindow(t *testing.T) {
	created := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	repo := newFakeRepository()
	svc, broadcaster := newTestService(repo, created)

	view, err := svc.CreateService(context.Background(), &domain.Service{
		OrganizationID: "org-1", Name: "API", Description: "d",
	})
	require.NoError(t, err)

	// Ten days later the oldest ten buckets have left the window.
	svc.now = func() time.Time { return created.AddDate(0, 0, 10) }

	deleted, err := svc.DeleteService(context.Background(), "org-1", view.ID)
	require.NoError(t, err)

	assert.Len(t, deleted.StatusHistory, history.WindowDays-10)
	require.Len(t, broadcaster.published, 2)
	assert.Equal(t, realtime.ChangeDelete, broadcaster.published[1].Payload.Type)

	_, err = repo.GetService(context.Background(), "org-1", view.ID)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestUpdateServiceInfo_LeavesHistoryUntouched(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	repo := newFakeRepository()
	svc, broadcaster := newTestService(repo, now)

	view, err := svc.CreateService(context.Background(), &domain.Service{
		OrganizationID: "org-1", Name: "API", Description: "old",
	})
	require.NoError(t, err)

	name := "Gateway"
	updated, err := svc.UpdateServiceInfo(context.Background(), "org-1", view.ID, &name, nil)
	require.NoError(t, err)

	assert.Equal(t, "Gateway", updated.Name)
	assert.Equal(t, "old", updated.Description)
	assert.Len(t, updated.StatusHistory, history.WindowDays)
	require.Len(t, broadcaster.published, 2)
	assert.Equal(t, realtime.ChangeUpdate, broadcaster.published[1].Payload.Type)
}
