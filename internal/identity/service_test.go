package identity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mashkov/statusdeck/internal/domain"
	"github.com/mashkov/statusdeck/internal/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	users         map[string]*domain.User
	organizations map[string]*domain.Organization
	userSeq       int
	orgSeq        int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:         make(map[string]*domain.User),
		organizations: make(map[string]*domain.Organization),
	}
}

func (r *fakeRepository) CreateUser(_ context.Context, user *domain.User) error {
	r.userSeq++
	user.ID = fmt.Sprintf("user-%d", r.userSeq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *fakeRepository) GetUserByClerkID(_ context.Context, clerkID string) (*domain.User, error) {
	for _, user := range r.users {
		if user.ClerkID == clerkID && clerkID != "" {
			out := *user
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepository) UpdateUser(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeRepository) ListUsersByOrganization(_ context.Context, organizationID string) ([]domain.User, error) {
	out := make([]domain.User, 0)
	for i := 1; i <= r.userSeq; i++ {
		user, ok := r.users[fmt.Sprintf("user-%d", i)]
		if ok && user.OrganizationID != nil && *user.OrganizationID == organizationID {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (r *fakeRepository) CreateOrganization(_ context.Context, organization *domain.Organization) error {
	r.orgSeq++
	organization.ID = fmt.Sprintf("org-%d", r.orgSeq)
	organization.CreatedAt = time.Now()
	organization.UpdatedAt = organization.CreatedAt
	stored := *organization
	r.organizations[organization.ID] = &stored
	return nil
}

func (r *fakeRepository) GetOrganization(_ context.Context, id string) (*domain.Organization, error) {
	organization, ok := r.organizations[id]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	out := *organization
	return &out, nil
}

func TestSyncUser_CreatesOnFirstSignIn(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	user, err := svc.SyncUser(context.Background(), SyncUserInput{
		ClerkID:   "clerk-1",
		Email:     "ada@example.com",
		FirstName: "Ada",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "clerk-1", user.ClerkID)
	assert.Equal(t, domain.RoleMember, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.Nil(t, user.OrganizationID)
	require.NotNil(t, user.LastSignIn)
}

func TestSyncUser_RefreshesExistingProfile(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	first, err := svc.SyncUser(context.Background(), SyncUserInput{
		ClerkID: "clerk-1", Email: "ada@example.com", FirstName: "Ada",
	})
	require.NoError(t, err)

	second, err := svc.SyncUser(context.Background(), SyncUserInput{
		ClerkID: "clerk-1", Email: "ada@example.com", FirstName: "Adaline",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "no duplicate record on repeat sign-in")
	assert.Equal(t, "Adaline", second.FirstName)
	assert.Equal(t, 1, repo.userSeq)
}

func TestSyncUser_ActivatesInvitedUser(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	// An admin invited this email before the person ever signed in.
	orgID := "org-1"
	invitedBy := "user-0"
	require.NoError(t, repo.CreateUser(context.Background(), &domain.User{
		Email:          "bob@example.com",
		OrganizationID: &orgID,
		Role:           domain.RoleMember,
		Status:         domain.UserStatusInvited,
		InvitedBy:      &invitedBy,
	}))

	user, err := svc.SyncUser(context.Background(), SyncUserInput{
		ClerkID: "clerk-bob", Email: "bob@example.com", FirstName: "Bob",
	})
	require.NoError(t, err)

	assert.Equal(t, "clerk-bob", user.ClerkID)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	require.NotNil(t, user.OrganizationID)
	assert.Equal(t, orgID, *user.OrganizationID, "invitation's organization survives activation")
	assert.Equal(t, 1, repo.userSeq, "invited record is reused, not duplicated")
}

func TestCreateOrganization_PromotesCreatorToAdmin(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	_, err := svc.SyncUser(context.Background(), SyncUserInput{
		ClerkID: "clerk-1", Email: "ada@example.com",
	})
	require.NoError(t, err)

	organization, err := svc.CreateOrganization(context.Background(), "clerk-1", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "clerk-1", organization.AdminClerkID)

	user, err := svc.GetUserByClerkID(context.Background(), "clerk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	require.NotNil(t, user.OrganizationID)
	assert.Equal(t, organization.ID, *user.OrganizationID)
}

func TestCreateOrganization_RejectsExistingMember(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	_, err := svc.SyncUser(context.Background(), SyncUserInput{
		ClerkID: "clerk-1", Email: "ada@example.com",
	})
	require.NoError(t, err)
	_, err = svc.CreateOrganization(context.Background(), "clerk-1", "Acme")
	require.NoError(t, err)

	_, err = svc.CreateOrganization(context.Background(), "clerk-1", "Second")
	assert.ErrorIs(t, err, ErrAlreadyInOrganization)
}

func TestInviteMember_CreatesPlaceholderForUnknownEmail(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	member, err := svc.InviteMember(context.Background(), "org-1", "user-9", "new@example.com", domain.RoleMember)
	require.NoError(t, err)

	assert.Empty(t, member.ClerkID)
	assert.Equal(t, domain.UserStatusInvited, member.Status)
	require.NotNil(t, member.OrganizationID)
	assert.Equal(t, "org-1", *member.OrganizationID)
	require.NotNil(t, member.InvitedBy)
	assert.Equal(t, "user-9", *member.InvitedBy)
}

func TestInviteMember_RejectsMemberOfAnotherOrganization(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	otherOrg := "org-2"
	require.NoError(t, repo.CreateUser(context.Background(), &domain.User{
		Email:          "taken@example.com",
		OrganizationID: &otherOrg,
		Role:           domain.RoleMember,
		Status:         domain.UserStatusActive,
	}))

	_, err := svc.InviteMember(context.Background(), "org-1", "user-9", "taken@example.com", domain.RoleMember)
	assert.ErrorIs(t, err, ErrAlreadyInOrganization)
}

func TestRemoveMember(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	member, err := svc.InviteMember(context.Background(), "org-1", "user-9", "bob@example.com", domain.RoleMember)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMember(context.Background(), "org-1", "user-9", member.ID))

	removed, err := repo.GetUserByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Nil(t, removed.OrganizationID)
	assert.Equal(t, domain.UserStatusInactive, removed.Status)
}

func TestRemoveMember_RejectsSelfRemoval(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	err := svc.RemoveMember(context.Background(), "org-1", "user-1", "user-1")
	assert.ErrorIs(t, err, ErrCannotRemoveSelf)
}

func TestRemoveMember_RejectsForeignOrganization(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	member, err := svc.InviteMember(context.Background(), "org-2", "user-9", "bob@example.com", domain.RoleMember)
	require.NoError(t, err)

	err = svc.RemoveMember(context.Background(), "org-1", "user-9", member.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResolveCaller(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	_, err := svc.SyncUser(context.Background(), SyncUserInput{
		ClerkID: "clerk-1", Email: "ada@example.com",
	})
	require.NoError(t, err)

	// No organization yet.
	_, err = svc.ResolveCaller(context.Background(), "clerk-1")
	assert.ErrorIs(t, err, httputil.ErrNoOrganization)

	organization, err := svc.CreateOrganization(context.Background(), "clerk-1", "Acme")
	require.NoError(t, err)

	caller, err := svc.ResolveCaller(context.Background(), "clerk-1")
	require.NoError(t, err)
	assert.Equal(t, organization.ID, caller.OrganizationID)
	assert.Equal(t, domain.RoleAdmin, caller.Role)

	_, err = svc.ResolveCaller(context.Background(), "clerk-unknown")
	assert.ErrorIs(t, err, httputil.ErrCallerNotFound)
}
