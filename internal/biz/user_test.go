package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/auth"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/conf"
)

// fakeUserRepo is an in-memory UserRepo that can simulate username
// conflicts.
type fakeUserRepo struct {
	users       map[int64]*User
	nextID      int64
	creates     int
	roleUpdates int
	failCreate  []error // consumed per Create call, nil means success
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*User{}}
}

func (r *fakeUserRepo) FindByOIDCSubject(_ context.Context, subject string) (*User, error) {
	for _, u := range r.users {
		if u.OIDCSubject == subject {
			copy := *u
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *User) error {
	r.creates++
	if len(r.failCreate) > 0 {
		err := r.failCreate[0]
		r.failCreate = r.failCreate[1:]
		if err != nil {
			return err
		}
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return ErrUsernameTaken
		}
	}
	r.nextID++
	user.ID = r.nextID
	copy := *user
	r.users[user.ID] = &copy
	return nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id int64, role auth.Role) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	r.roleUpdates++
	u.Role = role
	return nil
}

func provisionConf() *conf.OIDC {
	return &conf.OIDC{
		Enabled:       true,
		AdminGroup:    "shlink-admins",
		AdvancedGroup: "shlink-advanced",
		DefaultRole:   "managed-user",
	}
}

func TestFindOrCreateNewAdminUser(t *testing.T) {
	repo := newFakeUserRepo()
	usecase := NewProvisionUsecase(repo, provisionConf())

	user, err := usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{
		Subject: "u1",
		Groups:  []string{"shlink-admins"},
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, user.Role)
	assert.Equal(t, "u1", user.OIDCSubject)
	assert.Equal(t, "u1", user.Username) // no preferred_username or email in claims
	assert.NotEmpty(t, user.PublicID)
	assert.Equal(t, 1, repo.creates)
}

func TestFindOrCreateIdempotent(t *testing.T) {
	repo := newFakeUserRepo()
	usecase := NewProvisionUsecase(repo, provisionConf())
	claims := &auth.IdentityClaims{
		Subject:           "sub-42",
		PreferredUsername: "bob",
		Groups:            []string{"shlink-advanced"},
	}

	first, err := usecase.FindOrCreate(context.Background(), claims)
	require.NoError(t, err)
	second, err := usecase.FindOrCreate(context.Background(), claims)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.creates, "repeated logins must not create again")
}

func TestFindOrCreateRoleDriftSelfHeals(t *testing.T) {
	repo := newFakeUserRepo()
	usecase := NewProvisionUsecase(repo, provisionConf())

	user, err := usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{
		Subject: "u1",
		Groups:  []string{"shlink-admins"},
	})
	require.NoError(t, err)
	require.Equal(t, auth.RoleAdmin, user.Role)

	// Removed from the admin group; next login falls back to the default.
	user, err = usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{
		Subject: "u1",
		Groups:  []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManagedUser, user.Role)
	assert.Equal(t, 1, repo.roleUpdates)

	stored, err := repo.FindByOIDCSubject(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManagedUser, stored.Role, "role change must be persisted")
}

func TestFindOrCreateNoUpdateWhenRoleUnchanged(t *testing.T) {
	repo := newFakeUserRepo()
	usecase := NewProvisionUsecase(repo, provisionConf())
	claims := &auth.IdentityClaims{Subject: "u1", Groups: []string{"shlink-admins"}}

	_, err := usecase.FindOrCreate(context.Background(), claims)
	require.NoError(t, err)
	_, err = usecase.FindOrCreate(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.roleUpdates)
}

func TestFindOrCreateUsernamePriority(t *testing.T) {
	repo := newFakeUserRepo()
	usecase := NewProvisionUsecase(repo, provisionConf())

	user, err := usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{
		Subject:           "s1",
		Email:             "carol@example.com",
		PreferredUsername: "carol",
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)

	user, err = usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{
		Subject: "s2",
		Email:   "dave@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", user.Username)

	user, err = usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{Subject: "s3"})
	require.NoError(t, err)
	assert.Equal(t, "s3", user.Username)
}

func TestFindOrCreateUsernameCollisionRetriesOnce(t *testing.T) {
	repo := newFakeUserRepo()
	usecase := NewProvisionUsecase(repo, provisionConf())

	// An unrelated local user already owns "alice".
	require.NoError(t, repo.Create(context.Background(), &User{Username: "alice", Role: auth.RoleManagedUser}))
	repo.creates = 0

	user, err := usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{
		Subject:           "sub-789abc",
		PreferredUsername: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice_sub-789", user.Username)
	assert.Equal(t, 2, repo.creates, "exactly one retry")
}

func TestFindOrCreateSecondCollisionPropagates(t *testing.T) {
	repo := newFakeUserRepo()
	repo.failCreate = []error{ErrUsernameTaken, ErrUsernameTaken}
	usecase := NewProvisionUsecase(repo, provisionConf())

	_, err := usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{
		Subject:           "sub-789abc",
		PreferredUsername: "alice",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, 2, repo.creates, "must not loop beyond two attempts")
}

func TestFindOrCreateOtherCreateFailureNotRetried(t *testing.T) {
	repo := newFakeUserRepo()
	boom := errors.New("disk on fire")
	repo.failCreate = []error{boom}
	usecase := NewProvisionUsecase(repo, provisionConf())

	_, err := usecase.FindOrCreate(context.Background(), &auth.IdentityClaims{Subject: "s1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, repo.creates)
}

func TestSubjectFragmentShortSubject(t *testing.T) {
	assert.Equal(t, "abc", subjectFragment("abc"))
	assert.Equal(t, "sub-789", subjectFragment("sub-789abc"))
}
