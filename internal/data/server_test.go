package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/auth"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
)

func seedUser(t *testing.T, db *DB, username, subject string) *biz.User {
	t.Helper()
	user := &biz.User{
		PublicID:    "pub-" + username,
		Username:    username,
		Role:        auth.RoleManagedUser,
		OIDCSubject: subject,
	}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), user))
	return user
}

func TestServerRepoUserScoping(t *testing.T) {
	db := openTestDB(t)
	repo := NewServerRepo(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "sub-a")
	bob := seedUser(t, db, "bob", "sub-b")

	server := &biz.ShlinkServer{
		PublicID: "srv-1", UserID: alice.ID,
		Name: "Main", BaseURL: "https://s.example.com", APIKey: "key",
	}
	require.NoError(t, repo.Create(ctx, server))

	// Owner sees it.
	got, err := repo.GetByPublicID(ctx, alice.ID, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Name)

	// Another user does not.
	_, err = repo.GetByPublicID(ctx, bob.ID, "srv-1")
	assert.ErrorIs(t, err, biz.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, bob.ID, "srv-1"), biz.ErrNotFound)

	bobServers, err := repo.ListByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobServers)

	aliceServers, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceServers, 1)

	require.NoError(t, repo.Delete(ctx, alice.ID, "srv-1"))
	_, err = repo.GetByPublicID(ctx, alice.ID, "srv-1")
	assert.ErrorIs(t, err, biz.ErrNotFound)
}

func TestSessionRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice", "sub-a")

	now := time.Now().UTC().Truncate(time.Second)
	session := &biz.Session{ID: "sess-1", UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, repo.Delete(ctx, "sess-1"))
	_, err = repo.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, biz.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "sess-1"), biz.ErrNotFound)
}

func TestAuditRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepo(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice", "sub-a")

	require.NoError(t, repo.Record(ctx, &biz.AuditEntry{UserID: user.ID, Action: biz.AuditLoginSucceeded, Detail: "alice"}))
	require.NoError(t, repo.Record(ctx, &biz.AuditEntry{UserID: user.ID, Action: biz.AuditLogout}))
	require.NoError(t, repo.Record(ctx, &biz.AuditEntry{Action: biz.AuditLoginFailed, Detail: "state_mismatch"}))

	entries, err := repo.ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, biz.AuditLogout, entries[0].Action, "newest first")
}
