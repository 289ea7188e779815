package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/password"
	"github.com/stretchr/testify/require"
)

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	return h
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "authflow.db"), newTestHasher(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteProfileLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	hasher := newTestHasher(t)

	absent, err := s.LookupByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Nil(t, absent)

	hash, err := hasher.Hash("Secret1!")
	require.NoError(t, err)
	created, err := s.CreateProfile(ctx, authflow.NewProfile{Email: " Alice@Example.com ", Name: "Alice", PasswordHash: hash})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", created.Email)
	require.NotEmpty(t, created.ID)

	exists, err := s.EmailExists(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	got, err := s.LookupByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.True(t, got.CreatedAt.Equal(created.CreatedAt))
	require.True(t, got.LastLoginAt.IsZero())

	_, err = s.CreateProfile(ctx, authflow.NewProfile{Email: "alice@example.com", Name: "Dup", PasswordHash: hash})
	require.ErrorIs(t, err, authflow.ErrEmailRegistered)

	_, err = s.VerifyCredentials(ctx, "alice@example.com", "Secret1!")
	require.NoError(t, err)
	_, err = s.VerifyCredentials(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, authflow.ErrInvalidCredentials)
	_, err = s.VerifyCredentials(ctx, "bob@example.com", "Secret1!")
	require.ErrorIs(t, err, authflow.ErrProfileNotFound)

	require.NoError(t, s.IncrementFailedAttempts(ctx, "alice@example.com"))
	require.NoError(t, s.IncrementFailedAttempts(ctx, "alice@example.com"))
	got, err = s.LookupByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, 2, got.FailedLoginAttempts)

	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, s.UpdateLastLogin(ctx, "alice@example.com", at))
	got, err = s.LookupByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, got.LastLoginAt.Equal(at))
	require.Zero(t, got.FailedLoginAttempts)

	newHash, err := hasher.Hash("Changed1!")
	require.NoError(t, err)
	require.NoError(t, s.UpdatePasswordSecret(ctx, "alice@example.com", newHash))
	_, err = s.VerifyCredentials(ctx, "alice@example.com", "Changed1!")
	require.NoError(t, err)

	require.ErrorIs(t, s.IncrementFailedAttempts(ctx, "ghost@example.com"), authflow.ErrProfileNotFound)
	require.ErrorIs(t, s.UpdateLastLogin(ctx, "ghost@example.com", at), authflow.ErrProfileNotFound)
}

func TestSQLiteActivityLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordActivity(ctx, authflow.ActivityRecord{
		Timestamp: base, Category: "auth", Action: authflow.ActionPrimaryLoginFail, Email: "a@b.co",
	}))
	require.NoError(t, s.RecordActivity(ctx, authflow.ActivityRecord{
		Timestamp: base.Add(time.Second), Category: "auth", Action: authflow.ActionTwoFactorSuccess,
		Email: "a@b.co", Success: true, Metadata: map[string]string{"method": "sms"},
	}))

	got, err := s.RecentActivity(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, authflow.ActionTwoFactorSuccess, got[0].Action)
	require.True(t, got[0].Success)
	require.Equal(t, "sms", got[0].Metadata["method"])
	require.NotEmpty(t, got[0].ID)
	require.False(t, got[1].Success)
	require.Nil(t, got[1].Metadata)

	got, err = s.RecentActivity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestOpenRunsMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authflow.db")

	first, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.LookupByEmail(context.Background(), "x@y.zz")
	require.NoError(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ", nil)
	require.Error(t, err)
}

func TestControllerOverSQLiteStore(t *testing.T) {
	s := openTestStore(t)
	hasher := newTestHasher(t)

	cfg := authflow.DefaultConfig()
	cfg.Activity.Enabled = false
	c, err := authflow.New().
		WithConfig(cfg).
		WithProfileStore(s).
		WithPasswordHasher(hasher).
		WithActivitySink(s).
		Build()
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	hash, err := hasher.Hash("Secret1!")
	require.NoError(t, err)
	_, err = s.CreateProfile(ctx, authflow.NewProfile{Email: "member@example.com", Name: "M", PasswordHash: hash})
	require.NoError(t, err)

	sess := c.NewSession()
	defer sess.Close()

	_, err = sess.Dispatch(ctx, authflow.SubmitEmail("member@example.com"))
	require.NoError(t, err)
	require.Equal(t, authflow.StepSignIn, sess.State().Step)

	_, err = sess.Dispatch(ctx, authflow.SubmitPassword("nope"))
	require.ErrorIs(t, err, authflow.ErrInvalidCredentials)

	p, err := s.LookupByEmail(ctx, "member@example.com")
	require.NoError(t, err)
	require.Equal(t, 1, p.FailedLoginAttempts)

	_, err = sess.Dispatch(ctx, authflow.SubmitPassword("Secret1!"))
	require.NoError(t, err)
	require.Equal(t, authflow.StepTwoFactor, sess.State().Step)

	log, err := s.RecentActivity(ctx, 10)
	require.NoError(t, err)
	actions := make([]string, 0, len(log))
	for _, record := range log {
		actions = append(actions, record.Action)
	}
	require.ElementsMatch(t, []string{authflow.ActionPrimaryLoginFail, authflow.ActionPrimaryLogin}, actions)
}
