package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/store"
)

const profileColumns = `id, email, name, password_hash, status_code, type_code, role_code,
       failed_login_attempts, last_login_at, created_at`

func (s *Store) LookupByEmail(ctx context.Context, email string) (*authflow.Profile, error) {
	query := `SELECT ` + profileColumns + `
  FROM profiles
 WHERE email = $1`

	var (
		p         authflow.Profile
		lastLogin sql.NullInt64
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), store.NormalizeEmail(email)).Scan(
		&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.StatusCode, &p.TypeCode, &p.RoleCode,
		&p.FailedLoginAttempts, &lastLogin, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable(err)
	}

	p.CreatedAt = fromMillis(createdAt)
	if lastLogin.Valid {
		p.LastLoginAt = fromMillis(lastLogin.Int64)
	}
	return &p, nil
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT COUNT(*) FROM profiles WHERE email = $1`

	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), store.NormalizeEmail(email)).Scan(&n); err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// CreateProfile relies on the UNIQUE email column; a concurrent duplicate
// fails at insert time with ErrEmailRegistered.
func (s *Store) CreateProfile(ctx context.Context, in authflow.NewProfile) (*authflow.Profile, error) {
	p := &authflow.Profile{
		ID:           s.newID(),
		Email:        store.NormalizeEmail(in.Email),
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		StatusCode:   store.StatusActive,
		TypeCode:     store.TypeLocal,
		RoleCode:     store.RoleMember,
		CreatedAt:    fromMillis(toMillis(s.now())),
	}

	query := `INSERT INTO profiles (id, email, name, password_hash, status_code, type_code, role_code, failed_login_attempts, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)`

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(query),
		p.ID, p.Email, p.Name, p.PasswordHash, p.StatusCode, p.TypeCode, p.RoleCode, toMillis(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", authflow.ErrEmailRegistered, p.Email)
		}
		return nil, unavailable(err)
	}
	return p, nil
}

func (s *Store) VerifyCredentials(ctx context.Context, email, password string) (*authflow.Profile, error) {
	p, err := s.LookupByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, authflow.ErrProfileNotFound
	}

	ok, upgraded, err := store.CheckPassword(s.verifier, password, p.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, authflow.ErrInvalidCredentials
	}
	if upgraded != "" && s.UpdatePasswordSecret(ctx, p.Email, upgraded) == nil {
		p.PasswordHash = upgraded
	}
	return p, nil
}

func (s *Store) UpdatePasswordSecret(ctx context.Context, email, passwordHash string) error {
	return s.updateOne(ctx, `UPDATE profiles SET password_hash = $1 WHERE email = $2`,
		passwordHash, store.NormalizeEmail(email))
}

func (s *Store) IncrementFailedAttempts(ctx context.Context, email string) error {
	return s.updateOne(ctx, `UPDATE profiles SET failed_login_attempts = failed_login_attempts + 1 WHERE email = $1`,
		store.NormalizeEmail(email))
}

// UpdateLastLogin also resets the failed-attempt counter.
func (s *Store) UpdateLastLogin(ctx context.Context, email string, at time.Time) error {
	return s.updateOne(ctx, `UPDATE profiles SET last_login_at = $1, failed_login_attempts = 0 WHERE email = $2`,
		toMillis(at), store.NormalizeEmail(email))
}

func (s *Store) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return authflow.ErrProfileNotFound
	}
	return nil
}
