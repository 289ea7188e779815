// Package redisstore implements authflow.ProfileStore and
// authflow.ActivitySink on Redis.
//
// Layout, with <p> the configured key prefix:
//
//	<p>:profile:<email>  hash with one field per Profile attribute
//	<p>:activity         list of JSON activity records, newest first
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	fieldID           = "id"
	fieldEmail        = "email"
	fieldName         = "name"
	fieldPasswordHash = "password_hash"
	fieldStatus       = "status_code"
	fieldType         = "type_code"
	fieldRole         = "role_code"
	fieldFailed       = "failed_login_attempts"
	fieldLastLogin    = "last_login_at"
	fieldCreated      = "created_at"
)

// Store is safe for concurrent use.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	verifier   store.PasswordVerifier
	maxEntries int64
	now        func() time.Time
}

func New(client redis.UniversalClient, prefix string, verifier store.PasswordVerifier) *Store {
	if prefix == "" {
		prefix = "af"
	}
	return &Store{
		redis:      client,
		prefix:     prefix,
		verifier:   verifier,
		maxEntries: store.MaxActivityEntries,
		now:        time.Now,
	}
}

func (s *Store) profileKey(email string) string {
	return s.prefix + ":profile:" + store.NormalizeEmail(email)
}

func (s *Store) activityKey() string {
	return s.prefix + ":activity"
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", authflow.ErrStoreUnavailable, err)
}

func (s *Store) LookupByEmail(ctx context.Context, email string) (*authflow.Profile, error) {
	fields, err := s.redis.HGetAll(ctx, s.profileKey(email)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeProfile(fields)
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.profileKey(email)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}

// CreateProfile writes the profile only if the key is still absent when the
// transaction commits, so concurrent sign-ups for one email yield exactly
// one success.
func (s *Store) CreateProfile(ctx context.Context, in authflow.NewProfile) (*authflow.Profile, error) {
	key := s.profileKey(in.Email)
	p := &authflow.Profile{
		ID:           uuid.NewString(),
		Email:        store.NormalizeEmail(in.Email),
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		StatusCode:   store.StatusActive,
		TypeCode:     store.TypeLocal,
		RoleCode:     store.RoleMember,
		CreatedAt:    s.now().UTC(),
	}

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 1 {
			return authflow.ErrEmailRegistered
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeProfile(p))
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, authflow.ErrEmailRegistered), errors.Is(err, redis.TxFailedErr):
		// a concurrent create won the race
		return nil, fmt.Errorf("%w: %s", authflow.ErrEmailRegistered, p.Email)
	default:
		return nil, unavailable(err)
	}
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
	return s.updateExisting(ctx, email, func(pipe redis.Pipeliner, key string) {
		pipe.HSet(ctx, key, fieldPasswordHash, passwordHash)
	})
}

func (s *Store) IncrementFailedAttempts(ctx context.Context, email string) error {
	return s.updateExisting(ctx, email, func(pipe redis.Pipeliner, key string) {
		pipe.HIncrBy(ctx, key, fieldFailed, 1)
	})
}

// UpdateLastLogin also resets the failed-attempt counter.
func (s *Store) UpdateLastLogin(ctx context.Context, email string, at time.Time) error {
	return s.updateExisting(ctx, email, func(pipe redis.Pipeliner, key string) {
		pipe.HSet(ctx, key,
			fieldLastLogin, strconv.FormatInt(at.UTC().UnixMilli(), 10),
			fieldFailed, "0",
		)
	})
}

// updateExisting applies fn only when the profile exists, so a stray update
// never creates a partial hash.
func (s *Store) updateExisting(ctx context.Context, email string, fn func(redis.Pipeliner, string)) error {
	key := s.profileKey(email)
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return authflow.ErrProfileNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			fn(pipe, key)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, authflow.ErrProfileNotFound):
		return err
	default:
		return unavailable(err)
	}
}

// RecordActivity prepends record to the activity list and trims it.
func (s *Store) RecordActivity(ctx context.Context, record authflow.ActivityRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.activityKey(), data)
		pipe.LTrim(ctx, s.activityKey(), 0, s.maxEntries-1)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// RecentActivity returns up to n records, newest first.
func (s *Store) RecentActivity(ctx context.Context, n int) ([]authflow.ActivityRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.redis.LRange(ctx, s.activityKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]authflow.ActivityRecord, 0, len(raw))
	for _, item := range raw {
		var record authflow.ActivityRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		out = append(out, record)
	}
	return out, nil
}

func encodeProfile(p *authflow.Profile) map[string]any {
	fields := map[string]any{
		fieldID:           p.ID,
		fieldEmail:        p.Email,
		fieldName:         p.Name,
		fieldPasswordHash: p.PasswordHash,
		fieldStatus:       p.StatusCode,
		fieldType:         p.TypeCode,
		fieldRole:         p.RoleCode,
		fieldFailed:       strconv.Itoa(p.FailedLoginAttempts),
		fieldCreated:      strconv.FormatInt(p.CreatedAt.UTC().UnixMilli(), 10),
	}
	if !p.LastLoginAt.IsZero() {
		fields[fieldLastLogin] = strconv.FormatInt(p.LastLoginAt.UTC().UnixMilli(), 10)
	}
	return fields
}

func decodeProfile(fields map[string]string) (*authflow.Profile, error) {
	p := &authflow.Profile{
		ID:           fields[fieldID],
		Email:        fields[fieldEmail],
		Name:         fields[fieldName],
		PasswordHash: fields[fieldPasswordHash],
		StatusCode:   fields[fieldStatus],
		TypeCode:     fields[fieldType],
		RoleCode:     fields[fieldRole],
	}
	if v := fields[fieldFailed]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", fieldFailed, err)
		}
		p.FailedLoginAttempts = n
	}
	var err error
	if p.CreatedAt, err = decodeMillis(fields[fieldCreated]); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldCreated, err)
	}
	if p.LastLoginAt, err = decodeMillis(fields[fieldLastLogin]); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldLastLogin, err)
	}
	return p, nil
}

func decodeMillis(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
