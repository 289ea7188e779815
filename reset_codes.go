package authflow

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/MrEthical07/authflow/internal/stores"
	"github.com/redis/go-redis/v9"
)

// CodeDelivery hands an issued reset code to the user, for example by mail.
type CodeDelivery func(ctx context.Context, email, code string) error

// StaticResetCodes issues nothing and accepts a single fixed code. It is the
// default [ResetCodeIssuer] and pairs with the static two-factor mode.
type StaticResetCodes struct {
	Code    string
	Deliver CodeDelivery
}

func (s StaticResetCodes) IssueResetCode(ctx context.Context, email string) error {
	if s.Deliver == nil {
		return nil
	}
	return s.Deliver(ctx, email, s.Code)
}

func (s StaticResetCodes) VerifyResetCode(_ context.Context, _ string, code string) (bool, error) {
	want := strings.TrimSpace(s.Code)
	if want == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(code))) == 1, nil
}

// RedisResetCodes issues random numeric codes and stores their digests in
// Redis with a TTL and an attempt limit.
type RedisResetCodes struct {
	store   *stores.ResetCodeStore
	digits  int
	ttl     time.Duration
	deliver CodeDelivery
}

// NewRedisResetCodes uses cfg.Redis.KeyPrefix, cfg.Flow.ResetCodeTTL and
// cfg.TwoFactor.Digits. deliver is required; without it a code could never
// reach the user.
func NewRedisResetCodes(client redis.UniversalClient, cfg Config, maxAttempts int, deliver CodeDelivery) (*RedisResetCodes, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	if deliver == nil {
		return nil, errors.New("code delivery is nil")
	}
	return &RedisResetCodes{
		store:   stores.NewResetCodeStore(client, cfg.Redis.KeyPrefix, maxAttempts),
		digits:  cfg.TwoFactor.Digits,
		ttl:     cfg.Flow.ResetCodeTTL,
		deliver: deliver,
	}, nil
}

func (r *RedisResetCodes) IssueResetCode(ctx context.Context, email string) error {
	code, err := randomNumericCode(r.digits)
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, email, code, r.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return r.deliver(ctx, email, code)
}

// VerifyResetCode reports false for a wrong, expired or exhausted code.
func (r *RedisResetCodes) VerifyResetCode(ctx context.Context, email, code string) (bool, error) {
	err := r.store.Consume(ctx, email, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, stores.ErrResetCodeMismatch),
		errors.Is(err, stores.ErrResetNotFound),
		errors.Is(err, stores.ErrResetAttemptsExceeded):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func randomNumericCode(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
