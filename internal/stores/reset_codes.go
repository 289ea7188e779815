package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResetNotFound         = errors.New("reset record not found")
	ErrResetCodeMismatch     = errors.New("reset code mismatch")
	ErrResetAttemptsExceeded = errors.New("reset attempts exceeded")
	ErrResetRedisUnavailable = errors.New("reset redis unavailable")
)

const (
	fieldDigest   = "digest"
	fieldExpires  = "expires_ms"
	fieldAttempts = "attempts"
)

// Results of consumeScript.
const (
	consumeMissing = iota
	consumeMatched
	consumeMismatch
	consumeExhausted
)

// consumeScript checks a digest against the stored one in a single round
// trip. KEYS[1] is the record; ARGV is digest, now in ms, max attempts.
var consumeScript = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'digest', 'expires_ms')
if not rec[1] then
	return 0
end
if tonumber(rec[2]) < tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
	return 0
end
if rec[1] == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
if redis.call('HINCRBY', KEYS[1], 'attempts', 1) >= tonumber(ARGV[3]) then
	redis.call('DEL', KEYS[1])
	return 3
end
return 2
`)

// ResetCodeRecord describes an outstanding code. The code itself is never
// stored, only its SHA-256 digest.
type ResetCodeRecord struct {
	ExpiresAt time.Time
	Attempts  int
}

type ResetCodeStore struct {
	redis       redis.UniversalClient
	prefix      string
	maxAttempts int
	now         func() time.Time
}

func NewResetCodeStore(client redis.UniversalClient, prefix string, maxAttempts int) *ResetCodeStore {
	if prefix == "" {
		prefix = "af"
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &ResetCodeStore{redis: client, prefix: prefix, maxAttempts: maxAttempts, now: time.Now}
}

func (s *ResetCodeStore) key(email string) string {
	return s.prefix + ":reset:" + strings.ToLower(strings.TrimSpace(email))
}

func digest(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
}

// Save replaces any outstanding code for email.
func (s *ResetCodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	key := s.key(email)
	expires := s.now().Add(ttl).UnixMilli()
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldDigest, digest(code), fieldExpires, expires, fieldAttempts, 0)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Consume checks code against the stored record. A match deletes the record.
// A mismatch counts an attempt and deletes the record once the limit is hit.
func (s *ResetCodeStore) Consume(ctx context.Context, email, code string) error {
	res, err := consumeScript.Run(ctx, s.redis,
		[]string{s.key(email)},
		digest(code), s.now().UnixMilli(), s.maxAttempts,
	).Int()
	if err != nil {
		return unavailable(err)
	}
	switch res {
	case consumeMatched:
		return nil
	case consumeMismatch:
		return ErrResetCodeMismatch
	case consumeExhausted:
		return ErrResetAttemptsExceeded
	default:
		return ErrResetNotFound
	}
}

func (s *ResetCodeStore) Get(ctx context.Context, email string) (*ResetCodeRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, ErrResetNotFound
	}

	expires, err := strconv.ParseInt(fields[fieldExpires], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("reset record %s: %w", fieldExpires, err)
	}
	attempts, err := strconv.Atoi(fields[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("reset record %s: %w", fieldAttempts, err)
	}

	rec := &ResetCodeRecord{ExpiresAt: time.UnixMilli(expires), Attempts: attempts}
	if s.now().After(rec.ExpiresAt) {
		return nil, ErrResetNotFound
	}
	return rec, nil
}
