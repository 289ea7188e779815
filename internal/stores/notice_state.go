package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrNoticeRedisUnavailable = errors.New("notice redis unavailable")

// NoticeStateStore keeps per-subject notice state:
//
//	<prefix>:notice:<subject>:read    set of read notice ids
//	<prefix>:notice:<subject>:hidden  set of hidden notice ids
//	<prefix>:notice:<subject>:tooltip capped show counter
type NoticeStateStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewNoticeStateStore(redisClient redis.UniversalClient, prefix string) *NoticeStateStore {
	if prefix == "" {
		prefix = "af"
	}
	return &NoticeStateStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *NoticeStateStore) key(subject, kind string) string {
	return s.prefix + ":notice:" + subject + ":" + kind
}

func (s *NoticeStateStore) MarkRead(ctx context.Context, subject, id string) error {
	return s.add(ctx, s.key(subject, "read"), id)
}

func (s *NoticeStateStore) IsRead(ctx context.Context, subject, id string) (bool, error) {
	return s.member(ctx, s.key(subject, "read"), id)
}

func (s *NoticeStateStore) Hide(ctx context.Context, subject, id string) error {
	return s.add(ctx, s.key(subject, "hidden"), id)
}

func (s *NoticeStateStore) IsHidden(ctx context.Context, subject, id string) (bool, error) {
	return s.member(ctx, s.key(subject, "hidden"), id)
}

// Hidden returns every hidden id for subject.
func (s *NoticeStateStore) Hidden(ctx context.Context, subject string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.key(subject, "hidden")).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoticeRedisUnavailable, err)
	}
	return ids, nil
}

func (s *NoticeStateStore) TooltipShown(ctx context.Context, subject string) (int, error) {
	n, err := s.redis.Get(ctx, s.key(subject, "tooltip")).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrNoticeRedisUnavailable, err)
	}
	return n, nil
}

// RecordTooltipShown increments the counter unless it already reached limit.
// It reports whether the tooltip should be shown.
func (s *NoticeStateStore) RecordTooltipShown(ctx context.Context, subject string, limit int) (bool, error) {
	const maxRetries = 4
	key := s.key(subject, "tooltip")

	for i := 0; i < maxRetries; i++ {
		var show bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Get(ctx, key).Int()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if n >= limit {
				show = false
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Incr(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			show = true
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrNoticeRedisUnavailable, err)
		}
		return show, nil
	}

	return false, fmt.Errorf("%w: tooltip counter contention", ErrNoticeRedisUnavailable)
}

func (s *NoticeStateStore) add(ctx context.Context, key, id string) error {
	if err := s.redis.SAdd(ctx, key, id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrNoticeRedisUnavailable, err)
	}
	return nil
}

func (s *NoticeStateStore) member(ctx context.Context, key, id string) (bool, error) {
	ok, err := s.redis.SIsMember(ctx, key, id).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNoticeRedisUnavailable, err)
	}
	return ok, nil
}
