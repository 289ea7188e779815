package authflow

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/authflow/internal/stores"
	"github.com/redis/go-redis/v9"
)

// MaxTooltipShows is how many times the notice tooltip is offered.
const MaxTooltipShows = 2

// Notice is one entry of the welcome-screen notice board.
type Notice struct {
	ID           int64      `json:"notice_id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Content      string     `json:"content" yaml:"content"`
	Type         string     `json:"notice_type" yaml:"type"`
	Published    bool       `json:"is_published" yaml:"published"`
	Pinned       bool       `json:"is_pinned" yaml:"pinned"`
	PublishStart *time.Time `json:"publish_start_dt,omitempty" yaml:"publish_start,omitempty"`
	PublishEnd   *time.Time `json:"publish_end_dt,omitempty" yaml:"publish_end,omitempty"`
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
}

// Key is the id form used by a [NoticeTracker].
func (n Notice) Key() string {
	return strconv.FormatInt(n.ID, 10)
}

// VisibleNotices keeps published notices whose publish window contains now,
// drops hidden ids and lists pinned notices first. Order is otherwise kept.
func VisibleNotices(notices []Notice, hidden map[string]bool, now time.Time) []Notice {
	out := make([]Notice, 0, len(notices))
	for _, n := range notices {
		if !n.Published {
			continue
		}
		if n.PublishStart != nil && now.Before(*n.PublishStart) {
			continue
		}
		if n.PublishEnd != nil && now.After(*n.PublishEnd) {
			continue
		}
		if hidden[n.Key()] {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pinned && !out[j].Pinned
	})
	return out
}

// NoticeTracker persists what one viewer has seen on the notice board.
type NoticeTracker interface {
	MarkRead(ctx context.Context, id string) error
	IsRead(ctx context.Context, id string) (bool, error)
	Hide(ctx context.Context, id string) error
	IsHidden(ctx context.Context, id string) (bool, error)
	TooltipShown(ctx context.Context) (int, error)
	// RecordTooltipShown counts one show and reports whether the tooltip
	// may be displayed. It returns false once MaxTooltipShows is reached.
	RecordTooltipShown(ctx context.Context) (bool, error)
}

// MemoryNoticeTracker keeps notice state in process memory.
type MemoryNoticeTracker struct {
	mu      sync.Mutex
	read    map[string]bool
	hidden  map[string]bool
	tooltip int
}

func NewMemoryNoticeTracker() *MemoryNoticeTracker {
	return &MemoryNoticeTracker{
		read:   make(map[string]bool),
		hidden: make(map[string]bool),
	}
}

func (t *MemoryNoticeTracker) MarkRead(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.read[id] = true
	return nil
}

func (t *MemoryNoticeTracker) IsRead(_ context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read[id], nil
}

func (t *MemoryNoticeTracker) Hide(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hidden[id] = true
	return nil
}

func (t *MemoryNoticeTracker) IsHidden(_ context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hidden[id], nil
}

// HiddenSet returns a copy suitable for [VisibleNotices].
func (t *MemoryNoticeTracker) HiddenSet() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]bool, len(t.hidden))
	for id := range t.hidden {
		out[id] = true
	}
	return out
}

func (t *MemoryNoticeTracker) TooltipShown(context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tooltip, nil
}

func (t *MemoryNoticeTracker) RecordTooltipShown(context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tooltip >= MaxTooltipShows {
		return false, nil
	}
	t.tooltip++
	return true, nil
}

// RedisNoticeTracker keeps notice state for one subject in Redis so it
// survives restarts.
type RedisNoticeTracker struct {
	store   *stores.NoticeStateStore
	subject string
}

func NewRedisNoticeTracker(client redis.UniversalClient, prefix, subject string) *RedisNoticeTracker {
	return &RedisNoticeTracker{
		store:   stores.NewNoticeStateStore(client, prefix),
		subject: subject,
	}
}

func (t *RedisNoticeTracker) MarkRead(ctx context.Context, id string) error {
	return t.store.MarkRead(ctx, t.subject, id)
}

func (t *RedisNoticeTracker) IsRead(ctx context.Context, id string) (bool, error) {
	return t.store.IsRead(ctx, t.subject, id)
}

func (t *RedisNoticeTracker) Hide(ctx context.Context, id string) error {
	return t.store.Hide(ctx, t.subject, id)
}

func (t *RedisNoticeTracker) IsHidden(ctx context.Context, id string) (bool, error) {
	return t.store.IsHidden(ctx, t.subject, id)
}

func (t *RedisNoticeTracker) HiddenSet(ctx context.Context) (map[string]bool, error) {
	ids, err := t.store.Hidden(ctx, t.subject)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (t *RedisNoticeTracker) TooltipShown(ctx context.Context) (int, error) {
	return t.store.TooltipShown(ctx, t.subject)
}

func (t *RedisNoticeTracker) RecordTooltipShown(ctx context.Context) (bool, error) {
	return t.store.RecordTooltipShown(ctx, t.subject, MaxTooltipShows)
}
