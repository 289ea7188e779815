package stores

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestResetCodeConsumeMatchIsSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewResetCodeStore(rdb, "t", 3)
	ctx := context.Background()

	if err := store.Save(ctx, "User@Example.com", "123456", time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Consume(ctx, "user@example.com", "123456"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := store.Consume(ctx, "user@example.com", "123456"); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected consumed record to be gone, got %v", err)
	}
}

func TestResetCodeMismatchCountsAttempts(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewResetCodeStore(rdb, "t", 3)
	ctx := context.Background()

	if err := store.Save(ctx, "a@b.co", "123456", time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.Consume(ctx, "a@b.co", "000000"); !errors.Is(err, ErrResetCodeMismatch) {
			t.Fatalf("attempt %d: expected mismatch, got %v", i, err)
		}
	}
	record, err := store.Get(ctx, "a@b.co")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", record.Attempts)
	}

	if err := store.Consume(ctx, "a@b.co", "000000"); !errors.Is(err, ErrResetAttemptsExceeded) {
		t.Fatalf("expected attempts exceeded, got %v", err)
	}
	if err := store.Consume(ctx, "a@b.co", "123456"); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected record deleted after limit, got %v", err)
	}
}

func TestResetCodeExpires(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewResetCodeStore(rdb, "t", 3)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }
	if err := store.Save(ctx, "a@b.co", "123456", 3*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store.now = func() time.Time { return base.Add(181 * time.Second) }
	if err := store.Consume(ctx, "a@b.co", "123456"); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected expired code to be rejected, got %v", err)
	}
}

func TestResetCodeRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewResetCodeStore(rdb, "t", 3)
	mr.Close()

	err := store.Save(context.Background(), "a@b.co", "123456", time.Minute)
	if !errors.Is(err, ErrResetRedisUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestResetCodeSaveReplacesOutstanding(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewResetCodeStore(rdb, "t", 3)
	ctx := context.Background()

	if err := store.Save(ctx, "a@b.co", "111111", time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Consume(ctx, "a@b.co", "000000"); !errors.Is(err, ErrResetCodeMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := store.Save(ctx, "a@b.co", "222222", time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	record, err := store.Get(ctx, "a@b.co")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Attempts != 0 {
		t.Fatalf("expected attempts reset by Save, got %d", record.Attempts)
	}
	if ttl := mr.TTL("t:reset:a@b.co"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected key TTL within a minute, got %s", ttl)
	}
	if err := store.Consume(ctx, "a@b.co", "111111"); !errors.Is(err, ErrResetCodeMismatch) {
		t.Fatalf("expected the replaced code to be rejected, got %v", err)
	}
	if err := store.Consume(ctx, "a@b.co", "222222"); err != nil {
		t.Fatalf("expected the new code to match, got %v", err)
	}
}

func TestResetCodeConcurrentConsumeSingleWinner(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewResetCodeStore(rdb, "t", 3)
	ctx := context.Background()

	if err := store.Save(ctx, "a@b.co", "123456", time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Consume(ctx, "a@b.co", "123456") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", wins)
	}
}

func TestNoticeStateReadHidden(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewNoticeStateStore(rdb, "t")
	ctx := context.Background()

	if err := store.MarkRead(ctx, "u1", "n1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if ok, _ := store.IsRead(ctx, "u1", "n1"); !ok {
		t.Fatal("expected n1 read")
	}
	if ok, _ := store.IsRead(ctx, "u2", "n1"); ok {
		t.Fatal("read state leaked across subjects")
	}

	if err := store.Hide(ctx, "u1", "n2"); err != nil {
		t.Fatalf("Hide: %v", err)
	}
	if ok, _ := store.IsHidden(ctx, "u1", "n2"); !ok {
		t.Fatal("expected n2 hidden")
	}
	hidden, err := store.Hidden(ctx, "u1")
	if err != nil || len(hidden) != 1 || hidden[0] != "n2" {
		t.Fatalf("unexpected hidden set %v err=%v", hidden, err)
	}
}

func TestNoticeTooltipCappedUnderConcurrency(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewNoticeStateStore(rdb, "t")
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		shown int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.RecordTooltipShown(ctx, "u1", 2)
			if err != nil {
				return
			}
			if ok {
				mu.Lock()
				shown++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if shown > 2 {
		t.Fatalf("tooltip shown %d times, cap is 2", shown)
	}
	n, err := store.TooltipShown(ctx, "u1")
	if err != nil {
		t.Fatalf("TooltipShown: %v", err)
	}
	if n != shown {
		t.Fatalf("counter %d does not match grants %d", n, shown)
	}

	ok, err := store.RecordTooltipShown(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("RecordTooltipShown: %v", err)
	}
	if n == 2 && ok {
		t.Fatal("expected no further shows after the cap")
	}
}
