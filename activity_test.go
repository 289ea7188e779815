package authflow

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingActivitySink struct{}

func (failingActivitySink) RecordActivity(context.Context, ActivityRecord) error {
	return errors.New("disk full")
}

// stallingActivitySink holds every write until its context ends.
type stallingActivitySink struct {
	calls atomic.Int64
}

func (s *stallingActivitySink) RecordActivity(ctx context.Context, _ ActivityRecord) error {
	s.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestCBORActivitySinkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCBORActivitySink(&buf)
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	records := []ActivityRecord{
		{ID: "a", Timestamp: at, UserID: "u1", Email: "a@b.co", Category: "auth", Action: ActionTwoFactorSkipped, Success: true, Metadata: map[string]string{"degraded": "true"}},
		{ID: "b", Timestamp: at, Email: "a@b.co", Category: "auth", Action: ActionLogout, Success: true},
	}
	for _, r := range records {
		if err := sink.RecordActivity(context.Background(), r); err != nil {
			t.Fatalf("RecordActivity: %v", err)
		}
	}

	got, err := ReadCBORActivity(&buf)
	if err != nil {
		t.Fatalf("ReadCBORActivity: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Metadata["degraded"] != "true" || got[0].UserID != "u1" || !got[0].Timestamp.Equal(at) {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if got[1].Action != ActionLogout {
		t.Fatalf("unexpected second record %+v", got[1])
	}
}

func TestMultiActivitySinkReturnsFirstError(t *testing.T) {
	mem := &memoryActivitySink{}
	multi := MultiActivitySink{failingActivitySink{}, nil, mem}

	err := multi.RecordActivity(context.Background(), ActivityRecord{Action: ActionLogout})
	if err == nil {
		t.Fatal("expected error from failing sink")
	}
	if len(mem.actions()) != 1 {
		t.Fatal("later sinks must still receive the record")
	}
}

func TestActivitySinkFailureDoesNotFailDispatch(t *testing.T) {
	store := newMockProfileStore()
	c := newTestController(t, testConfig(), store, failingActivitySink{})
	s := c.NewSession()
	defer s.Close()

	st, err := s.Dispatch(context.Background(), SocialSignIn("github"))
	if err != nil {
		t.Fatalf("activity failure surfaced: %v", err)
	}
	if st.Step != StepTwoFactor {
		t.Fatalf("expected TwoFactor, got %s", st.Step)
	}
}

func TestSlowActivitySinkDoesNotHoldTransitions(t *testing.T) {
	cfg := testConfig()
	cfg.Flow.EffectTimeout = 400 * time.Millisecond
	cfg.Activity.BufferSize = 1
	cfg.Activity.DropIfFull = false
	cfg.Activity.EnqueueTimeout = 10 * time.Millisecond

	store := newMockProfileStore()
	store.add("erin@example.com", plainHash("Secret1!"))
	c := newTestController(t, cfg, store, &stallingActivitySink{})
	s := c.NewSession()
	defer s.Close()

	dispatchOK(t, s, SubmitEmail("erin@example.com"))
	var slowest time.Duration
	for i := 0; i < 4; i++ {
		start := time.Now()
		_, err := s.Dispatch(context.Background(), SubmitPassword("wrong"))
		require.ErrorIs(t, err, ErrInvalidCredentials)
		slowest = max(slowest, time.Since(start))
	}

	require.Less(t, slowest, cfg.Flow.EffectTimeout/2, "a stalled sink held a transition")
	require.NotZero(t, c.ActivityDropped())
}

func TestDisabledActivityNeverCallsSink(t *testing.T) {
	cfg := testConfig()
	cfg.Activity.Enabled = false
	cfg.Flow.EffectTimeout = 400 * time.Millisecond

	store := newMockProfileStore()
	store.add("frank@example.com", plainHash("Secret1!"))
	sink := &stallingActivitySink{}
	c := newTestController(t, cfg, store, sink)
	s := c.NewSession()
	defer s.Close()

	dispatchOK(t, s, SubmitEmail("frank@example.com"))
	start := time.Now()
	_, err := s.Dispatch(context.Background(), SubmitPassword("wrong"))
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Less(t, time.Since(start), cfg.Flow.EffectTimeout/2)
	require.Zero(t, sink.calls.Load())
	require.Zero(t, c.ActivityDropped())
}
