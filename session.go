package authflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authflow/internal/flows"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// advanceRetryDelay re-arms the success timer when its tick collides with a
// user transition.
const advanceRetryDelay = 50 * time.Millisecond

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithStateListener is called after every committed transition, including
// the ones driven by the success timer. It runs on the dispatching goroutine
// and must not call Dispatch.
func WithStateListener(fn func(State)) SessionOption {
	return func(s *Session) { s.onState = fn }
}

// WithHintListener is called when an eager email check completes and is
// still the latest one.
func WithHintListener(fn func(EmailHint)) SessionOption {
	return func(s *Session) { s.onHint = fn }
}

// Session is one user's pass through the wizard. Transitions are serialized:
// a Dispatch that overlaps another returns ErrTransitionInFlight.
type Session struct {
	c *Controller

	busy   atomic.Bool
	closed atomic.Bool

	mu       sync.Mutex
	state    State
	timer    *time.Timer
	timerGen uint64

	check emailCheck

	onState func(State)
	onHint  func(EmailHint)
}

// NewSession starts a session at [InitialState].
func (c *Controller) NewSession(opts ...SessionOption) *Session {
	s := &Session{
		c:     c,
		state: InitialState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the committed state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies ev and runs the resulting effects. The returned State is
// the one to display, also when err is non-nil.
func (s *Session) Dispatch(ctx context.Context, ev Event) (State, error) {
	if s == nil || s.c == nil {
		return InitialState(), ErrControllerNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if s.closed.Load() {
		return s.State(), ErrSessionClosed
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.c.metrics.Inc(MetricTransitionInFlight)
		return s.State(), ErrTransitionInFlight
	}
	defer s.busy.Store(false)

	cur := s.State()
	ctx, span := s.c.tracer.Start(ctx, "authflow.Dispatch", trace.WithAttributes(
		attribute.String("authflow.event", ev.Kind.String()),
		attribute.String("authflow.step.from", cur.Step.String()),
	))
	defer span.End()

	start := time.Now()
	next, effects, err := flows.Reduce(ctx, cur, ev, s.c.deps)

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.runEffects(ctx, effects)
	s.c.metrics.Observe(MetricTransitionLatency, time.Since(start))

	span.SetAttributes(attribute.String("authflow.step.to", next.Step.String()))
	if err != nil {
		kind := KindOf(err)
		span.SetAttributes(attribute.String("authflow.error.kind", kind.String()))
		if kind == KindTransient {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, "transient failure")
		}
	}

	if s.onState != nil {
		s.onState(next)
	}
	return next, err
}

// Close stops the success timer and any eager email check. Later Dispatch
// calls return ErrSessionClosed. Close is idempotent.
func (s *Session) Close() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	s.check.close()
}

func (s *Session) startTimer(after time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return
	}
	s.stopTimerLocked()
	gen := s.timerGen
	s.timer = time.AfterFunc(after, func() { s.fireTimer(gen) })
}

func (s *Session) cancelTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

// stopTimerLocked invalidates every armed callback, including one that has
// already fired and is waiting for the lock.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Session) fireTimer(gen uint64) {
	s.mu.Lock()
	stale := gen != s.timerGen || s.closed.Load()
	if !stale {
		s.timer = nil
	}
	s.mu.Unlock()
	if stale {
		return
	}

	_, err := s.Dispatch(context.Background(), Advance())
	if errors.Is(err, ErrTransitionInFlight) {
		s.mu.Lock()
		if gen == s.timerGen && !s.closed.Load() {
			s.timer = time.AfterFunc(advanceRetryDelay, func() { s.fireTimer(gen) })
		}
		s.mu.Unlock()
	}
}
