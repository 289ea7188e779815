package authflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// emailCheck is the debounced, cancellable "is this email registered" check
// run while the user types. Its result is a hint only.
type emailCheck struct {
	mu     sync.Mutex
	rev    uint64
	hint   EmailHint
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
}

// stopLocked cancels the pending or running lookup.
func (p *emailCheck) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *emailCheck) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.stopLocked()
}

// ObserveEmail records the latest input and schedules a lookup after the
// configured debounce. Any earlier lookup is canceled and its result
// discarded. Malformed input clears the hint without a lookup. It returns
// the input revision.
func (s *Session) ObserveEmail(email string) uint64 {
	email = strings.TrimSpace(email)
	p := &s.check

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.rev
	}
	p.stopLocked()
	p.rev++
	rev := p.rev
	p.hint = EmailHint{Revision: rev, Email: email}

	if !ValidateEmail(email) {
		return rev
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.timer = time.AfterFunc(s.c.config.Flow.EmailDebounce, func() {
		s.runCheck(ctx, rev, email)
	})
	return rev
}

// EmailHint returns the hint for the latest observed input. Checked is false
// until that input's lookup has completed.
func (s *Session) EmailHint() EmailHint {
	s.check.mu.Lock()
	defer s.check.mu.Unlock()
	return s.check.hint
}

func (s *Session) runCheck(ctx context.Context, rev uint64, email string) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.c.config.Flow.EffectTimeout)
	registered, err := s.c.store.EmailExists(lookupCtx, email)
	cancel()

	p := &s.check
	p.mu.Lock()
	if p.closed || rev != p.rev || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.mu.Unlock()
		s.c.logger.Debug("authflow: eager email check failed",
			slog.Uint64("revision", rev),
			slog.Any("err", err),
		)
		return
	}
	p.hint = EmailHint{Revision: rev, Email: email, Checked: true, Registered: registered}
	hint := p.hint
	p.stopLocked()
	p.mu.Unlock()

	if s.onHint != nil {
		s.onHint(hint)
	}
}
