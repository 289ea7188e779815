package authflow

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/authflow/internal/flows"
)

// runEffects executes effects in order. Store failures are logged and
// counted; they never change the committed state.
func (s *Session) runEffects(ctx context.Context, effects []Effect) {
	for _, eff := range effects {
		switch eff.Kind {
		case EffectLogActivity:
			s.c.recordActivity(ctx, eff.Activity)
		case EffectIncrementFailedAttempts:
			s.storeEffect(ctx, eff, func(ctx context.Context) error {
				return s.c.store.IncrementFailedAttempts(ctx, eff.Email)
			})
		case EffectUpdateLastLogin:
			at := s.c.now().UTC()
			s.storeEffect(ctx, eff, func(ctx context.Context) error {
				return s.c.store.UpdateLastLogin(ctx, eff.Email, at)
			})
		case EffectStartTimer:
			if eff.Timer == flows.TimerSuccessAdvance {
				s.startTimer(eff.After)
			}
		case EffectCancelTimer:
			s.cancelTimer()
		}
	}
}

func (s *Session) storeEffect(ctx context.Context, eff Effect, fn func(context.Context) error) {
	ctx, cancel := s.c.effectContext(ctx)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.c.metrics.Inc(MetricEffectFailure)
		s.c.logger.Warn("authflow: effect failed",
			slog.String("effect", eff.Kind.String()),
			slog.String("email", eff.Email),
			slog.Any("err", err),
		)
	}
}
