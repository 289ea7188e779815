package flows

import (
	"context"
	"strings"
)

func reduceTwoFactor(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	switch ev.Kind {
	case EventSubmitCode:
		return submitCode(ctx, s, ev, deps)
	case EventSkipTwoFactor:
		return skipTwoFactor(s, ev, deps)
	case EventResendCode:
		now := deps.Now()
		if now.Before(s.ResendAvailableAt) {
			return reject(s, deps, deps.Errors.ResendCooldown)
		}
		deps.MetricInc(deps.Metrics.CodeResent)
		s.ResendAvailableAt = now.Add(deps.ResendCooldown)
		return s, []Effect{
			logActivity(profileID(s.User), s.Email, ActionCodeResent, true, methodMetadata(ev.Method)),
		}, nil
	case EventBack:
		if s.Previous == StepSignUp {
			s.Step = StepSignUp
			s.View = ViewSignUp
		} else {
			s.Step = StepSignIn
		}
		return s, nil, nil
	default:
		return notAllowed(s, ev, deps)
	}
}

func submitCode(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	code := strings.TrimSpace(ev.Code)
	if !isNumericCode(code, deps.CodeDigits) {
		return reject(s, deps, deps.Errors.CodeFormat)
	}

	ok, err := deps.VerifyTwoFactor(ctx, s.User, code)
	if err != nil {
		return reject(s, deps, storeError(err, deps))
	}
	if !ok {
		deps.MetricInc(deps.Metrics.TwoFactorFailure)
		return reject(s, deps, deps.Errors.InvalidCode,
			logActivity(profileID(s.User), s.Email, ActionTwoFactorFail, false, methodMetadata(ev.Method)),
		)
	}

	deps.MetricInc(deps.Metrics.TwoFactorSuccess)

	s.Step = StepSuccess
	s.Degraded = false

	return s, []Effect{
		{Kind: EffectUpdateLastLogin, Email: s.Email},
		logActivity(profileID(s.User), s.Email, ActionTwoFactorSuccess, true, methodMetadata(ev.Method)),
		{Kind: EffectStartTimer, Timer: TimerSuccessAdvance, After: deps.SuccessDelay},
	}, nil
}

// skipTwoFactor reaches Success without a second factor. The last-login stamp
// is not updated and the record is marked degraded.
func skipTwoFactor(s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	if !deps.AllowSkip {
		return reject(s, deps, deps.Errors.SkipDisabled)
	}

	deps.MetricInc(deps.Metrics.TwoFactorSkipped)

	s.Step = StepSuccess
	s.Degraded = true

	return s, []Effect{
		logActivity(profileID(s.User), s.Email, ActionTwoFactorSkipped, true, map[string]string{
			"degraded": "true",
		}),
		{Kind: EffectStartTimer, Timer: TimerSuccessAdvance, After: deps.SuccessDelay},
	}, nil
}

func methodMetadata(method string) map[string]string {
	switch strings.ToLower(method) {
	case "sms":
		return map[string]string{"method": "sms"}
	default:
		return map[string]string{"method": "totp"}
	}
}
