package flows

import (
	"context"
	"errors"
)

func reduceSignIn(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	switch ev.Kind {
	case EventSubmitPassword:
		return submitPassword(ctx, s, ev, deps)
	case EventForgotPassword:
		s.Step = StepFindPassword
		s.Reset = ResetProgress{Stage: ResetStageEmail, Email: s.Email}
		return s, nil, nil
	case EventBack:
		return InitialState(), nil, nil
	default:
		return notAllowed(s, ev, deps)
	}
}

func submitPassword(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	if ev.Password == "" {
		return reject(s, deps, deps.Errors.PasswordRequired)
	}

	user, err := deps.VerifyCredentials(ctx, s.Email, ev.Password)
	if err != nil {
		switch {
		case errors.Is(err, deps.Errors.InvalidCredentials):
			deps.MetricInc(deps.Metrics.SignInFailure)
			return reject(s, deps, deps.Errors.InvalidCredentials,
				Effect{Kind: EffectIncrementFailedAttempts, Email: s.Email},
				logActivity(profileID(s.User), s.Email, ActionPrimaryLoginFail, false, nil),
			)
		case isNotFound(err, deps):
			// The account vanished after the email step; nothing to count against.
			deps.MetricInc(deps.Metrics.SignInFailure)
			return reject(s, deps, deps.Errors.InvalidCredentials,
				logActivity("", s.Email, ActionPrimaryLoginFail, false, map[string]string{
					"reason": "not_found",
				}),
			)
		default:
			return reject(s, deps, storeError(err, deps))
		}
	}

	deps.MetricInc(deps.Metrics.SignInSuccess)

	s.User = user
	s.Step = StepTwoFactor
	s.Previous = StepSignIn
	s.ResendAvailableAt = deps.Now().Add(deps.ResendCooldown)

	return s, []Effect{
		logActivity(profileID(user), s.Email, ActionPrimaryLogin, true, nil),
	}, nil
}
