package flows

import (
	"context"
	"strings"
)

func reduceWelcome(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	switch ev.Kind {
	case EventSubmitEmail:
		return submitEmail(ctx, s, ev, deps)
	case EventSocialSignIn:
		return socialSignIn(s, ev, deps)
	case EventStartSignUp:
		s.Step = StepSignUp
		s.View = ViewSignUp
		s.Email = ""
		s.User = nil
		return s, nil, nil
	default:
		return notAllowed(s, ev, deps)
	}
}

// submitEmail performs the authoritative lookup. Invalid input never reaches
// the store.
func submitEmail(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	email := strings.TrimSpace(ev.Email)
	if !ValidateEmail(email) {
		return reject(s, deps, deps.Errors.InvalidEmail)
	}

	deps.MetricInc(deps.Metrics.EmailLookup)
	user, err := deps.LookupByEmail(ctx, email)
	if err != nil && !isNotFound(err, deps) {
		return reject(s, deps, storeError(err, deps))
	}

	s.Email = email
	if user == nil {
		s.Step = StepSignUp
		s.View = ViewSignUp
		s.User = nil
		return s, nil, nil
	}

	s.Step = StepSignIn
	s.View = ViewWelcome
	s.User = user
	return s, nil, nil
}

func socialSignIn(s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	provider := strings.ToLower(strings.TrimSpace(ev.Provider))
	email := "user@" + provider + deps.SocialEmailDomain
	if provider == "" || !ValidateEmail(email) {
		return reject(s, deps, deps.Errors.InvalidEmail)
	}

	user := &Profile{
		ID:         deps.NewID(),
		Email:      email,
		Name:       provider + " user",
		StatusCode: "active",
		TypeCode:   "social",
		CreatedAt:  deps.Now(),
	}

	deps.MetricInc(deps.Metrics.SocialSignIn)

	s.Step = StepTwoFactor
	s.Previous = StepSignIn
	s.Email = email
	s.User = user
	s.ResendAvailableAt = deps.Now().Add(deps.ResendCooldown)

	return s, []Effect{
		logActivity(user.ID, email, ActionSocialLogin, true, map[string]string{
			"provider": provider,
		}),
	}, nil
}
