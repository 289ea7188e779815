package flows

import (
	"context"
	"errors"
	"strings"
)

func reduceSignUp(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	switch ev.Kind {
	case EventSubmitSignUp:
		return submitSignUp(ctx, s, ev, deps)
	case EventBack:
		return InitialState(), nil, nil
	default:
		return notAllowed(s, ev, deps)
	}
}

func submitSignUp(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	email := s.Email
	if email == "" {
		email = strings.TrimSpace(ev.Email)
	}
	if !ValidateEmail(email) {
		return reject(s, deps, deps.Errors.InvalidEmail)
	}

	name := strings.TrimSpace(ev.Name)
	if name == "" {
		return reject(s, deps, deps.Errors.NameRequired)
	}
	if v := ValidatePassword(ev.Password); !v.IsValid {
		s.Error = deps.Errors.PasswordPolicy.Error()
		s.PasswordRules = v.Errors
		return s, nil, deps.Errors.PasswordPolicy
	}
	if ev.Password != ev.Confirm {
		return reject(s, deps, deps.Errors.PasswordMismatch)
	}
	if !ev.AcceptTerms {
		return reject(s, deps, deps.Errors.TermsRequired)
	}

	// The eager check may be stale; this one decides.
	exists, err := deps.EmailExists(ctx, email)
	if err != nil {
		return reject(s, deps, storeError(err, deps))
	}
	if exists {
		return redirectRegistered(ctx, s, email, deps)
	}

	hash, err := deps.HashPassword(ev.Password)
	if err != nil {
		return reject(s, deps, hashError(err, deps))
	}

	created, err := deps.CreateProfile(ctx, NewProfile{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, deps.Errors.EmailRegistered) {
			return redirectRegistered(ctx, s, email, deps)
		}
		return reject(s, deps, storeError(err, deps))
	}

	deps.MetricInc(deps.Metrics.SignUpSuccess)

	s.Email = email
	s.User = created
	s.Step = StepTwoFactor
	s.Previous = StepSignUp
	s.ResendAvailableAt = deps.Now().Add(deps.ResendCooldown)

	return s, []Effect{
		logActivity(profileID(created), email, ActionAccountCreated, true, nil),
	}, nil
}

// redirectRegistered handles an email that became registered between the
// email step and submit. The form is discarded and no activity is recorded.
func redirectRegistered(ctx context.Context, s State, email string, deps MachineDeps) (State, []Effect, error) {
	deps.MetricInc(deps.Metrics.SignUpConflict)

	user, err := deps.LookupByEmail(ctx, email)
	if err != nil {
		user = nil
	}

	s.Step = StepSignIn
	s.View = ViewWelcome
	s.Email = email
	s.User = user
	s.Notice = NoticeEmailRegistered
	return s, nil, nil
}
