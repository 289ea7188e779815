package flows

import (
	"context"
	"strings"
)

func reduceFindPassword(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	switch ev.Kind {
	case EventRequestResetCode:
		return requestResetCode(ctx, s, ev, deps)
	case EventVerifyResetCode:
		if s.Reset.Stage != ResetStageCode {
			return notAllowed(s, ev, deps)
		}
		return verifyResetCode(ctx, s, ev, deps)
	case EventSubmitNewPassword:
		if s.Reset.Stage != ResetStagePassword {
			return notAllowed(s, ev, deps)
		}
		return submitNewPassword(ctx, s, ev, deps)
	case EventBack:
		s.Step = StepSignIn
		s.Reset = ResetProgress{}
		return s, nil, nil
	default:
		return notAllowed(s, ev, deps)
	}
}

// requestResetCode may be repeated; each call issues a fresh code and restarts
// the deadline.
func requestResetCode(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	email := strings.TrimSpace(ev.Email)
	if email == "" {
		email = s.Reset.Email
	}
	if !ValidateEmail(email) {
		return reject(s, deps, deps.Errors.InvalidEmail)
	}

	deps.MetricInc(deps.Metrics.ResetRequest)

	user, err := deps.LookupByEmail(ctx, email)
	if err != nil && !isNotFound(err, deps) {
		return reject(s, deps, storeError(err, deps))
	}
	if user == nil {
		s.Reset.Email = email
		return reject(s, deps, deps.Errors.ProfileNotFound)
	}

	if err := deps.IssueResetCode(ctx, email); err != nil {
		return reject(s, deps, storeError(err, deps))
	}

	s.Reset = ResetProgress{
		Stage:     ResetStageCode,
		Email:     email,
		ExpiresAt: deps.Now().Add(deps.ResetCodeTTL),
	}
	return s, nil, nil
}

func verifyResetCode(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	if deps.Now().After(s.Reset.ExpiresAt) {
		return reject(s, deps, deps.Errors.CodeExpired)
	}

	code := strings.TrimSpace(ev.Code)
	if !isNumericCode(code, deps.CodeDigits) {
		return reject(s, deps, deps.Errors.CodeFormat)
	}

	ok, err := deps.VerifyResetCode(ctx, s.Reset.Email, code)
	if err != nil {
		return reject(s, deps, storeError(err, deps))
	}
	if !ok {
		deps.MetricInc(deps.Metrics.ResetFailure)
		return reject(s, deps, deps.Errors.InvalidCode,
			logActivity(resetUserID(s), s.Reset.Email, ActionResetFail, false, map[string]string{
				"reason": "code_mismatch",
			}),
		)
	}

	s.Reset.Stage = ResetStagePassword
	return s, nil, nil
}

func submitNewPassword(ctx context.Context, s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	if v := ValidatePassword(ev.Password); !v.IsValid {
		s.Error = deps.Errors.PasswordPolicy.Error()
		s.PasswordRules = v.Errors
		return s, nil, deps.Errors.PasswordPolicy
	}
	if ev.Password != ev.Confirm {
		return reject(s, deps, deps.Errors.PasswordMismatch)
	}

	email := s.Reset.Email
	hash, err := deps.HashPassword(ev.Password)
	if err != nil {
		return reject(s, deps, hashError(err, deps))
	}

	if err := deps.UpdatePasswordSecret(ctx, email, hash); err != nil {
		deps.MetricInc(deps.Metrics.ResetFailure)
		return reject(s, deps, storeError(err, deps),
			logActivity(resetUserID(s), email, ActionResetFail, false, map[string]string{
				"reason": "update_failed",
			}),
		)
	}

	deps.MetricInc(deps.Metrics.ResetSuccess)
	userID := resetUserID(s)

	if s.User == nil || s.User.Email != email {
		s.User = nil
	}
	s.Step = StepSignIn
	s.Email = email
	s.Reset = ResetProgress{}
	s.Notice = NoticePasswordUpdated

	return s, []Effect{
		logActivity(userID, email, ActionResetSuccess, true, nil),
	}, nil
}

func resetUserID(s State) string {
	if s.User != nil && s.User.Email == s.Reset.Email {
		return s.User.ID
	}
	return ""
}
