package flows

import (
	"context"
	"errors"
	"fmt"
)

const (
	NoticeEmailRegistered = "this email is already registered, sign in instead"
	NoticePasswordUpdated = "password updated, sign in with the new password"
)

// Reduce applies one event to the session state. The returned State is always
// the one to display: on error it is the input state with Error set, except
// for events not accepted in the current step, which leave the state as is.
// Effects are returned even when err is non-nil and must be executed.
func Reduce(ctx context.Context, cur State, ev Event, deps MachineDeps) (State, []Effect, error) {
	normalizeMachineDeps(&deps)

	if !deps.ready() {
		return cur, nil, deps.Errors.ControllerNotReady
	}

	if ev.Kind == EventLogout {
		return reduceLogout(cur, deps)
	}
	if ev.Kind == EventAdvance && cur.Step != StepSuccess {
		// stale timer tick
		return cur, nil, nil
	}

	next := cur
	next.Error = ""
	next.Notice = ""
	next.PasswordRules = nil

	var (
		out     State
		effects []Effect
		err     error
	)
	switch cur.Step {
	case StepWelcome:
		out, effects, err = reduceWelcome(ctx, next, ev, deps)
	case StepSignIn:
		out, effects, err = reduceSignIn(ctx, next, ev, deps)
	case StepSignUp:
		out, effects, err = reduceSignUp(ctx, next, ev, deps)
	case StepFindPassword:
		out, effects, err = reduceFindPassword(ctx, next, ev, deps)
	case StepTwoFactor:
		out, effects, err = reduceTwoFactor(ctx, next, ev, deps)
	case StepSuccess:
		out, effects, err = reduceSuccess(next, ev, deps)
	case StepDashboard:
		out, effects, err = notAllowed(next, ev, deps)
	default:
		out, effects, err = notAllowed(next, ev, deps)
	}

	if err != nil && errors.Is(err, deps.Errors.EventNotAllowed) {
		return cur, nil, err
	}
	return out, effects, err
}

func reduceLogout(cur State, deps MachineDeps) (State, []Effect, error) {
	effects := []Effect{{Kind: EffectCancelTimer, Timer: TimerSuccessAdvance}}
	if cur.User != nil {
		deps.MetricInc(deps.Metrics.Logout)
		effects = append(effects, logActivity(cur.User.ID, cur.User.Email, ActionLogout, true, nil))
	}
	return InitialState(), effects, nil
}

func reduceSuccess(s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	switch ev.Kind {
	case EventAdvance:
		s.Step = StepDashboard
		return s, nil, nil
	default:
		return notAllowed(s, ev, deps)
	}
}

func notAllowed(s State, ev Event, deps MachineDeps) (State, []Effect, error) {
	deps.MetricInc(deps.Metrics.Rejected)
	return s, nil, fmt.Errorf("%w: %s in %s", deps.Errors.EventNotAllowed, ev.Kind, s.Step)
}

func reject(s State, deps MachineDeps, err error, effects ...Effect) (State, []Effect, error) {
	s.Error = userMessage(err, deps)
	return s, effects, err
}

// userMessage hides transport detail from the step error.
func userMessage(err error, deps MachineDeps) string {
	if deps.Errors.StoreUnavailable != nil && errors.Is(err, deps.Errors.StoreUnavailable) {
		return deps.Errors.StoreUnavailable.Error()
	}
	return err.Error()
}

func storeError(err error, deps MachineDeps) error {
	known := []error{
		deps.Errors.ProfileNotFound,
		deps.Errors.InvalidCredentials,
		deps.Errors.EmailRegistered,
		deps.Errors.StoreUnavailable,
	}
	for _, sentinel := range known {
		if sentinel != nil && errors.Is(err, sentinel) {
			return err
		}
	}
	return deps.MapStoreError(err)
}

// hashError keeps a hasher's input rejection a policy failure; anything else
// is treated like a collaborator outage.
func hashError(err error, deps MachineDeps) error {
	if policy := deps.Errors.PasswordPolicy; policy != nil && errors.Is(err, policy) {
		return err
	}
	return deps.MapStoreError(err)
}

func isNotFound(err error, deps MachineDeps) bool {
	return deps.Errors.ProfileNotFound != nil && errors.Is(err, deps.Errors.ProfileNotFound)
}

func logActivity(userID, email, action string, success bool, metadata map[string]string) Effect {
	return Effect{
		Kind: EffectLogActivity,
		Activity: Activity{
			UserID:   userID,
			Email:    email,
			Category: CategoryAuth,
			Action:   action,
			Success:  success,
			Metadata: metadata,
		},
	}
}

func profileID(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.ID
}
