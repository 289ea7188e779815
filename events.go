package authflow

import "github.com/MrEthical07/authflow/internal/flows"

// Event is one user action or timer tick dispatched to a [Session]. Build
// events with the constructors below.
type Event = flows.Event

// EventKind enumerates the events a session accepts.
type EventKind = flows.EventKind

const (
	EventSubmitEmail       = flows.EventSubmitEmail
	EventSocialSignIn      = flows.EventSocialSignIn
	EventStartSignUp       = flows.EventStartSignUp
	EventSubmitPassword    = flows.EventSubmitPassword
	EventForgotPassword    = flows.EventForgotPassword
	EventBack              = flows.EventBack
	EventSubmitSignUp      = flows.EventSubmitSignUp
	EventSubmitCode        = flows.EventSubmitCode
	EventSkipTwoFactor     = flows.EventSkipTwoFactor
	EventResendCode        = flows.EventResendCode
	EventRequestResetCode  = flows.EventRequestResetCode
	EventVerifyResetCode   = flows.EventVerifyResetCode
	EventSubmitNewPassword = flows.EventSubmitNewPassword
	EventAdvance           = flows.EventAdvance
	EventLogout            = flows.EventLogout
)

// Effect is a fire-and-forget instruction emitted by a transition.
type Effect = flows.Effect

// EffectKind enumerates effect types.
type EffectKind = flows.EffectKind

const (
	EffectLogActivity             = flows.EffectLogActivity
	EffectIncrementFailedAttempts = flows.EffectIncrementFailedAttempts
	EffectUpdateLastLogin         = flows.EffectUpdateLastLogin
	EffectStartTimer              = flows.EffectStartTimer
	EffectCancelTimer             = flows.EffectCancelTimer
)

// Activity actions recorded by the controller.
const (
	ActionSocialLogin      = flows.ActionSocialLogin
	ActionPrimaryLogin     = flows.ActionPrimaryLogin
	ActionPrimaryLoginFail = flows.ActionPrimaryLoginFail
	ActionAccountCreated   = flows.ActionAccountCreated
	ActionTwoFactorSuccess = flows.ActionTwoFactorSuccess
	ActionTwoFactorSkipped = flows.ActionTwoFactorSkipped
	ActionTwoFactorFail    = flows.ActionTwoFactorFail
	ActionCodeResent       = flows.ActionCodeResent
	ActionResetSuccess     = flows.ActionResetSuccess
	ActionResetFail        = flows.ActionResetFail
	ActionLogout           = flows.ActionLogout
)

func SubmitEmail(email string) Event {
	return Event{Kind: EventSubmitEmail, Email: email}
}

// SocialSignIn signs in through provider with a synthesized user@<provider>.com identity.
func SocialSignIn(provider string) Event {
	return Event{Kind: EventSocialSignIn, Provider: provider}
}

func StartSignUp() Event {
	return Event{Kind: EventStartSignUp}
}

func SubmitPassword(password string) Event {
	return Event{Kind: EventSubmitPassword, Password: password}
}

func ForgotPassword() Event {
	return Event{Kind: EventForgotPassword}
}

func Back() Event {
	return Event{Kind: EventBack}
}

// SignUpForm carries the sign-up fields. Email is only read when the session
// reached SignUp without an email step.
type SignUpForm struct {
	Email       string
	Name        string
	Password    string
	Confirm     string
	AcceptTerms bool
}

func SubmitSignUp(form SignUpForm) Event {
	return Event{
		Kind:        EventSubmitSignUp,
		Email:       form.Email,
		Name:        form.Name,
		Password:    form.Password,
		Confirm:     form.Confirm,
		AcceptTerms: form.AcceptTerms,
	}
}

// SubmitCode submits a second-factor code. method is "totp" or "sms" and is
// only recorded in activity metadata.
func SubmitCode(code, method string) Event {
	return Event{Kind: EventSubmitCode, Code: code, Method: method}
}

func SkipTwoFactor() Event {
	return Event{Kind: EventSkipTwoFactor}
}

func ResendCode(method string) Event {
	return Event{Kind: EventResendCode, Method: method}
}

// RequestResetCode verifies email and issues a reset code. An empty email
// reuses the one carried from SignIn.
func RequestResetCode(email string) Event {
	return Event{Kind: EventRequestResetCode, Email: email}
}

func VerifyResetCode(code string) Event {
	return Event{Kind: EventVerifyResetCode, Code: code}
}

func SubmitNewPassword(password, confirm string) Event {
	return Event{Kind: EventSubmitNewPassword, Password: password, Confirm: confirm}
}

func Advance() Event {
	return Event{Kind: EventAdvance}
}

func Logout() Event {
	return Event{Kind: EventLogout}
}
