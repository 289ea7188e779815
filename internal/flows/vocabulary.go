package flows

import "time"

// Step is a wizard position. The set is closed; every switch over Step lists
// all of them.
type Step uint8

const (
	StepWelcome Step = iota
	StepSignIn
	StepSignUp
	StepFindPassword
	StepTwoFactor
	StepSuccess
	StepDashboard
)

func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepSignIn:
		return "signin"
	case StepSignUp:
		return "signup"
	case StepFindPassword:
		return "find_password"
	case StepTwoFactor:
		return "two_factor"
	case StepSuccess:
		return "success"
	case StepDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// View selects the side panel. It carries no behavior.
type View uint8

const (
	ViewWelcome View = iota
	ViewSignUp
)

func (v View) String() string {
	if v == ViewSignUp {
		return "signup"
	}
	return "welcome"
}

// ResetStage tracks progress inside the FindPassword step.
type ResetStage uint8

const (
	ResetStageEmail ResetStage = iota
	ResetStageCode
	ResetStagePassword
)

func (r ResetStage) String() string {
	switch r {
	case ResetStageEmail:
		return "email"
	case ResetStageCode:
		return "code"
	case ResetStagePassword:
		return "password"
	default:
		return "unknown"
	}
}

type Profile struct {
	ID                  string
	Email               string
	Name                string
	PasswordHash        string
	StatusCode          string
	TypeCode            string
	RoleCode            string
	FailedLoginAttempts int
	LastLoginAt         time.Time
	CreatedAt           time.Time
}

type NewProfile struct {
	Email        string
	Name         string
	PasswordHash string
}

type ResetProgress struct {
	Stage     ResetStage
	Email     string
	ExpiresAt time.Time
}

// State is the whole session value. Reduce never mutates its input.
type State struct {
	Step     Step
	Previous Step
	Email    string
	User     *Profile
	View     View

	Notice        string
	Error         string
	PasswordRules []PasswordRule

	Reset             ResetProgress
	ResendAvailableAt time.Time
	Degraded          bool
}

// InitialState is the value a session starts with and returns to on logout.
func InitialState() State {
	return State{Step: StepWelcome, View: ViewWelcome}
}

type EventKind uint8

const (
	EventSubmitEmail EventKind = iota + 1
	EventSocialSignIn
	EventStartSignUp
	EventSubmitPassword
	EventForgotPassword
	EventBack
	EventSubmitSignUp
	EventSubmitCode
	EventSkipTwoFactor
	EventResendCode
	EventRequestResetCode
	EventVerifyResetCode
	EventSubmitNewPassword
	EventAdvance
	EventLogout
)

func (k EventKind) String() string {
	switch k {
	case EventSubmitEmail:
		return "submit_email"
	case EventSocialSignIn:
		return "social_signin"
	case EventStartSignUp:
		return "start_signup"
	case EventSubmitPassword:
		return "submit_password"
	case EventForgotPassword:
		return "forgot_password"
	case EventBack:
		return "back"
	case EventSubmitSignUp:
		return "submit_signup"
	case EventSubmitCode:
		return "submit_code"
	case EventSkipTwoFactor:
		return "skip_two_factor"
	case EventResendCode:
		return "resend_code"
	case EventRequestResetCode:
		return "request_reset_code"
	case EventVerifyResetCode:
		return "verify_reset_code"
	case EventSubmitNewPassword:
		return "submit_new_password"
	case EventAdvance:
		return "advance"
	case EventLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Event is a user action or timer tick. Only the fields relevant to Kind are read.
type Event struct {
	Kind        EventKind
	Email       string
	Password    string
	Confirm     string
	Name        string
	Code        string
	Method      string
	Provider    string
	AcceptTerms bool
}

type EffectKind uint8

const (
	EffectLogActivity EffectKind = iota + 1
	EffectIncrementFailedAttempts
	EffectUpdateLastLogin
	EffectStartTimer
	EffectCancelTimer
)

func (k EffectKind) String() string {
	switch k {
	case EffectLogActivity:
		return "log_activity"
	case EffectIncrementFailedAttempts:
		return "increment_failed_attempts"
	case EffectUpdateLastLogin:
		return "update_last_login"
	case EffectStartTimer:
		return "start_timer"
	case EffectCancelTimer:
		return "cancel_timer"
	default:
		return "unknown"
	}
}

type Timer uint8

const (
	TimerSuccessAdvance Timer = iota + 1
)

type Activity struct {
	UserID   string
	Email    string
	Category string
	Action   string
	Success  bool
	Metadata map[string]string
}

// Effect is a fire-and-forget instruction produced by a transition.
type Effect struct {
	Kind     EffectKind
	Email    string
	Activity Activity
	Timer    Timer
	After    time.Duration
}

const (
	CategoryAuth = "auth"

	ActionSocialLogin      = "social login success"
	ActionPrimaryLogin     = "primary login success"
	ActionPrimaryLoginFail = "primary login fail"
	ActionAccountCreated   = "account created"
	ActionTwoFactorSuccess = "2FA success"
	ActionTwoFactorSkipped = "2FA Skipped"
	ActionTwoFactorFail    = "2FA fail"
	ActionCodeResent       = "2FA code resent"
	ActionResetSuccess     = "password reset success"
	ActionResetFail        = "password reset fail"
	ActionLogout           = "logout"
)
