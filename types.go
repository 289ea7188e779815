package authflow

import (
	"context"
	"time"

	"github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/flows"
)

// Step is a wizard position: Welcome, SignIn, SignUp, FindPassword,
// TwoFactor, Success or Dashboard.
type Step = flows.Step

const (
	StepWelcome      = flows.StepWelcome
	StepSignIn       = flows.StepSignIn
	StepSignUp       = flows.StepSignUp
	StepFindPassword = flows.StepFindPassword
	StepTwoFactor    = flows.StepTwoFactor
	StepSuccess      = flows.StepSuccess
	StepDashboard    = flows.StepDashboard
)

// View selects the presentation side panel.
type View = flows.View

const (
	ViewWelcome = flows.ViewWelcome
	ViewSignUp  = flows.ViewSignUp
)

// ResetStage is the FindPassword sub-step.
type ResetStage = flows.ResetStage

const (
	ResetStageEmail    = flows.ResetStageEmail
	ResetStageCode     = flows.ResetStageCode
	ResetStagePassword = flows.ResetStagePassword
)

// Profile is the account record owned by the [ProfileStore]. The controller
// reads it but never mutates it; changes go through named store operations.
type Profile = flows.Profile

// NewProfile is the input to [ProfileStore.CreateProfile]. PasswordHash is
// already hashed by the controller.
type NewProfile = flows.NewProfile

// State is the session value threaded through every transition.
//
// Error and Notice are scoped to the current step and cleared by the next
// accepted event.
type State = flows.State

// ResetProgress tracks the FindPassword sub-flow.
type ResetProgress = flows.ResetProgress

// PasswordRule names a failed strength rule.
type PasswordRule = flows.PasswordRule

const (
	RuleMinLength = flows.RuleMinLength
	RuleUppercase = flows.RuleUppercase
	RuleLowercase = flows.RuleLowercase
	RuleDigit     = flows.RuleDigit
	RuleSpecial   = flows.RuleSpecial
	RuleMaxLength = flows.RuleMaxLength
)

// PasswordValidation is the result of [ValidatePassword].
type PasswordValidation = flows.PasswordValidation

// InitialState returns {Welcome, "", nil}.
func InitialState() State { return flows.InitialState() }

// ValidateEmail reports whether email has a single @ and non-empty local
// part, domain and TLD. No DNS lookups are made.
func ValidateEmail(email string) bool { return flows.ValidateEmail(email) }

// ValidatePassword checks length >= 8 and the presence of an uppercase letter,
// a lowercase letter, a digit and one of !@#$%^&*. Failed rules are returned
// in that order; IsValid holds iff none failed.
func ValidatePassword(password string) PasswordValidation { return flows.ValidatePassword(password) }

// ProfileStore is the profile/auth collaborator. Every method may block and
// may fail; implementations must be safe for concurrent use.
//
// LookupByEmail returns (nil, nil) or ErrProfileNotFound for an unknown email.
// CreateProfile returns an error wrapping ErrEmailRegistered on a duplicate.
// VerifyCredentials returns an error wrapping ErrInvalidCredentials on a wrong
// password and ErrProfileNotFound for an unknown email.
type ProfileStore interface {
	LookupByEmail(ctx context.Context, email string) (*Profile, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateProfile(ctx context.Context, in NewProfile) (*Profile, error)
	VerifyCredentials(ctx context.Context, email, password string) (*Profile, error)
	UpdatePasswordSecret(ctx context.Context, email, passwordHash string) error
	IncrementFailedAttempts(ctx context.Context, email string) error
	UpdateLastLogin(ctx context.Context, email string, at time.Time) error
}

// ActivityRecord is one entry of the activity log. Client IP and user agent,
// when known, travel in Metadata under "ip" and "user_agent".
type ActivityRecord = audit.Record

// ActivitySink persists activity records. Failures are logged and dropped;
// they never affect a transition.
type ActivitySink interface {
	RecordActivity(ctx context.Context, record ActivityRecord) error
}

// PasswordHasher hashes new secrets before they reach the store.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// CodeVerifier checks a second-factor code for profile.
type CodeVerifier interface {
	VerifyCode(ctx context.Context, profile *Profile, code string) (bool, error)
}

// ResetCodeIssuer issues and checks password reset codes keyed by email.
type ResetCodeIssuer interface {
	IssueResetCode(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) (bool, error)
}

// EmailHint is the result of the eager, non-authoritative email check.
type EmailHint struct {
	Revision   uint64
	Email      string
	Checked    bool
	Registered bool
}
