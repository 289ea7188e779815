package flows

import (
	"context"
	"fmt"
	"time"
)

type MachineMetrics struct {
	EmailLookup      int
	SocialSignIn     int
	SignInSuccess    int
	SignInFailure    int
	SignUpSuccess    int
	SignUpConflict   int
	TwoFactorSuccess int
	TwoFactorFailure int
	TwoFactorSkipped int
	CodeResent       int
	ResetRequest     int
	ResetSuccess     int
	ResetFailure     int
	Logout           int
	Rejected         int
}

type MachineErrors struct {
	ControllerNotReady error
	EventNotAllowed    error
	InvalidEmail       error
	PasswordRequired   error
	PasswordPolicy     error
	PasswordMismatch   error
	NameRequired       error
	TermsRequired      error
	CodeFormat         error
	CodeExpired        error
	ResendCooldown     error
	SkipDisabled       error
	ProfileNotFound    error
	InvalidCredentials error
	InvalidCode        error
	EmailRegistered    error
	StoreUnavailable   error
}

// MachineDeps is built once by the Controller and passed by value to Reduce.
type MachineDeps struct {
	SocialEmailDomain string
	CodeDigits        int
	AllowSkip         bool
	SuccessDelay      time.Duration
	ResendCooldown    time.Duration
	ResetCodeTTL      time.Duration

	Now   func() time.Time
	NewID func() string

	LookupByEmail        func(context.Context, string) (*Profile, error)
	EmailExists          func(context.Context, string) (bool, error)
	CreateProfile        func(context.Context, NewProfile) (*Profile, error)
	VerifyCredentials    func(context.Context, string, string) (*Profile, error)
	UpdatePasswordSecret func(context.Context, string, string) error
	HashPassword         func(string) (string, error)

	VerifyTwoFactor func(context.Context, *Profile, string) (bool, error)
	IssueResetCode  func(context.Context, string) error
	VerifyResetCode func(context.Context, string, string) (bool, error)

	// MapStoreError turns an unclassified collaborator error into the
	// transient sentinel. Known sentinels pass through untouched.
	MapStoreError func(error) error
	MetricInc     func(int)

	Metrics MachineMetrics
	Errors  MachineErrors
}

func normalizeMachineDeps(deps *MachineDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return "" }
	}
	if deps.SocialEmailDomain == "" {
		deps.SocialEmailDomain = ".com"
	}
	if deps.CodeDigits <= 0 {
		deps.CodeDigits = 6
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.MapStoreError == nil {
		unavailable := deps.Errors.StoreUnavailable
		deps.MapStoreError = func(err error) error {
			if unavailable == nil {
				return err
			}
			return fmt.Errorf("%w: %v", unavailable, err)
		}
	}
	if deps.IssueResetCode == nil {
		deps.IssueResetCode = func(context.Context, string) error { return nil }
	}
}

func (d MachineDeps) ready() bool {
	return d.LookupByEmail != nil &&
		d.EmailExists != nil &&
		d.CreateProfile != nil &&
		d.VerifyCredentials != nil &&
		d.UpdatePasswordSecret != nil &&
		d.HashPassword != nil &&
		d.VerifyTwoFactor != nil &&
		d.VerifyResetCode != nil
}
