package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/flows"
	"github.com/MrEthical07/authflow/password"
	"go.opentelemetry.io/otel/trace"
)

// Controller owns the collaborators shared by every [Session]. It is safe
// for concurrent use; build it with [New].
type Controller struct {
	config Config

	store  ProfileStore
	hasher PasswordHasher
	codes  CodeVerifier
	resets ResetCodeIssuer

	dispatcher *audit.Dispatcher
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer

	now   func() time.Time
	newID func() string

	deps flows.MachineDeps
}

func (c *Controller) machineDeps() flows.MachineDeps {
	return flows.MachineDeps{
		SocialEmailDomain: c.config.Flow.SocialEmailDomain,
		CodeDigits:        c.config.TwoFactor.Digits,
		AllowSkip:         c.config.TwoFactor.AllowSkip,
		SuccessDelay:      c.config.Flow.SuccessDelay,
		ResendCooldown:    c.config.Flow.ResendCooldown,
		ResetCodeTTL:      c.config.Flow.ResetCodeTTL,

		Now:   c.now,
		NewID: c.newID,

		LookupByEmail:        c.store.LookupByEmail,
		EmailExists:          c.store.EmailExists,
		CreateProfile:        c.store.CreateProfile,
		VerifyCredentials:    c.store.VerifyCredentials,
		UpdatePasswordSecret: c.store.UpdatePasswordSecret,
		HashPassword:         c.hashPassword,

		VerifyTwoFactor: c.codes.VerifyCode,
		IssueResetCode:  c.resets.IssueResetCode,
		VerifyResetCode: c.resets.VerifyResetCode,

		MetricInc: func(id int) { c.metrics.Inc(MetricID(id)) },

		Metrics: flows.MachineMetrics{
			EmailLookup:      int(MetricEmailLookup),
			SocialSignIn:     int(MetricSocialSignIn),
			SignInSuccess:    int(MetricSignInSuccess),
			SignInFailure:    int(MetricSignInFailure),
			SignUpSuccess:    int(MetricSignUpSuccess),
			SignUpConflict:   int(MetricSignUpConflict),
			TwoFactorSuccess: int(MetricTwoFactorSuccess),
			TwoFactorFailure: int(MetricTwoFactorFailure),
			TwoFactorSkipped: int(MetricTwoFactorSkipped),
			CodeResent:       int(MetricCodeResent),
			ResetRequest:     int(MetricResetRequest),
			ResetSuccess:     int(MetricResetSuccess),
			ResetFailure:     int(MetricResetFailure),
			Logout:           int(MetricLogout),
			Rejected:         int(MetricEventRejected),
		},
		Errors: flows.MachineErrors{
			ControllerNotReady: ErrControllerNotReady,
			EventNotAllowed:    ErrEventNotAllowed,
			InvalidEmail:       ErrInvalidEmail,
			PasswordRequired:   ErrPasswordRequired,
			PasswordPolicy:     ErrPasswordPolicy,
			PasswordMismatch:   ErrPasswordMismatch,
			NameRequired:       ErrNameRequired,
			TermsRequired:      ErrTermsRequired,
			CodeFormat:         ErrCodeFormat,
			CodeExpired:        ErrCodeExpired,
			ResendCooldown:     ErrResendCooldown,
			SkipDisabled:       ErrSkipDisabled,
			ProfileNotFound:    ErrProfileNotFound,
			InvalidCredentials: ErrInvalidCredentials,
			InvalidCode:        ErrInvalidCode,
			EmailRegistered:    ErrEmailRegistered,
			StoreUnavailable:   ErrStoreUnavailable,
		},
	}
}

// Config returns a copy of the active configuration.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Controller) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}, Sums: map[MetricID]time.Duration{}}
	}
	return c.metrics.Snapshot()
}

// ActivityDropped reports activity records lost to a full queue, including
// those that waited out Activity.EnqueueTimeout.
func (c *Controller) ActivityDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.dispatcher.Dropped()
}

// Close drains pending activity records. Sessions must be closed first.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.dispatcher.Close()
}

// hashPassword reports inputs the hasher refuses as policy failures.
func (c *Controller) hashPassword(plain string) (string, error) {
	hash, err := c.hasher.Hash(plain)
	if errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrEmptyPassword) {
		return "", fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}
	return hash, err
}

// effectContext detaches ctx from cancellation and bounds it by the effect
// timeout, so a canceled request still records its bookkeeping.
func (c *Controller) effectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), c.config.Flow.EffectTimeout)
}
