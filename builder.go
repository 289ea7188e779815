package authflow

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/password"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrEthical07/authflow"

// Builder assembles a [Controller].
//
// A Builder is single-use and not safe for concurrent configuration. Set
// every collaborator during initialization, then call [Builder.Build] once.
type Builder struct {
	config Config

	store    ProfileStore
	hasher   PasswordHasher
	codes    CodeVerifier
	resets   ResetCodeIssuer
	activity ActivitySink

	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	now            func() time.Time

	built bool
}

// New starts a Builder with [DefaultConfig].
//
// Only a [ProfileStore] is required; every other collaborator has a default
// chosen in [Builder.Build].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
//
// The value is validated by [Builder.Build], not here. Later calls to
// [Builder.WithMetricsEnabled] and [Builder.WithLatencyHistograms] still
// override their fields.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithProfileStore sets the required profile store.
//
// The store is shared by every [Session] the controller creates and must be
// safe for concurrent use. Build fails when it is nil.
func (b *Builder) WithProfileStore(store ProfileStore) *Builder {
	b.store = store
	return b
}

// WithPasswordHasher overrides the argon2id hasher built from Config.Password.
//
// It must produce hashes the profile store can verify. Errors wrapping
// [password.ErrPasswordTooLong] or [password.ErrEmptyPassword] are reported
// to the session as [ErrPasswordPolicy].
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithCodeVerifier sets the second-factor verifier.
//
// It is required in TOTP mode, where it is usually a [TOTPVerifier]. In
// static mode the default is a [StaticCodeVerifier] for TwoFactor.StaticCode.
func (b *Builder) WithCodeVerifier(v CodeVerifier) *Builder {
	b.codes = v
	return b
}

// WithResetCodes sets who issues and checks password reset codes.
//
// The default is [StaticResetCodes] for TwoFactor.StaticCode, which delivers
// nothing. [NewRedisResetCodes] keeps single-use codes in Redis.
func (b *Builder) WithResetCodes(r ResetCodeIssuer) *Builder {
	b.resets = r
	return b
}

// WithActivitySink sets where activity records are written.
//
// Records reach the sink from a background writer, never from Dispatch, and
// each write is bounded by Flow.EffectTimeout. A nil sink discards records.
// Nothing is recorded when Activity.Enabled is false.
func (b *Builder) WithActivitySink(sink ActivitySink) *Builder {
	b.activity = sink
	return b
}

// WithLogger sets the logger for swallowed effect and activity failures.
//
// The default is [slog.Default] tagged with component=authflow.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTracerProvider sets where Dispatch spans go.
//
// The default is the global OpenTelemetry provider, which drops spans until
// the application installs one.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithClock replaces time.Now for deadlines and activity timestamps.
//
// Timers still run on the wall clock; only the values the state machine
// compares against come from now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
//
// With metrics disabled, [Controller.MetricsSnapshot] returns empty maps.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles Dispatch latency histograms.
//
// Histograms are only recorded when metrics are enabled as well.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the controller.
//
// It fails when the configuration is invalid, no profile store was set, TOTP
// mode has no code verifier, or the Builder was already used. Close the
// returned controller to drain pending activity.
func (b *Builder) Build() (*Controller, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("profile store required")
	}

	c := &Controller{
		config: cfg,
		store:  b.store,
		hasher: b.hasher,
		codes:  b.codes,
		resets: b.resets,
		now:    b.now,
		newID:  uuid.NewString,
	}

	if c.now == nil {
		c.now = time.Now
	}

	// -------- LOGGING / TRACING --------
	c.logger = b.logger
	if c.logger == nil {
		c.logger = slog.Default().With(slog.String("component", "authflow"))
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	c.tracer = tp.Tracer(tracerName)

	// -------- PASSWORD HASHER --------
	if c.hasher == nil {
		ph, err := NewPasswordHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
		c.hasher = ph
	}

	// -------- SECOND FACTOR / RESET CODES --------
	if c.codes == nil {
		if cfg.TwoFactor.Mode == TwoFactorTOTP {
			return nil, errors.New("TwoFactor Mode totp requires WithCodeVerifier")
		}
		c.codes = StaticCodeVerifier{Code: cfg.TwoFactor.StaticCode}
	}
	if c.resets == nil {
		c.resets = StaticResetCodes{Code: cfg.TwoFactor.StaticCode}
	}

	// -------- ACTIVITY --------
	if cfg.Activity.Enabled {
		relay := activityRelay{sink: b.activity, timeout: cfg.Flow.EffectTimeout}
		c.dispatcher = audit.NewDispatcher(relay, audit.Options{
			Buffer:     cfg.Activity.BufferSize,
			DropIfFull: cfg.Activity.DropIfFull,
			MaxWait:    cfg.Activity.EnqueueTimeout,
			OnError:    c.logActivityFailure,
		})
	}

	c.metrics = NewMetrics(cfg.Metrics)
	c.deps = c.machineDeps()

	b.built = true

	return c, nil
}

// NewPasswordHasher builds the argon2id hasher described by cfg. Stores use
// the same value to verify credentials.
func NewPasswordHasher(cfg PasswordConfig) (*password.Argon2, error) {
	return password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
}
