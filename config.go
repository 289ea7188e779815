package authflow

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the complete controller configuration. Obtain a populated value
// from [DefaultConfig], [LoadConfigFromEnv] or [LoadConfigFile].
type Config struct {
	Flow      FlowConfig      `yaml:"flow" envPrefix:"FLOW_"`
	TwoFactor TwoFactorConfig `yaml:"two_factor" envPrefix:"TWO_FACTOR_"`
	Password  PasswordConfig  `yaml:"password" envPrefix:"PASSWORD_"`
	Activity  ActivityConfig  `yaml:"activity" envPrefix:"ACTIVITY_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"METRICS_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
}

/*
====================================
FLOW CONFIG
====================================
*/

// FlowConfig holds the wizard timings.
type FlowConfig struct {
	SuccessDelay      time.Duration `yaml:"success_delay" env:"SUCCESS_DELAY"`
	ResendCooldown    time.Duration `yaml:"resend_cooldown" env:"RESEND_COOLDOWN"`
	ResetCodeTTL      time.Duration `yaml:"reset_code_ttl" env:"RESET_CODE_TTL"`
	EmailDebounce     time.Duration `yaml:"email_debounce" env:"EMAIL_DEBOUNCE"`
	EffectTimeout     time.Duration `yaml:"effect_timeout" env:"EFFECT_TIMEOUT"`
	SocialEmailDomain string        `yaml:"social_email_domain" env:"SOCIAL_EMAIL_DOMAIN"`
}

/*
====================================
TWO FACTOR CONFIG
====================================
*/

// TwoFactorMode selects the second-factor verifier.
type TwoFactorMode string

const (
	// TwoFactorStatic accepts a single configured code.
	TwoFactorStatic TwoFactorMode = "static"
	// TwoFactorTOTP verifies RFC 6238 codes against a per-profile secret.
	TwoFactorTOTP TwoFactorMode = "totp"
)

type TwoFactorConfig struct {
	Mode       TwoFactorMode `yaml:"mode" env:"MODE"`
	StaticCode string        `yaml:"static_code" env:"STATIC_CODE"`
	Issuer     string        `yaml:"issuer" env:"ISSUER"`
	Digits     int           `yaml:"digits" env:"DIGITS"`
	Period     int           `yaml:"period" env:"PERIOD"`
	Skew       int           `yaml:"skew" env:"SKEW"`
	Algorithm  string        `yaml:"algorithm" env:"ALGORITHM"`
	AllowSkip  bool          `yaml:"allow_skip" env:"ALLOW_SKIP"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory" env:"MEMORY"` // in KB
	Time        uint32 `yaml:"time" env:"TIME"`
	Parallelism uint8  `yaml:"parallelism" env:"PARALLELISM"`
	SaltLength  uint32 `yaml:"salt_length" env:"SALT_LENGTH"`
	KeyLength   uint32 `yaml:"key_length" env:"KEY_LENGTH"`
}

/*
====================================
ACTIVITY / METRICS CONFIG
====================================
*/

// ActivityConfig controls the background activity writer. Nothing is
// recorded when Enabled is false.
type ActivityConfig struct {
	Enabled    bool `yaml:"enabled" env:"ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"BUFFER_SIZE"`
	DropIfFull bool `yaml:"drop_if_full" env:"DROP_IF_FULL"`
	// EnqueueTimeout caps how long a transition waits for queue space when
	// DropIfFull is false.
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout" env:"ENQUEUE_TIMEOUT"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms" env:"ENABLE_LATENCY_HISTOGRAMS"`
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig names the key prefix shared by the Redis-backed stores.
type RedisConfig struct {
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Flow: FlowConfig{
			SuccessDelay:      3500 * time.Millisecond,
			ResendCooldown:    60 * time.Second,
			ResetCodeTTL:      180 * time.Second,
			EmailDebounce:     300 * time.Millisecond,
			EffectTimeout:     2 * time.Second,
			SocialEmailDomain: ".com",
		},
		TwoFactor: TwoFactorConfig{
			Mode:       TwoFactorStatic,
			StaticCode: "123456",
			Issuer:     "authflow",
			Digits:     6,
			Period:     30,
			Skew:       1,
			Algorithm:  "SHA1",
			AllowSkip:  true,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Activity: ActivityConfig{
			Enabled:        true,
			BufferSize:     1024,
			DropIfFull:     true,
			EnqueueTimeout: 50 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Redis: RedisConfig{
			KeyPrefix: "af",
		},
	}
}

// LoadConfigFromEnv overlays environment variables onto [DefaultConfig].
// Variable names are prefix + section + field, for example
// AUTHFLOW_FLOW_SUCCESS_DELAY=2s or AUTHFLOW_TWO_FACTOR_MODE=totp.
func LoadConfigFromEnv(prefix string) (Config, error) {
	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile overlays a YAML document onto [DefaultConfig]. Keys absent
// from the file keep their defaults.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfigYAML(data)
}

// ParseConfigYAML is LoadConfigFile for in-memory documents.
func ParseConfigYAML(data []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Flow
	if c.Flow.SuccessDelay <= 0 {
		return errors.New("Flow SuccessDelay must be > 0")
	}
	if c.Flow.ResendCooldown < 0 {
		return errors.New("Flow ResendCooldown must be >= 0")
	}
	if c.Flow.ResetCodeTTL <= 0 {
		return errors.New("Flow ResetCodeTTL must be > 0")
	}
	if c.Flow.EmailDebounce < 0 {
		return errors.New("Flow EmailDebounce must be >= 0")
	}
	if c.Flow.EffectTimeout <= 0 {
		return errors.New("Flow EffectTimeout must be > 0")
	}
	if !strings.HasPrefix(c.Flow.SocialEmailDomain, ".") || len(c.Flow.SocialEmailDomain) < 2 {
		return errors.New("Flow SocialEmailDomain must look like .com")
	}

	// Two factor
	if c.TwoFactor.Digits != 6 && c.TwoFactor.Digits != 8 {
		return errors.New("TwoFactor Digits must be 6 or 8")
	}
	switch c.TwoFactor.Mode {
	case TwoFactorStatic:
		if len(c.TwoFactor.StaticCode) != c.TwoFactor.Digits || !isNumeric(c.TwoFactor.StaticCode) {
			return errors.New("TwoFactor StaticCode must be numeric with Digits length")
		}
	case TwoFactorTOTP:
		if c.TwoFactor.Period <= 0 {
			return errors.New("TwoFactor Period must be > 0")
		}
		if c.TwoFactor.Skew < 0 || c.TwoFactor.Skew > 3 {
			return errors.New("TwoFactor Skew must be between 0 and 3")
		}
		switch strings.ToUpper(c.TwoFactor.Algorithm) {
		case "SHA1", "SHA256", "SHA512":
		default:
			return errors.New("TwoFactor Algorithm must be SHA1, SHA256 or SHA512")
		}
	default:
		return fmt.Errorf("unsupported TwoFactor Mode %q", c.TwoFactor.Mode)
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("Password SaltLength and KeyLength must be >= 16")
	}

	// Activity
	if c.Activity.Enabled && c.Activity.BufferSize <= 0 {
		return errors.New("Activity BufferSize must be > 0 when enabled")
	}
	if c.Activity.Enabled && !c.Activity.DropIfFull && c.Activity.EnqueueTimeout <= 0 {
		return errors.New("Activity EnqueueTimeout must be > 0 when DropIfFull is false")
	}

	if c.Redis.KeyPrefix == "" {
		return errors.New("Redis KeyPrefix must not be empty")
	}

	return nil
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
