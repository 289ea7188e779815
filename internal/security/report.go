package security

import "time"

// Argon2id costs below these fall short of the RFC 9106 memory-constrained
// recommendation.
const (
	RecommendedMemoryKB = 64 * 1024
	RecommendedTime     = 3
)

type PasswordReport struct {
	Memory      uint32 `yaml:"memory_kb"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
}

type Report struct {
	TwoFactorMode       string         `yaml:"two_factor_mode"`
	StaticSecondFactor  bool           `yaml:"static_second_factor"`
	DegradedLoginActive bool           `yaml:"degraded_login_active"`
	ResendCooldown      time.Duration  `yaml:"resend_cooldown"`
	ResetCodeTTL        time.Duration  `yaml:"reset_code_ttl"`
	Argon2              PasswordReport `yaml:"argon2"`
	WeakArgon2          bool           `yaml:"weak_argon2"`
	ActivityLogging     bool           `yaml:"activity_logging"`
	ActivityMayDrop     bool           `yaml:"activity_may_drop"`
	MetricsEnabled      bool           `yaml:"metrics_enabled"`
}

type ReportInput struct {
	TwoFactorMode   string
	AllowSkip       bool
	ResendCooldown  time.Duration
	ResetCodeTTL    time.Duration
	Password        PasswordReport
	ActivityEnabled bool
	MetricsEnabled  bool
}

func BuildReport(input ReportInput) Report {
	weak := input.Password.Memory < RecommendedMemoryKB ||
		input.Password.Time < RecommendedTime

	return Report{
		TwoFactorMode:       input.TwoFactorMode,
		StaticSecondFactor:  input.TwoFactorMode == "static",
		DegradedLoginActive: input.AllowSkip,
		ResendCooldown:      input.ResendCooldown,
		ResetCodeTTL:        input.ResetCodeTTL,
		Argon2:              input.Password,
		WeakArgon2:          weak,
		ActivityLogging:     input.ActivityEnabled,
		// A full queue drops records under either overflow policy.
		ActivityMayDrop: input.ActivityEnabled,
		MetricsEnabled:  input.MetricsEnabled,
	}
}
