package authflow

import "github.com/MrEthical07/authflow/internal/security"

// SecurityReport is a read-only snapshot of the controller's security
// posture, returned by [Controller.SecurityReport].
type SecurityReport = security.Report

// PasswordConfigReport contains the argon2id parameters in effect.
type PasswordConfigReport = security.PasswordReport

// SecurityReport summarises the active configuration. It is safe to call
// concurrently and never touches the stores.
func (c *Controller) SecurityReport() SecurityReport {
	if c == nil {
		return SecurityReport{}
	}
	cfg := c.config
	return security.BuildReport(security.ReportInput{
		TwoFactorMode:  string(cfg.TwoFactor.Mode),
		AllowSkip:      cfg.TwoFactor.AllowSkip,
		ResendCooldown: cfg.Flow.ResendCooldown,
		ResetCodeTTL:   cfg.Flow.ResetCodeTTL,
		Password: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		ActivityEnabled: cfg.Activity.Enabled,
		MetricsEnabled:  cfg.Metrics.Enabled,
	})
}
