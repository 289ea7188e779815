package authflow

import "testing"

func TestSecurityReportReflectsPosture(t *testing.T) {
	cfg := testConfig()
	cfg.Activity.Enabled = true
	cfg.Activity.DropIfFull = true
	cfg.TwoFactor.AllowSkip = false

	c := newTestController(t, cfg, newMockProfileStore(), nil)

	report := c.SecurityReport()
	if report.TwoFactorMode != "static" || !report.StaticSecondFactor {
		t.Fatalf("expected static second factor in report, got %+v", report)
	}
	if report.DegradedLoginActive {
		t.Fatal("expected DegradedLoginActive=false when skip is disabled")
	}
	if report.Argon2.Memory != cfg.Password.Memory || report.WeakArgon2 {
		t.Fatalf("unexpected argon2 report %+v", report.Argon2)
	}
	if !report.ActivityLogging || !report.ActivityMayDrop {
		t.Fatal("expected activity logging with drop-if-full")
	}
	if report.ResetCodeTTL != cfg.Flow.ResetCodeTTL {
		t.Fatalf("expected reset ttl %s, got %s", cfg.Flow.ResetCodeTTL, report.ResetCodeTTL)
	}
}

func TestSecurityReportNilController(t *testing.T) {
	var c *Controller
	if r := c.SecurityReport(); r != (SecurityReport{}) {
		t.Fatalf("expected zero report, got %+v", r)
	}
}
