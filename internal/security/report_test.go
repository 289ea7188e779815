package security

import (
	"testing"
	"time"
)

func TestBuildReportDerivesFlags(t *testing.T) {
	r := BuildReport(ReportInput{
		TwoFactorMode:   "static",
		AllowSkip:       true,
		ResendCooldown:  time.Minute,
		ResetCodeTTL:    3 * time.Minute,
		Password:        PasswordReport{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		ActivityEnabled: true,
	})

	if !r.StaticSecondFactor || !r.DegradedLoginActive {
		t.Fatalf("expected static second factor with degraded login, got %+v", r)
	}
	if !r.WeakArgon2 {
		t.Fatal("expected 8 MiB / 1 pass to be reported weak")
	}
	if !r.ActivityMayDrop {
		t.Fatal("expected enabled activity to report possible drops")
	}
	if r.ResetCodeTTL != 3*time.Minute {
		t.Fatalf("unexpected reset ttl %s", r.ResetCodeTTL)
	}
}

func TestBuildReportStrongTOTP(t *testing.T) {
	r := BuildReport(ReportInput{
		TwoFactorMode:   "totp",
		Password:        PasswordReport{Memory: RecommendedMemoryKB, Time: RecommendedTime},
		ActivityEnabled: false,
	})

	if r.StaticSecondFactor || r.DegradedLoginActive || r.WeakArgon2 || r.ActivityMayDrop {
		t.Fatalf("unexpected flags %+v", r)
	}
}
