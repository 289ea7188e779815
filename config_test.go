package authflow

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Flow.SuccessDelay != 3500*time.Millisecond || cfg.Flow.ResetCodeTTL != 180*time.Second {
		t.Fatalf("unexpected flow defaults: %+v", cfg.Flow)
	}
	if cfg.TwoFactor.StaticCode != "123456" || !cfg.TwoFactor.AllowSkip {
		t.Fatalf("unexpected two factor defaults: %+v", cfg.TwoFactor)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero success delay":   func(c *Config) { c.Flow.SuccessDelay = 0 },
		"bad social domain":    func(c *Config) { c.Flow.SocialEmailDomain = "com" },
		"seven digits":         func(c *Config) { c.TwoFactor.Digits = 7 },
		"non numeric static":   func(c *Config) { c.TwoFactor.StaticCode = "12345a" },
		"unknown mode":         func(c *Config) { c.TwoFactor.Mode = "email" },
		"weak argon memory":    func(c *Config) { c.Password.Memory = 1024 },
		"empty redis prefix":   func(c *Config) { c.Redis.KeyPrefix = "" },
		"zero activity buffer": func(c *Config) { c.Activity.BufferSize = 0 },
		"unbounded enqueue wait": func(c *Config) {
			c.Activity.DropIfFull = false
			c.Activity.EnqueueTimeout = 0
		},
		"bad totp algorithm": func(c *Config) {
			c.TwoFactor.Mode = TwoFactorTOTP
			c.TwoFactor.Algorithm = "MD5"
		},
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("AUTHFLOW_FLOW_SUCCESS_DELAY", "2s")
	t.Setenv("AUTHFLOW_TWO_FACTOR_ALLOW_SKIP", "false")
	t.Setenv("AUTHFLOW_REDIS_KEY_PREFIX", "demo")

	cfg, err := LoadConfigFromEnv("AUTHFLOW_")
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Flow.SuccessDelay != 2*time.Second {
		t.Fatalf("expected 2s success delay, got %v", cfg.Flow.SuccessDelay)
	}
	if cfg.TwoFactor.AllowSkip {
		t.Fatal("expected skip disabled")
	}
	if cfg.Redis.KeyPrefix != "demo" {
		t.Fatalf("unexpected prefix %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Flow.ResendCooldown != time.Minute {
		t.Fatalf("unset variable lost its default: %v", cfg.Flow.ResendCooldown)
	}
}

func TestLoadConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("AUTHFLOW_TWO_FACTOR_DIGITS", "5")
	if _, err := LoadConfigFromEnv("AUTHFLOW_"); err == nil {
		t.Fatal("expected invalid digits to fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authflow.yaml")
	doc := []byte(`
flow:
  success_delay: 1500ms
  resend_cooldown: 30s
two_factor:
  mode: static
  static_code: "654321"
activity:
  drop_if_full: false
`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Flow.SuccessDelay != 1500*time.Millisecond || cfg.Flow.ResendCooldown != 30*time.Second {
		t.Fatalf("unexpected flow config %+v", cfg.Flow)
	}
	if cfg.TwoFactor.StaticCode != "654321" || cfg.Activity.DropIfFull {
		t.Fatalf("unexpected overrides %+v %+v", cfg.TwoFactor, cfg.Activity)
	}
	if cfg.Flow.ResetCodeTTL != 180*time.Second {
		t.Fatalf("absent key lost its default: %v", cfg.Flow.ResetCodeTTL)
	}
}

func TestParseConfigYAMLRejectsInvalid(t *testing.T) {
	if _, err := ParseConfigYAML([]byte("two_factor:\n  digits: 4\n")); err == nil {
		t.Fatal("expected invalid document to fail")
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}
