package password

import (
	"errors"
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func mustHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := mustHasher(t, fastConfig())

	hash, err := h.Hash("Secret1!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("Secret1!", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("Secret1?", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := mustHasher(t, fastConfig())

	a, err := h.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of one password must differ")
	}
}

func TestHashRejectsEmptyAndOversized(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 12
	h := mustHasher(t, cfg)

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", 13)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := h.Verify(strings.Repeat("x", 13), "irrelevant"); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong from Verify, got %v", err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := fastConfig()
			mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := mustHasher(t, fastConfig())
	good, err := h.Hash("Secret1!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	fields := strings.Split(good, "$")

	cases := map[string]string{
		"empty":           "",
		"too few fields":  "$argon2id$v=19$m=8192,t=1,p=1$salt",
		"wrong algorithm": strings.Replace(good, "argon2id", "argon2i", 1),
		"wrong version":   strings.Replace(good, "v=19", "v=16", 1),
		"no version":      strings.Replace(good, "v=19", "19", 1),
		"weak memory":     strings.Replace(good, "m=8192", "m=1024", 1),
		"duplicate param": strings.Replace(good, "p=1", "m=8192", 1),
		"unknown param":   strings.Replace(good, "p=1", "x=1", 1),
		"missing param":   strings.Replace(good, ",p=1", "", 1),
		"bad salt":        "$" + strings.Join([]string{fields[1], fields[2], fields[3], "!!!", fields[5]}, "$"),
		"short salt":      "$" + strings.Join([]string{fields[1], fields[2], fields[3], "c2FsdA==", fields[5]}, "$"),
		"empty key":       "$" + strings.Join([]string{fields[1], fields[2], fields[3], fields[4], ""}, "$"),
	}
	for name, hash := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := h.Verify("Secret1!", hash)
			if ok || !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("expected ErrMalformedHash, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestVerifyHonorsStoredParameters(t *testing.T) {
	weak := mustHasher(t, fastConfig())
	hash, err := weak.Hash("Secret1!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	strongCfg := fastConfig()
	strongCfg.Memory = 16 * 1024
	strongCfg.Time = 2
	strong := mustHasher(t, strongCfg)

	ok, err := strong.Verify("Secret1!", hash)
	if err != nil || !ok {
		t.Fatalf("hash from older parameters must still verify, got ok=%v err=%v", ok, err)
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak := mustHasher(t, fastConfig())
	hash, err := weak.Hash("Secret1!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if needs, err := weak.NeedsUpgrade(hash); err != nil || needs {
		t.Fatalf("same parameters must not need upgrade, got %v %v", needs, err)
	}

	strongCfg := fastConfig()
	strongCfg.Time = 2
	if needs, _ := mustHasher(t, strongCfg).NeedsUpgrade(hash); !needs {
		t.Fatal("higher time cost must need upgrade")
	}

	longerKey := fastConfig()
	longerKey.KeyLength = 64
	if needs, _ := mustHasher(t, longerKey).NeedsUpgrade(hash); !needs {
		t.Fatal("different key length must need upgrade")
	}

	if _, err := weak.NeedsUpgrade("garbage"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
}
