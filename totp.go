package authflow

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const totpSecretBytes = 20

var (
	errUnsupportedTOTPAlgorithm = errors.New("unsupported totp algorithm")

	totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// StaticCodeVerifier accepts exactly one code for every profile.
//
// It backs the default "static" two-factor mode. An empty Code accepts
// nothing.
type StaticCodeVerifier struct {
	Code string
}

// VerifyCode compares code to the configured value in constant time,
// ignoring surrounding spaces.
func (v StaticCodeVerifier) VerifyCode(_ context.Context, _ *Profile, code string) (bool, error) {
	want := strings.TrimSpace(v.Code)
	if want == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(code))) == 1, nil
}

// TOTPSecretFunc returns the raw TOTP secret of a profile. A nil secret with
// a nil error means the profile has not enrolled.
type TOTPSecretFunc func(ctx context.Context, profile *Profile) ([]byte, error)

// TOTPVerifier checks RFC 6238 codes with the configured skew window.
//
// It is safe for concurrent use. Secrets are fetched per call through a
// [TOTPSecretFunc] and never cached.
type TOTPVerifier struct {
	config  TwoFactorConfig
	newHash func() hash.Hash
	modulo  uint32
	secret  TOTPSecretFunc
	now     func() time.Time
}

// NewTOTPVerifier builds a verifier for cfg.
//
// Zero Period and Digits fall back to 30 seconds and 6 digits, and an empty
// Algorithm means SHA1. An unsupported algorithm is reported by
// [TOTPVerifier.VerifyCode], not here.
func NewTOTPVerifier(cfg TwoFactorConfig, secret TOTPSecretFunc) *TOTPVerifier {
	cfg.Algorithm = strings.ToUpper(cfg.Algorithm)
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	if cfg.Period <= 0 {
		cfg.Period = 30
	}
	if cfg.Digits <= 0 {
		cfg.Digits = 6
	}

	v := &TOTPVerifier{config: cfg, secret: secret, now: time.Now, modulo: 1}
	for range cfg.Digits {
		v.modulo *= 10
	}
	switch cfg.Algorithm {
	case "SHA1":
		v.newHash = sha1.New
	case "SHA256":
		v.newHash = sha256.New
	case "SHA512":
		v.newHash = sha512.New
	}
	return v
}

// GenerateSecret returns a fresh secret and its unpadded base32 form.
//
// The secret is 20 random bytes, the RFC 4226 recommended length.
func (v *TOTPVerifier) GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, totpEncoding.EncodeToString(raw), nil
}

// DecodeTOTPSecret parses a base32 secret as shown by authenticator apps.
// Case, padding and embedded spaces are ignored.
func DecodeTOTPSecret(s string) ([]byte, error) {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	raw, err := totpEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("decode totp secret: %w", err)
	}
	return raw, nil
}

// ProvisionURI builds the otpauth:// URI shown to authenticator apps.
//
// The label is Issuer:account and the query carries the configured period,
// digits and algorithm.
func (v *TOTPVerifier) ProvisionURI(secretBase32, account string) string {
	c := v.config
	u := url.URL{
		Scheme: "otpauth",
		Host:   "totp",
		Path:   "/" + c.Issuer + ":" + account,
		RawQuery: url.Values{
			"secret":    {secretBase32},
			"issuer":    {c.Issuer},
			"period":    {strconv.Itoa(c.Period)},
			"digits":    {strconv.Itoa(c.Digits)},
			"algorithm": {c.Algorithm},
		}.Encode(),
	}
	return u.String()
}

// VerifyCode checks code against the profile's secret.
//
// A profile without a secret gets (false, nil). Secret lookup failures are
// returned as-is so the controller can classify them.
func (v *TOTPVerifier) VerifyCode(ctx context.Context, profile *Profile, code string) (bool, error) {
	if v == nil || v.secret == nil {
		return false, ErrControllerNotReady
	}
	secret, err := v.secret(ctx, profile)
	if err != nil {
		return false, err
	}
	if len(secret) == 0 {
		return false, nil
	}
	return v.verifyAt(secret, code, v.now())
}

func (v *TOTPVerifier) verifyAt(secret []byte, code string, now time.Time) (bool, error) {
	if v.newHash == nil {
		return false, errUnsupportedTOTPAlgorithm
	}
	code = strings.TrimSpace(code)
	if len(code) != v.config.Digits || !isNumeric(code) {
		return false, nil
	}

	step := now.Unix() / int64(v.config.Period)
	matched := 0
	for offset := -v.config.Skew; offset <= v.config.Skew; offset++ {
		counter := step + int64(offset)
		if counter < 0 {
			continue
		}
		want := fmt.Sprintf("%0*d", v.config.Digits, v.hotp(secret, uint64(counter)))
		matched |= subtle.ConstantTimeCompare([]byte(want), []byte(code))
	}
	return matched == 1, nil
}

// hotp is RFC 4226 dynamic truncation reduced to the configured digit count.
func (v *TOTPVerifier) hotp(secret []byte, counter uint64) uint32 {
	mac := hmac.New(v.newHash, secret)
	_ = binary.Write(mac, binary.BigEndian, counter)
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	return (binary.BigEndian.Uint32(sum[offset:]) & 0x7fffffff) % v.modulo
}
