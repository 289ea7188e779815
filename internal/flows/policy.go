package flows

import (
	"regexp"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*]`)
)

const (
	// MinPasswordLength counts characters, not bytes.
	MinPasswordLength = 8
	// MaxPasswordBytes matches the argon2id hasher's input limit.
	MaxPasswordBytes = 1024
)

// PasswordRule names one strength rule a password failed.
type PasswordRule string

const (
	RuleMinLength PasswordRule = "min_length"
	RuleUppercase PasswordRule = "uppercase"
	RuleLowercase PasswordRule = "lowercase"
	RuleDigit     PasswordRule = "digit"
	RuleSpecial   PasswordRule = "special"
	RuleMaxLength PasswordRule = "max_length"
)

type PasswordValidation struct {
	IsValid bool
	Errors  []PasswordRule
}

// ValidateEmail is purely syntactic: one @, non-empty local part, domain and TLD.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword returns the failed rules in a fixed order. The minimum
// length counts characters; the maximum is in bytes so that every valid
// password can be hashed.
func ValidatePassword(password string) PasswordValidation {
	var failed []PasswordRule

	if utf8.RuneCountInString(password) < MinPasswordLength {
		failed = append(failed, RuleMinLength)
	}
	if !upperPattern.MatchString(password) {
		failed = append(failed, RuleUppercase)
	}
	if !lowerPattern.MatchString(password) {
		failed = append(failed, RuleLowercase)
	}
	if !digitPattern.MatchString(password) {
		failed = append(failed, RuleDigit)
	}
	if !specialPattern.MatchString(password) {
		failed = append(failed, RuleSpecial)
	}
	if len(password) > MaxPasswordBytes {
		failed = append(failed, RuleMaxLength)
	}

	return PasswordValidation{
		IsValid: len(failed) == 0,
		Errors:  failed,
	}
}

func isNumericCode(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
