package authflow

import "errors"

var (
	// ErrInvalidEmail is returned when an email fails the format check. The store is never called.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordRequired is returned for an empty sign-in password.
	ErrPasswordRequired = errors.New("password required")
	// ErrPasswordPolicy is returned when a new password fails a strength rule; State.PasswordRules lists which.
	ErrPasswordPolicy = errors.New("password does not meet the strength policy")
	// ErrPasswordMismatch is returned when the confirmation differs from the password.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrNameRequired is returned when the sign-up name is blank.
	ErrNameRequired = errors.New("name required")
	// ErrTermsRequired is returned when sign-up terms were not accepted.
	ErrTermsRequired = errors.New("terms must be accepted")
	// ErrCodeFormat is returned for a verification code that is not all digits of the configured length.
	ErrCodeFormat = errors.New("verification code must be all digits of the expected length")
	// ErrCodeExpired is returned when a password reset code is used after its deadline.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrResendCooldown is returned when a 2FA resend is requested too early.
	ErrResendCooldown = errors.New("verification code resend not yet available")
	// ErrSkipDisabled is returned for a 2FA skip when the configuration forbids it.
	ErrSkipDisabled = errors.New("two-factor skip disabled")
	// ErrEventNotAllowed is returned for an event the current step does not accept.
	ErrEventNotAllowed = errors.New("event not allowed in current step")

	// ErrProfileNotFound is returned by stores when no profile has the email.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidCredentials is returned by stores when the password does not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCode is returned for a wrong 2FA or reset code.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrEmailRegistered is returned by stores from CreateProfile on a duplicate email.
	ErrEmailRegistered = errors.New("email already registered")
	// ErrStoreUnavailable wraps collaborator failures that may succeed on retry.
	ErrStoreUnavailable = errors.New("profile store unavailable, try again")

	// ErrTransitionInFlight is returned when Dispatch is called while another transition runs.
	ErrTransitionInFlight = errors.New("transition already in flight")
	// ErrSessionClosed is returned by Dispatch after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrControllerNotReady is returned when the controller was not built through Builder.
	ErrControllerNotReady = errors.New("controller not initialized")
)

// ErrorKind classifies errors for presentation.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindValidation errors are caught locally and block submission.
	KindValidation
	// KindNotFound marks an absent account. On the email step it is a branch, not a failure.
	KindNotFound
	// KindCredential errors are wrong passwords or codes; the attempt is counted.
	KindCredential
	// KindConflict marks an email registered concurrently; the flow redirects.
	KindConflict
	// KindTransient errors leave the step in place for a manual retry.
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindCredential:
		return "credential"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// KindOf maps err onto the taxonomy. Errors the package does not recognize
// are reported as transient since they originate from collaborators.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrPasswordRequired),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrTermsRequired),
		errors.Is(err, ErrCodeFormat),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrResendCooldown),
		errors.Is(err, ErrSkipDisabled),
		errors.Is(err, ErrEventNotAllowed),
		errors.Is(err, ErrTransitionInFlight),
		errors.Is(err, ErrSessionClosed):
		return KindValidation
	case errors.Is(err, ErrProfileNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidCode):
		return KindCredential
	case errors.Is(err, ErrEmailRegistered):
		return KindConflict
	case errors.Is(err, ErrControllerNotReady):
		return KindUnknown
	default:
		return KindTransient
	}
}
