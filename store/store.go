// Package store holds what the bundled authflow.ProfileStore
// implementations share. The implementations live in redisstore and
// sqlstore.
package store

import (
	"errors"
	"strings"
)

// ErrNoVerifier is returned by VerifyCredentials on a store built without a
// PasswordVerifier.
var ErrNoVerifier = errors.New("store: password verifier not configured")

// PasswordVerifier checks a plaintext password against a stored PHC hash.
// *password.Argon2 satisfies it.
type PasswordVerifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// Rehasher is implemented by verifiers that can tell when a stored hash was
// made with outdated parameters. Stores rehash on the next successful
// VerifyCredentials.
type Rehasher interface {
	NeedsUpgrade(encodedHash string) (bool, error)
	Hash(password string) (string, error)
}

// CheckPassword verifies password against hash. When v is a Rehasher and hash
// was made with outdated parameters, upgraded holds a fresh hash for the
// caller to persist; otherwise it is empty. Rehash failures are ignored.
func CheckPassword(v PasswordVerifier, password, hash string) (ok bool, upgraded string, err error) {
	if v == nil {
		return false, "", ErrNoVerifier
	}
	ok, err = v.Verify(password, hash)
	if err != nil || !ok {
		return false, "", err
	}

	r, isRehasher := v.(Rehasher)
	if !isRehasher {
		return true, "", nil
	}
	if needs, err := r.NeedsUpgrade(hash); err != nil || !needs {
		return true, "", nil
	}
	fresh, err := r.Hash(password)
	if err != nil {
		return true, "", nil
	}
	return true, fresh, nil
}

// NormalizeEmail is the key form every store uses.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Profile status, type and role codes written on creation.
const (
	StatusActive = "active"
	TypeLocal    = "local"
	RoleMember   = "member"
)

// MaxActivityEntries bounds the activity log kept by redisstore.
const MaxActivityEntries = 10000
