package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// DefaultMaxPasswordBytes caps input length when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrEmptyPassword is returned by Hash for an empty input.
	ErrEmptyPassword = errors.New("password: empty input")
	// ErrPasswordTooLong is returned by Hash and Verify for input longer than
	// Config.MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password: input exceeds maximum length")
	// ErrMalformedHash wraps every PHC decoding failure.
	ErrMalformedHash = errors.New("password: malformed PHC hash")
)

// Config holds the argon2id cost parameters.
//
// Memory is in KB. MaxPasswordBytes bounds the input; zero means
// [DefaultMaxPasswordBytes].
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("password: memory must be >= %d KB", minMemoryKB)
	case c.Time < minTimeCost:
		return fmt.Errorf("password: time must be >= %d", minTimeCost)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("password: parallelism must be >= %d", minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("password: salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("password: key length must be >= %d", minKeyLength)
	}
	return nil
}

// Argon2 hashes and verifies passwords as PHC strings. It is safe for
// concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 builds a hasher for cfg.
//
// It rejects parameters below the package minimums (8 MiB memory, one pass,
// one lane, 16-byte salt and key). The returned value never changes.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a key with a fresh salt and returns it as a PHC string.
//
// Input is raw bytes with no Unicode normalization. Strength is the caller's
// concern; only emptiness and MaxPasswordBytes are checked here.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	out := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
	}
	out.key = derive(password, out, a.config.KeyLength)
	return out.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash.
// A malformed hash is an error; a wrong password is (false, nil).
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := derive(password, stored, uint32(len(stored.key)))
	return subtle.ConstantTimeCompare(computed, stored.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was made with weaker costs or a
// different key length than the current config.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	weaker := stored.memory < a.config.Memory ||
		stored.time < a.config.Time ||
		stored.parallelism < a.config.Parallelism
	return weaker || uint32(len(stored.key)) != a.config.KeyLength, nil
}

func derive(password string, params phc, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), params.salt, params.time, params.memory, params.parallelism, keyLen)
}
