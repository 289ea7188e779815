package password

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		p.memory,
		p.time,
		p.parallelism,
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	)
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}

func decodePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return phc{}, malformed("expected 5 fields")
	}
	if fields[1] != algorithmID {
		return phc{}, malformed("algorithm " + strconv.Quote(fields[1]))
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return phc{}, malformed("missing version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return phc{}, malformed("version " + strconv.Quote(version))
	}

	var out phc
	if err := out.decodeParams(fields[3]); err != nil {
		return phc{}, err
	}

	var err error
	if out.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil {
		return phc{}, malformed("salt encoding")
	}
	if len(out.salt) < int(minSaltLength) {
		return phc{}, malformed("salt too short")
	}
	if out.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil {
		return phc{}, malformed("key encoding")
	}
	if len(out.key) == 0 {
		return phc{}, malformed("empty key")
	}
	return out, nil
}

// decodeParams reads "m=..,t=..,p=.." in any order. Each key must appear
// exactly once and meet the package minimums.
func (p *phc) decodeParams(field string) error {
	seen := make(map[string]bool, 3)
	for _, pair := range strings.Split(field, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || seen[k] {
			return malformed("parameter " + strconv.Quote(pair))
		}
		seen[k] = true

		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return malformed("memory " + strconv.Quote(v))
			}
			p.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return malformed("time " + strconv.Quote(v))
			}
			p.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return malformed("parallelism " + strconv.Quote(v))
			}
			p.parallelism = uint8(n)
		default:
			return malformed("parameter " + strconv.Quote(k))
		}
	}
	if len(seen) != 3 {
		return malformed("missing parameters")
	}
	return nil
}
