package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrPasswordMismatch = errors.New("password does not match")
	ErrInvalidHash      = errors.New("invalid hash format")
)

// Params are the Argon2id cost settings written into every PHC string, so
// hashes made with older settings keep verifying after the defaults change.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follow the OWASP minimum for Argon2id (19 MiB, t=2, p=1).
var DefaultParams = Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher produces and checks salted Argon2id hashes. Pepper is mixed into
// every hash and kept outside the database.
type Hasher struct {
	Params Params
	Pepper []byte
}

// NewHasher returns a Hasher using DefaultParams.
func NewHasher(pepper []byte) *Hasher {
	return &Hasher{Params: DefaultParams, Pepper: pepper}
}

func (h *Hasher) key(password string, salt []byte, p Params) []byte {
	input := make([]byte, 0, len(password)+len(h.Pepper))
	input = append(input, password...)
	input = append(input, h.Pepper...)
	return argon2.IDKey(input, salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

// Hash returns a PHC-format string: $argon2id$v=19$m=..,t=..,p=..$salt$hash
func (h *Hasher) Hash(password string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(h.key(password, salt, p)),
	), nil
}

// Verify recomputes the hash with the parameters and salt stored in encoded
// and compares in constant time. A wrong password yields ErrPasswordMismatch;
// a malformed hash yields an error wrapping ErrInvalidHash.
func (h *Hasher) Verify(password, encoded string) error {
	p, salt, want, err := decodeHash(encoded)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(h.key(password, salt, p), want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Params{}, nil, nil, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return Params{}, nil, nil, fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: parameters: %w", ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: hash: %w", ErrInvalidHash, err)
	}
	if len(hash) == 0 {
		return Params{}, nil, nil, fmt.Errorf("%w: empty hash", ErrInvalidHash)
	}

	p.SaltLength = uint32(len(salt)) // #nosec G115 - decoded from a short field
	p.KeyLength = uint32(len(hash))  // #nosec G115
	return p, salt, hash, nil
}
