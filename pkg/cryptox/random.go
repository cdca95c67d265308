package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// PasswordAlphabet is used for temporary passwords.
	PasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// CodeAlphabet leaves out 0/O, 1/I/L so codes survive being read aloud.
	CodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

	// TemporaryPasswordLength gives ~71 bits of entropy with PasswordAlphabet.
	TemporaryPasswordLength = 12
)

// RandomString draws length symbols uniformly from alphabet using crypto/rand.
func RandomString(alphabet string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}
	if len(alphabet) < 2 {
		return "", fmt.Errorf("alphabet needs at least 2 symbols")
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// GeneratePassword returns a fresh temporary password.
func GeneratePassword() (string, error) {
	return RandomString(PasswordAlphabet, TemporaryPasswordLength)
}

// GenerateCode returns a short human-friendly code from CodeAlphabet.
func GenerateCode(length int) (string, error) {
	return RandomString(CodeAlphabet, length)
}
