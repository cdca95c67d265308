package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]struct{})
	for range 50 {
		pw, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, pw, TemporaryPasswordLength)
		for _, c := range pw {
			require.True(t, strings.ContainsRune(PasswordAlphabet, c), "unexpected rune %q", c)
		}
		seen[pw] = struct{}{}
	}
	require.Len(t, seen, 50)
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)
	require.NoError(t, err)
	require.Len(t, code, 8)
	for _, c := range code {
		require.True(t, strings.ContainsRune(CodeAlphabet, c), "unexpected rune %q", c)
	}
	require.NotContains(t, code, "0")
	require.NotContains(t, code, "O")
	require.NotContains(t, code, "I")
}

func TestRandomString_Invalid(t *testing.T) {
	_, err := RandomString(CodeAlphabet, 0)
	require.Error(t, err)

	_, err = RandomString("a", 4)
	require.Error(t, err)
}
