package helpers

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	passwordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
		{"max length password", strings.Repeat("a", 72)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.NotEmpty(t, hash)
			require.NotEqual(t, tt.password, hash)
			require.True(t, CompareHashAndPassword(hash, tt.password))
		})
	}
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	h1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, err := HashPassword("same-password")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
	require.True(t, CompareHashAndPassword(h1, "same-password"))
	require.True(t, CompareHashAndPassword(h2, "same-password"))
}

func TestHashPasswordRejectsOverlongInput(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	require.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}

func TestCompareHashAndPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	t.Run("different password does not match", func(t *testing.T) {
		require.False(t, CompareHashAndPassword(hash, "battery staple"))
	})

	t.Run("malformed hashes never match", func(t *testing.T) {
		for _, bad := range []string{"", "not-a-hash", "$2a$10$short", hash[:len(hash)-5]} {
			require.False(t, CompareHashAndPassword(bad, "correct horse"), bad)
		}
	})
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]struct{})
	for _iter := 0; _iter < 50; _iter++ {
		pw, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, pw, GeneratedPasswordLength)
		for _, r := range pw {
			require.True(t, strings.ContainsRune(generatedPasswordAlphabet, r), "unexpected rune %q", r)
		}
		seen[pw] = struct{}{}
	}
	require.Greater(t, len(seen), 45)
}
