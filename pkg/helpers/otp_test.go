package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateOTPStaysInRange(t *testing.T) {
	for _iter := 0; _iter < 5000; _iter++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.GreaterOrEqual(t, code, OTPMin)
		require.LessOrEqual(t, code, OTPMax)
	}
}

func TestGenerateOTPIsNotDegenerate(t *testing.T) {
	seen := make(map[int]struct{})
	for _iter := 0; _iter < 200; _iter++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	// 200 draws out of 900000 values; collisions beyond a handful mean a broken source.
	require.Greater(t, len(seen), 190)
}
