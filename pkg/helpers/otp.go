package helpers

import (
	"crypto/rand"
	"math/big"
)

// OTP bounds, inclusive. Codes are always six digits.
const (
	OTPMin = 100000
	OTPMax = 999999
)

var otpSpan = big.NewInt(OTPMax - OTPMin + 1)

// GenerateOTP returns a uniformly distributed six digit code.
func GenerateOTP() (int, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return 0, err
	}
	return OTPMin + int(n.Int64()), nil
}
