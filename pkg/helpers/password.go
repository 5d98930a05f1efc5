package helpers

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor used for new hashes.
var passwordCost = bcrypt.DefaultCost

// generatedPasswordAlphabet is the character set for reset passwords.
const generatedPasswordAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz~!@-#$"

// GeneratedPasswordLength is the length of passwords produced by GeneratePassword.
const GeneratedPasswordLength = 10

// HashPassword hashes the plain text password using bcrypt.
// Every call draws a fresh salt; the cost and salt are encoded in the result.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password.
// A malformed hash never matches.
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// GeneratePassword returns a random password drawn from crypto/rand.
func GeneratePassword() (string, error) {
	max := big.NewInt(int64(len(generatedPasswordAlphabet)))
	out := make([]byte, GeneratedPasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = generatedPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
