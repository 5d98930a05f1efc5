package entity

import "time"

// OTP is the one-time passcode issued with an account. It lives inside the
// account and has no identity of its own.
type OTP struct {
	Value int
	Used  bool
}

// Account is the aggregate root for the account domain.
// PasswordHash always holds a bcrypt hash and must never leave the service.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	AvatarURL     string
	IsVerified    bool
	OTP           *OTP
	IsDeactivated bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAccount builds an unverified, active account carrying a fresh OTP.
func NewAccount(email, passwordHash, firstName, lastName string, otp int) *Account {
	return &Account{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		OTP:          &OTP{Value: otp},
	}
}

// Deactivate is one-way; there is no reactivation.
func (a *Account) Deactivate() {
	a.IsDeactivated = true
}

// ConsumeOTP marks the pending code used when value matches. It reports
// whether the code was accepted.
func (a *Account) ConsumeOTP(value int) bool {
	if a.OTP == nil || a.OTP.Used || a.OTP.Value != value {
		return false
	}
	a.OTP.Used = true
	return true
}

// DisplayName joins first and last name, falling back to the email.
func (a *Account) DisplayName() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	case a.LastName != "":
		return a.LastName
	}
	return a.Email
}
