package application

import (
	"time"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
)

// AccountView is the only representation of an account handed to callers.
// It deliberately has no password or OTP fields.
type AccountView struct {
	ID            string    `json:"id"`
	EmailAddress  string    `json:"emailAddress"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	IsVerified    bool      `json:"isVerified"`
	IsDeactivated bool      `json:"isDeactivated"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func NewAccountView(a *entity.Account) AccountView {
	return AccountView{
		ID:            a.ID,
		EmailAddress:  a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		AvatarURL:     a.AvatarURL,
		IsVerified:    a.IsVerified,
		IsDeactivated: a.IsDeactivated,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func NewAccountViews(as []*entity.Account) []AccountView {
	out := make([]AccountView, 0, len(as))
	for _, a := range as {
		out = append(out, NewAccountView(a))
	}
	return out
}
