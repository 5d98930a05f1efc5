package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email     string `json:"emailAddress" validate:"required,email"`
	Password  string `json:"password" validate:"required,pwd"`
	FirstName string `json:"firstName" validate:"name"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

func TestToDetailsUsesJSONNames(t *testing.T) {
	err := newValidator().Struct(signup{Email: "nope", Password: "short"})
	require.Error(t, err)

	details := ToDetails(err)
	require.Equal(t, "must be a valid email", details["emailAddress"])
	require.Equal(t, "must be between 8 and 72 characters long", details["password"])
	require.NotContains(t, details, "firstName")
}

func TestPasswordAliasRejectsOverlong(t *testing.T) {
	v := newValidator()
	require.NoError(t, v.Struct(signup{Email: "a@b.co", Password: "password123"}))
	require.Error(t, v.Struct(signup{Email: "a@b.co", Password: strings.Repeat("x", 73)}))
}

func TestToDetailsInvalidJSON(t *testing.T) {
	var dst signup
	err := json.Unmarshal([]byte(`{"emailAddress":`), &dst)
	require.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
	require.Nil(t, ToDetails(nil))
}
