package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/response"
)

const (
	CtxBearerKey    = "bearer"
	CtxIdentityKey  = "identity"
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
)

// RequireIdentity resolves the Authorization header through the identity
// provider. The raw header is kept in the context so handlers can pass it on
// to the account service unchanged.
func RequireIdentity(provider helpers.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := c.GetHeader("Authorization")
		if bearer == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}
		id, err := provider.Extract(bearer)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid bearer token", nil)
			return
		}
		c.Set(CtxBearerKey, bearer)
		c.Set(CtxIdentityKey, id)
		c.Set(CtxUserIDKey, id.UserID)
		c.Set(CtxUserEmailKey, id.Email)
		c.Next()
	}
}
