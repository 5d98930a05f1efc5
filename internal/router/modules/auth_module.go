package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-account-service/internal/interface/http"
	"github.com/oksasatya/go-account-service/internal/interface/middleware"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

type AuthModule struct {
	Handler  *handlers.AuthHandler
	Identity helpers.IdentityProvider
	Redis    *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, identity helpers.IdentityProvider, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Identity: identity, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	loginLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(middleware.RequireIdentity(m.Identity))
	auth.Use(middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByAccount(), nil))
	{
		auth.PUT("/auth/password", m.Handler.ChangePassword)
	}
}
