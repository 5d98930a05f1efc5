package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-account-service/internal/interface/http"
	"github.com/oksasatya/go-account-service/internal/interface/middleware"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

// AccountModule wires account handlers into routes.
// Public: POST /api/accounts
// Protected: GET /api/accounts, GET /api/search/accounts, GET|PUT|DELETE /api/accounts/:id,
// PUT /api/accounts/:id/{deactivate,reset-password,avatar}
type AccountModule struct {
	Handler  *handlers.AccountHandler
	Identity helpers.IdentityProvider
	Redis    *redis.Client
}

func NewAccountModule(h *handlers.AccountHandler, identity helpers.IdentityProvider, rdb *redis.Client) *AccountModule {
	return &AccountModule{Handler: h, Identity: identity, Redis: rdb}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	signupLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	rg.POST("/accounts", signupLimiter, m.Handler.Create)

	auth := rg.Group("/")
	auth.Use(middleware.RequireIdentity(m.Identity))
	auth.Use(
		middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByAccount(), nil),
	)
	{
		auth.GET("/accounts", m.Handler.List)
		auth.GET("/search/accounts", m.Handler.Search)
		auth.GET("/accounts/:id", m.Handler.Get)
		auth.PUT("/accounts/:id", m.Handler.Update)
		auth.DELETE("/accounts/:id", m.Handler.Delete)
		auth.PUT("/accounts/:id/deactivate", m.Handler.Deactivate)
		// resets mail a password out, so they get a tighter budget
		auth.PUT("/accounts/:id/reset-password",
			middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByAccount(), nil),
			m.Handler.ResetPassword)
		auth.PUT("/accounts/:id/avatar", m.Handler.UploadAvatar)
	}
}
