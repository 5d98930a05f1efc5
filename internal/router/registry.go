package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/pkg/response"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	checks      map[string]HealthCheck
}

func NewRegistry(engine *gin.Engine) *Registry {
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api, checks: map[string]HealthCheck{}}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// Check adds a named dependency to GET /api/healthz.
func (r *Registry) Check(name string, fn HealthCheck) {
	r.checks[name] = fn
}

func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	r.API.GET("/healthz", r.health)
	for _, m := range r.modules {
		m.Register(r.API)
	}
}

func (r *Registry) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	failed := map[string]string{}
	for name, fn := range r.checks {
		if err := fn(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", failed)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"checks": len(r.checks)}, "ok", nil)
}
