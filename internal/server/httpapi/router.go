// Package httpapi exposes the sync service over HTTP with gin.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/papersson/code-bot/internal/api"
	"github.com/papersson/code-bot/internal/logging"
)

type RouterConfig struct {
	SyncHandler    *SyncHandler
	AuthMiddleware *AuthMiddleware
	AllowOrigins   []string
	Logger         logging.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	if len(cfg.AllowOrigins) > 0 {
		r.Use(CORS(cfg.AllowOrigins))
	}

	r.GET("/healthcheck", HealthCheck)

	protected := r.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.POST(api.SyncPath, cfg.SyncHandler.Sync)

	return r
}
