// Package api exposes the render pipeline over HTTP: the page endpoint for
// the render surface, the metadata endpoint for the crawler boundary, and
// the operational endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quillpress/prerender/internal/cache"
	"github.com/quillpress/prerender/internal/config"
	"github.com/quillpress/prerender/internal/logger"
	"github.com/quillpress/prerender/internal/resolver"
	"github.com/quillpress/prerender/internal/seo"
)

const serviceVersion = "1.0.0"

// Router holds the API dependencies.
type Router struct {
	resolver *resolver.Resolver
	emitter  *seo.Emitter
	cache    *cache.Cache
	cfg      *config.Config
	logger   logger.Logger
	registry *prometheus.Registry
}

// NewRouter creates the API router.
func NewRouter(res *resolver.Resolver, emitter *seo.Emitter, requestCache *cache.Cache, cfg *config.Config, log logger.Logger, registry *prometheus.Registry) *Router {
	return &Router{
		resolver: res,
		emitter:  emitter,
		cache:    requestCache,
		cfg:      cfg,
		logger:   log,
		registry: registry,
	}
}

// Engine builds the gin engine with middleware and routes.
func (r *Router) Engine() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(requestLogger(r.logger))
	engine.Use(corsMiddleware(r.cfg.Server.CORSOrigins))

	engine.GET("/health", r.health)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/pages/:slug", r.GetPage)
		v1.GET("/pages/:slug/meta", r.GetPageMeta)
		v1.POST("/cache/clear", r.ClearCache)
	}

	return engine
}

// health reports service liveness and the active render mode.
func (r *Router) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"version":         serviceVersion,
		"caching_enabled": r.cache.Enabled(),
	})
}
