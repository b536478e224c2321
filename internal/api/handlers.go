package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillpress/prerender/internal/logger"
	"github.com/quillpress/prerender/internal/upstream"
)

// routeSlug is the public reading path for a content slug; canonical URLs
// and structured data point at it.
func routeSlug(slug string) string {
	return "p/" + slug
}

// GetPage handles GET /api/v1/pages/:slug.
// Returns the canonical content, its related set, and the page metadata in
// one response so the render surface makes a single call per page.
func (r *Router) GetPage(c *gin.Context) {
	slug := c.Param("slug")

	page, err := r.resolver.Resolve(c.Request.Context(), slug)
	if err != nil {
		r.renderResolveError(c, slug, err)
		return
	}

	meta := r.emitter.Emit(&page.Primary, routeSlug(slug))

	c.JSON(http.StatusOK, gin.H{
		"content": page.Primary,
		"related": page.Related,
		"meta":    meta,
	})
}

// GetPageMeta handles GET /api/v1/pages/:slug/meta.
// The crawler boundary only needs the metadata block.
func (r *Router) GetPageMeta(c *gin.Context) {
	slug := c.Param("slug")

	page, err := r.resolver.Resolve(c.Request.Context(), slug)
	if err != nil {
		r.renderResolveError(c, slug, err)
		return
	}

	c.JSON(http.StatusOK, r.emitter.Emit(&page.Primary, routeSlug(slug)))
}

// ClearCache handles POST /api/v1/cache/clear. Invalidation is whole-cache
// only; there is no per-key endpoint.
func (r *Router) ClearCache(c *gin.Context) {
	if err := r.cache.Clear(c.Request.Context()); err != nil {
		r.logger.Error("Failed to clear render cache", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clear cache",
		})
		return
	}

	r.logger.Info("Render cache cleared")
	c.JSON(http.StatusOK, gin.H{"status": "cache cleared"})
}

// renderResolveError maps pipeline failures onto the API contract: a record
// the backend says does not exist is 404 so the caller can redirect to its
// not-found page; anything else is a bad-gateway condition.
func (r *Router) renderResolveError(c *gin.Context, slug string, err error) {
	if errors.Is(err, upstream.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "content not found",
		})
		return
	}

	r.logger.Error("Failed to resolve page",
		logger.String("slug", slug),
		logger.Error(err),
	)
	c.JSON(http.StatusBadGateway, gin.H{
		"error": "failed to resolve content",
	})
}
