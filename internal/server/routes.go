package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, p *Proxy, s *Sessions, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetNoCacheHeaders)

	// Flashnet pass-through proxy; public like the edge deployment, but rate limited
	if p != nil {
		limit, burst := cfg.ProxyRateLimit, cfg.ProxyRateBurst
		if limit <= 0 {
			limit = 10
		}
		if burst <= 0 {
			burst = 20
		}
		e.Any("/proxy", p.Handle, middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		})))
	}

	v1 := e.Group("/v1", SetJSONContentType)

	// Optional API key; query lookup lets browsers authenticate websockets
	if cfg.APIKey != "" {
		v1.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key,query:api_key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) == 1, nil
			},
		}))
	}

	v1.GET("/health", h.Health)
	v1.GET("/pools", h.Pools)
	v1.GET("/pools/:id", h.Pool)
	v1.GET("/pools/:id/swaps", h.PoolSwaps)
	v1.GET("/swaps", h.Swaps)
	v1.GET("/quote", h.Quote)
	v1.GET("/movers", h.Movers)
	v1.GET("/tokens/:address", h.Token)

	if s != nil {
		v1.GET("/session", s.Handle)
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
