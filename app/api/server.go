// Package api exposes the lifecycle engine over HTTP. Read endpoints
// are public; every mutating endpoint sits behind the API access key.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP router with all routes configured.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// Admin tooling runs in the browser, so the API answers preflight
	// requests and sends permissive CORS headers.
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, X-Admin-User")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Health and stats stay public for monitoring.
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	// Every mutating endpoint needs the access key; without one
	// configured the whole admin surface stays off.
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.POST("/listings", handler.APICreateListing)
			api.GET("/listings/:id", handler.APIGetListing)
			api.POST("/listings/:id/schedule", handler.APIScheduleListing)
			api.POST("/listings/:id/feature", handler.APIFeatureListing)
			api.POST("/listings/:id/extend", handler.APIExtendListing)
			api.POST("/listings/:id/unfeature", handler.APIUnfeatureListing)
			api.POST("/listings/:id/cancel-schedule", handler.APICancelSchedule)
			api.POST("/bulk", handler.APIBulkApply)
			api.GET("/scheduled", handler.APIListScheduled)
			api.GET("/packages", handler.APIListPackages)
			api.GET("/audit", handler.APIListAudit)
			api.GET("/audit/export", handler.APIExportAudit)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint describes the surface for anyone poking around.
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health": "/health",
			"stats":  "/stats",
		}

		if apiAccessKey != "" {
			endpoints["listings"] = "/api/listings (POST, requires X-API-Key header)"
			endpoints["schedule"] = "/api/listings/<id>/schedule (POST, requires X-API-Key header)"
			endpoints["feature"] = "/api/listings/<id>/feature (POST, requires X-API-Key header)"
			endpoints["bulk"] = "/api/bulk (POST, requires X-API-Key header)"
			endpoints["audit"] = "/api/audit (requires X-API-Key header)"
			endpoints["export"] = "/api/audit/export (requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "Featuring Engine",
			"description": "Featured-listing lifecycle engine with scheduling, expiration, and audit reporting",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Browsers probe for a favicon; 204 keeps the logs free of 404s.
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware guards the admin endpoints with the configured access
// key. The key is accepted either as X-API-Key or as a bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide the key in X-API-Key or as Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key does not match",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
