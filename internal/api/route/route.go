package route

import (
	"net/http"

	"github.com/bassista/go_connsync/internal/api/middleware"
	"github.com/bassista/go_connsync/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes builds the main engine: error reporting, recovery and CORS first, then the API.
func SetupRoutes(appCtx *app.App, logger *logrus.Logger) *gin.Engine {
	cfg := appCtx.Config

	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(logger, cfg.Misc.HoneybadgerAPIKey, cfg.Misc.Env))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	api := r.Group("/api")

	NewConfigurationRouter(cfg.Server.RequestTimeout, api.Group(""), cfg)
	NewConnectionRouter(cfg.Server.RequestTimeout, cfg.Gateway.Timeout, api.Group(""), appCtx.Connections)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
