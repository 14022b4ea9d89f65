package route

import (
	"time"

	"github.com/bassista/go_connsync/internal/api/controller"
	"github.com/bassista/go_connsync/internal/api/middleware"
	"github.com/bassista/go_connsync/internal/connection"
	"github.com/gin-gonic/gin"
)

// NewConnectionRouter registers the connection API. Catalog refresh makes the backend
// rediscover the source schema, so it gets refreshTimeout instead of the default.
func NewConnectionRouter(timeout, refreshTimeout time.Duration, group *gin.RouterGroup, svc *connection.Service) {
	cc := controller.NewConnectionController(svc)

	defaultTimeout := middleware.RequestTimeout(timeout)
	group.GET("connections", defaultTimeout, cc.List)
	group.POST("connections/remove", defaultTimeout, cc.RemoveFromList)
	group.POST("connection", defaultTimeout, cc.Create)
	group.GET("connection/:id", defaultTimeout, cc.Get)
	group.GET("connection/:id/state", defaultTimeout, cc.GetState)
	group.PATCH("connection/:id", defaultTimeout, cc.Update)
	group.POST("connection/:id/enable", defaultTimeout, cc.Enable)
	group.POST("connection/:id/disable", defaultTimeout, cc.Disable)
	group.POST("connection/:id/sync", defaultTimeout, cc.Sync)
	group.POST("connection/:id/reset", defaultTimeout, cc.Reset)
	group.DELETE("connection/:id", defaultTimeout, cc.Delete)

	group.POST("connection/:id/refresh", middleware.RequestTimeout(refreshTimeout), cc.RefreshCatalog)
}
