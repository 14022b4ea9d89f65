package controller

import (
	"net/http"

	"github.com/bassista/go_connsync/internal/config"
	"github.com/gin-gonic/gin"
)

// ConfigurationResponse is the non-secret part of the configuration exposed to clients.
type ConfigurationResponse struct {
	WorkspaceID        string `json:"workspaceId"`
	GatewayType        string `json:"gatewayType"`
	CacheTTLSec        int    `json:"cacheTtlSec"`
	RefreshIntervalSec int    `json:"refreshIntervalSec"`
	AnalyticsEnabled   bool   `json:"analyticsEnabled"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

// NewConfigurationController creates a new ConfigurationController.
func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration returns the settings a client needs to render the workspace.
// Credentials and backend URLs are never included.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	response := ConfigurationResponse{
		WorkspaceID:        cc.config.Gateway.WorkspaceID,
		GatewayType:        cc.config.Gateway.Type,
		CacheTTLSec:        int(cc.config.Cache.TTL.Seconds()),
		RefreshIntervalSec: int(cc.config.Cache.RefreshInterval.Seconds()),
		AnalyticsEnabled:   cc.config.Analytics.Enabled,
	}
	c.JSON(http.StatusOK, response)
}
