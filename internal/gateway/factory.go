package gateway

import (
	"fmt"

	"github.com/bassista/go_connsync/internal/config"
)

// NewGatewayFromConfig creates a Gateway based on cfg.Type.
// "http" (default) talks to the backend API, "file" serves a JSON data file
// and "memory" keeps everything in process.
func NewGatewayFromConfig(cfg config.GatewayConfig) (Gateway, error) {
	switch cfg.Type {
	case config.GatewayTypeHTTP, "":
		gw, err := NewHTTPGateway(cfg.APIURL, cfg.AuthToken, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.GatewayTypeFile:
		gw, err := NewFileGateway(cfg.DataFile, cfg.WorkspaceID)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.GatewayTypeMemory:
		return NewMemoryGateway(cfg.WorkspaceID), nil
	default:
		return nil, fmt.Errorf("unknown gateway type: %s (supported: %s, %s, %s)",
			cfg.Type, config.GatewayTypeHTTP, config.GatewayTypeFile, config.GatewayTypeMemory)
	}
}
