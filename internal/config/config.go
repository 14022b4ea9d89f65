package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_connsync/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "CONNSYNC"
	defaultConfigPath = "./config"

	GatewayTypeHTTP   = "http"
	GatewayTypeFile   = "file"
	GatewayTypeMemory = "memory"
)

type Config struct {
	Server    ServerConfig
	Gateway   GatewayConfig
	Cache     CacheConfig
	Analytics AnalyticsConfig
	Misc      MiscConfig
}

type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
}

// GatewayConfig selects and configures the backend behind the connection service.
type GatewayConfig struct {
	Type        string
	APIURL      string
	WorkspaceID string
	AuthToken   string
	Timeout     time.Duration
	DataFile    string
}

// CacheConfig controls entry lifetime and the periodic list refresh.
// Zero TTL keeps entries until they are patched or invalidated; zero interval disables the refresher.
type CacheConfig struct {
	TTL             time.Duration
	RefreshInterval time.Duration
}

type AnalyticsConfig struct {
	Enabled bool
}

type MiscConfig struct {
	LogLevel          string
	GinMode           string
	HoneybadgerAPIKey string
	Env               string
}

// LoadConfig reads .env, config.yaml and CONNSYNC_* environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithComponent("config").Warnf("cannot load .env file: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnvOrDefault(EnvPrefix+"_CONFIG_PATH", defaultConfigPath))

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Debugf("no config file found, using defaults and env vars")
	}

	port, err := getEnvOrViperPort(v, "PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        v.GetDuration("server.read_timeout"),
			WriteTimeout:       v.GetDuration("server.write_timeout"),
			IdleTimeout:        v.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     v.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: v.GetString("server.cors_allowed_origins"),
		},
		Gateway: GatewayConfig{
			Type:        strings.ToLower(strings.TrimSpace(v.GetString("gateway.type"))),
			APIURL:      v.GetString("gateway.api_url"),
			WorkspaceID: v.GetString("gateway.workspace_id"),
			AuthToken:   v.GetString("gateway.auth_token"),
			Timeout:     v.GetDuration("gateway.timeout"),
			DataFile:    v.GetString("gateway.data_file"),
		},
		Cache: CacheConfig{
			TTL:             v.GetDuration("cache.ttl"),
			RefreshInterval: v.GetDuration("cache.refresh_interval"),
		},
		Analytics: AnalyticsConfig{
			Enabled: v.GetBool("analytics.enabled"),
		},
		Misc: MiscConfig{
			LogLevel:          v.GetString("misc.log_level"),
			GinMode:           v.GetString("misc.gin_mode"),
			HoneybadgerAPIKey: v.GetString("misc.honeybadger_api_key"),
			Env:               v.GetString("misc.env"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.cors_allowed_origins", "*")

	v.SetDefault("gateway.type", GatewayTypeHTTP)
	v.SetDefault("gateway.api_url", "http://localhost:8001/api")
	v.SetDefault("gateway.timeout", "30s")
	v.SetDefault("gateway.data_file", "./config/data/connections.json")

	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("cache.refresh_interval", "0s")

	v.SetDefault("analytics.enabled", true)

	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")
	v.SetDefault("misc.env", "production")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("server shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server request timeout must be positive")
	}

	switch c.Gateway.Type {
	case GatewayTypeHTTP, "":
		if strings.TrimSpace(c.Gateway.APIURL) == "" {
			return errors.New("gateway.api_url is required for the http gateway")
		}
		if strings.TrimSpace(c.Gateway.WorkspaceID) == "" {
			return errors.New("gateway.workspace_id is required for the http gateway")
		}
		if c.Gateway.Timeout <= 0 {
			return errors.New("gateway timeout must be positive")
		}
	case GatewayTypeFile:
		if strings.TrimSpace(c.Gateway.DataFile) == "" {
			return errors.New("gateway.data_file is required for the file gateway")
		}
	case GatewayTypeMemory:
	default:
		return fmt.Errorf("unknown gateway type: %s (supported: %s, %s, %s)", c.Gateway.Type, GatewayTypeHTTP, GatewayTypeFile, GatewayTypeMemory)
	}

	if c.Cache.TTL < 0 {
		return errors.New("cache ttl cannot be negative")
	}
	if c.Cache.RefreshInterval < 0 {
		return errors.New("cache refresh interval cannot be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrViperPort prefers the plain env var (as set by most PaaS hosts) over the viper key.
func getEnvOrViperPort(v *viper.Viper, envKey, viperKey string) (int, error) {
	if raw := os.Getenv(envKey); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", envKey, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}
