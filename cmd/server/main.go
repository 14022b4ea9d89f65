package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/bassista/go_connsync/internal/analytics"
	route "github.com/bassista/go_connsync/internal/api/route"
	appctx "github.com/bassista/go_connsync/internal/app"
	"github.com/bassista/go_connsync/internal/cache"
	"github.com/bassista/go_connsync/internal/config"
	"github.com/bassista/go_connsync/internal/gateway"
	"github.com/bassista/go_connsync/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/enrichman/httpgrace"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	// Set log level from configuration
	logLevel, err := logrus.ParseLevel(cfg.Misc.LogLevel)
	if err != nil {
		logger.WithComponent("main").Warnf("invalid log level '%s', using 'info': %v", cfg.Misc.LogLevel, err)
		logLevel = logrus.InfoLevel
	}
	logger.Logger.SetLevel(logLevel)
	logger.WithComponent("main").Debugf("log level set to: %s", logLevel.String())
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)
	logger.WithComponent("main").Infof("Using %s gateway for workspace %s", cfg.Gateway.Type, cfg.Gateway.WorkspaceID)

	gw, err := gateway.NewGatewayFromConfig(cfg.Gateway)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init gateway: %v", err)
	}

	cacheStore := cache.NewStore(cfg.Cache.TTL)

	tracker, err := newTracker(cfg.Analytics)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init analytics: %v", err)
	}

	app, err := appctx.New(cfg, gw, cacheStore, tracker)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		logger.WithComponent("main").Fatalf("cannot start watchers: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := route.SetupRoutes(app, logger.Logger)
	mainSrv := createGraceHttpServer(app.BaseCtx, "main-server", app.Config.Server, r)

	if err := mainSrv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Error(err)
	}
}

func newTracker(cfg config.AnalyticsConfig) (analytics.Tracker, error) {
	if !cfg.Enabled {
		logger.WithComponent("main").Info("analytics disabled")
		return analytics.NoopTracker{}, nil
	}
	t, err := analytics.NewLogTracker(logger.Logger)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
