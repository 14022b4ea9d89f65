package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/go_connsync/internal/analytics"
	"github.com/bassista/go_connsync/internal/cache"
	"github.com/bassista/go_connsync/internal/config"
	"github.com/bassista/go_connsync/internal/connection"
	"github.com/bassista/go_connsync/internal/gateway"
	"github.com/bassista/go_connsync/internal/logger"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config      *config.Config
	Gateway     gateway.Gateway
	Cache       *cache.Store
	Connections *connection.Service

	BaseCtx context.Context
	Cancel  context.CancelFunc
}

func New(cfg *config.Config, gw gateway.Gateway, store *cache.Store, tracker analytics.Tracker) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if gw == nil {
		return nil, errors.New("gateway is nil")
	}
	if store == nil {
		return nil, errors.New("cache store is nil")
	}

	svc, err := connection.NewService(store, gw, tracker, cfg.Gateway.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("init connection service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:      cfg,
		Gateway:     gw,
		Cache:       store,
		Connections: svc,
		BaseCtx:     ctx,
		Cancel:      cancel,
	}, nil
}

// Shutdown stops the background goroutines and drops every cached entry.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.Cache != nil {
		a.Cache.Close()
	}
}

// StartWatchers starts the cache janitor, the data file watcher when the gateway has one,
// and the list refresher when an interval is configured. All of them stop with BaseCtx.
func (a *App) StartWatchers() error {
	a.Cache.Start()

	if w, ok := a.Gateway.(gateway.Watcher); ok {
		err := w.StartWatcher(a.BaseCtx, func() {
			a.Connections.ResetWorkspaceScope()
		})
		if err != nil {
			return fmt.Errorf("cannot start data file watcher: %w", err)
		}
		logger.WithComponent("app").Infof("watching gateway data for external changes")
	}

	if interval := a.Config.Cache.RefreshInterval; interval > 0 {
		a.Connections.StartListRefresher(a.BaseCtx, interval)
	}
	return nil
}
