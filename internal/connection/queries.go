package connection

import (
	"context"

	"github.com/bassista/go_connsync/internal/cache"
	"github.com/bassista/go_connsync/internal/logger"
	"github.com/bassista/go_connsync/internal/model"
)

// GetConnection returns the cached connection or loads it.
func (s *Service) GetConnection(ctx context.Context, connectionID string) (model.Connection, error) {
	return cache.Fetch(ctx, s.store, Keys.Detail(connectionID), func(ctx context.Context) (model.Connection, error) {
		return s.gateway.Get(ctx, connectionID, false)
	})
}

// RefreshConnectionCatalog asks the backend to rediscover the source schema and returns
// the result. The cached detail entry is left as is; use PrimeConnection to store it.
func (s *Service) RefreshConnectionCatalog(ctx context.Context, connectionID string) (model.Connection, error) {
	logger.WithConnection("connections", connectionID).Debugf("refreshing catalog")
	return s.gateway.Get(ctx, connectionID, true)
}

// PrimeConnection overwrites the cached detail entry for conn.
func (s *Service) PrimeConnection(conn model.Connection) {
	s.store.Set(Keys.Detail(conn.ConnectionID), conn)
}

// GetConnectionList returns the workspace's connections, cached under Keys.Lists().
func (s *Service) GetConnectionList(ctx context.Context) (model.ConnectionList, error) {
	return cache.Fetch(ctx, s.store, Keys.Lists(), func(ctx context.Context) (model.ConnectionList, error) {
		return s.gateway.List(ctx, s.workspaceID)
	})
}

// GetConnectionState returns the connection's sync checkpoint.
func (s *Service) GetConnectionState(ctx context.Context, connectionID string) (model.ConnectionState, error) {
	return cache.Fetch(ctx, s.store, Keys.GetState(connectionID), func(ctx context.Context) (model.ConnectionState, error) {
		return s.gateway.GetState(ctx, connectionID)
	})
}

// GetConnectionAsync runs GetConnection in the background.
func (s *Service) GetConnectionAsync(ctx context.Context, connectionID string) *cache.Future[model.Connection] {
	return cache.Go(ctx, func(ctx context.Context) (model.Connection, error) {
		return s.GetConnection(ctx, connectionID)
	})
}

// GetConnectionListAsync runs GetConnectionList in the background.
func (s *Service) GetConnectionListAsync(ctx context.Context) *cache.Future[model.ConnectionList] {
	return cache.Go(ctx, s.GetConnectionList)
}

// GetConnectionStateAsync runs GetConnectionState in the background.
func (s *Service) GetConnectionStateAsync(ctx context.Context, connectionID string) *cache.Future[model.ConnectionState] {
	return cache.Go(ctx, func(ctx context.Context) (model.ConnectionState, error) {
		return s.GetConnectionState(ctx, connectionID)
	})
}
