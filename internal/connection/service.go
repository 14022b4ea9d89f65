package connection

import (
	"context"
	"errors"
	"time"

	"github.com/bassista/go_connsync/internal/analytics"
	"github.com/bassista/go_connsync/internal/cache"
	"github.com/bassista/go_connsync/internal/gateway"
	"github.com/bassista/go_connsync/internal/logger"
	"github.com/bassista/go_connsync/internal/model"
)

// Service reads connections through the cache and keeps the cache in step with every
// mutation it performs. All state lives in the injected store.
type Service struct {
	store       *cache.Store
	gateway     gateway.Gateway
	tracker     analytics.Tracker
	workspaceID string

	Create *Mutation[CreateConnectionInput, model.Connection]
	Update *Mutation[model.ConnectionUpdateRequest, model.Connection]
	Delete *Mutation[model.Connection, struct{}]
	Enable *Mutation[EnableInput, model.Connection]
	Sync   *Mutation[model.Connection, model.JobInfo]
	Reset  *Mutation[string, model.JobInfo]
}

// NewService wires the query and mutation layer. A nil tracker disables analytics.
func NewService(store *cache.Store, gw gateway.Gateway, tracker analytics.Tracker, workspaceID string) (*Service, error) {
	if store == nil {
		return nil, errors.New("cache store is nil")
	}
	if gw == nil {
		return nil, errors.New("gateway is nil")
	}
	if tracker == nil {
		tracker = analytics.NoopTracker{}
	}

	s := &Service{
		store:       store,
		gateway:     gw,
		tracker:     tracker,
		workspaceID: workspaceID,
	}
	s.Create = s.newCreateMutation()
	s.Update = s.newUpdateMutation()
	s.Delete = s.newDeleteMutation()
	s.Enable = s.newEnableMutation()
	s.Sync = s.newSyncMutation()
	s.Reset = s.newResetMutation()
	return s, nil
}

// WorkspaceID is the workspace whose connections are listed.
func (s *Service) WorkspaceID() string {
	return s.workspaceID
}

// StartListRefresher periodically replaces a cached connection list with the server's copy,
// so local patches (a prepend after create, say) cannot mask server truth for long.
func (s *Service) StartListRefresher(ctx context.Context, interval time.Duration) <-chan struct{} {
	return cache.StartRefreshScheduler(ctx, s.store, Keys.Lists(), func(ctx context.Context) (any, error) {
		return s.gateway.List(ctx, s.workspaceID)
	}, interval)
}

// ResetWorkspaceScope drops every cached entry of the workspace.
func (s *Service) ResetWorkspaceScope() int {
	n := s.store.RemovePrefix(cache.NewKey(ScopeWorkspace))
	logger.WithComponent("connections").Infof("workspace scope reset, %d cached entries dropped", n)
	return n
}

// emit sends one analytics event. Tracker errors and panics are logged and swallowed.
func (s *Service) emit(action analytics.Action, props analytics.Properties) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithComponent("connections").Errorf("analytics tracker panicked on %s: %v", action, r)
		}
	}()
	if err := s.tracker.Track(analytics.NamespaceConnection, action, props); err != nil {
		logger.WithComponent("connections").Warnf("analytics event %s dropped: %v", action, err)
	}
}
