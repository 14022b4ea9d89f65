package connection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bassista/go_connsync/internal/analytics"
	"github.com/bassista/go_connsync/internal/cache"
	"github.com/bassista/go_connsync/internal/model"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWorkspace = "ws-1"

var errBackend = errors.New("backend unavailable")

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) List(ctx context.Context, workspaceID string) (model.ConnectionList, error) {
	args := m.Called(ctx, workspaceID)
	return args.Get(0).(model.ConnectionList), args.Error(1)
}

func (m *mockGateway) Get(ctx context.Context, connectionID string, withRefresh bool) (model.Connection, error) {
	args := m.Called(ctx, connectionID, withRefresh)
	return args.Get(0).(model.Connection), args.Error(1)
}

func (m *mockGateway) Create(ctx context.Context, req model.ConnectionCreateRequest) (model.Connection, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Connection), args.Error(1)
}

func (m *mockGateway) Update(ctx context.Context, req model.ConnectionUpdateRequest) (model.Connection, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Connection), args.Error(1)
}

func (m *mockGateway) Delete(ctx context.Context, connectionID string) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func (m *mockGateway) Sync(ctx context.Context, connectionID string) (model.JobInfo, error) {
	args := m.Called(ctx, connectionID)
	return args.Get(0).(model.JobInfo), args.Error(1)
}

func (m *mockGateway) Reset(ctx context.Context, connectionID string) (model.JobInfo, error) {
	args := m.Called(ctx, connectionID)
	return args.Get(0).(model.JobInfo), args.Error(1)
}

func (m *mockGateway) GetState(ctx context.Context, connectionID string) (model.ConnectionState, error) {
	args := m.Called(ctx, connectionID)
	return args.Get(0).(model.ConnectionState), args.Error(1)
}

type trackedEvent struct {
	Namespace analytics.Namespace
	Action    analytics.Action
	Props     analytics.Properties
}

// recordingTracker keeps every event; it can be told to fail or panic after recording.
type recordingTracker struct {
	mu     sync.Mutex
	events []trackedEvent
	err    error
	panics bool
}

func (r *recordingTracker) Track(namespace analytics.Namespace, action analytics.Action, props analytics.Properties) error {
	r.mu.Lock()
	r.events = append(r.events, trackedEvent{Namespace: namespace, Action: action, Props: props})
	r.mu.Unlock()
	if r.panics {
		panic("tracker exploded")
	}
	return r.err
}

func (r *recordingTracker) Events() []trackedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]trackedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func newTestService(t *testing.T) (*Service, *mockGateway, *recordingTracker, *cache.Store) {
	t.Helper()
	store := cache.NewStore(0)
	gw := &mockGateway{}
	tracker := &recordingTracker{}
	svc, err := NewService(store, gw, tracker, testWorkspace)
	require.NoError(t, err)
	t.Cleanup(func() { gw.AssertExpectations(t) })
	return svc, gw, tracker, store
}

func conn(id string, status model.ConnectionStatus) model.Connection {
	return model.Connection{
		ConnectionID: id,
		Name:         "conn " + id,
		Status:       status,
		Source: model.SourceRef{
			SourceID: "src-" + id, SourceName: "postgres", SourceDefinitionID: "def-src",
		},
		Destination: model.DestinationRef{
			DestinationID: "dst-" + id, DestinationName: "bigquery", DestinationDefinitionID: "def-dst",
		},
		ScheduleType: model.ScheduleBasic,
		ScheduleData: &model.ScheduleData{BasicSchedule: &model.BasicSchedule{TimeUnit: "hours", Units: 24}},
	}
}

func listOf(conns ...model.Connection) model.ConnectionList {
	if conns == nil {
		conns = []model.Connection{}
	}
	return model.ConnectionList{Connections: conns}
}

func cachedList(t *testing.T, store *cache.Store) model.ConnectionList {
	t.Helper()
	list, ok := cache.GetAs[model.ConnectionList](store, Keys.Lists())
	require.True(t, ok, "expected a cached connection list")
	return list
}

// snapshot captures every key a connection mutation can touch.
func snapshot(store *cache.Store, ids ...string) map[string]any {
	keys := []cache.Key{Keys.Lists()}
	for _, id := range ids {
		keys = append(keys, Keys.Detail(id), Keys.GetState(id))
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := store.Get(k); ok {
			out[k.String()] = v
		}
	}
	return out
}
