package connection

import (
	"context"
	"errors"
	"testing"

	"github.com/bassista/go_connsync/internal/analytics"
	"github.com/bassista/go_connsync/internal/cache"
	"github.com/bassista/go_connsync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createInput() CreateConnectionInput {
	return CreateConnectionInput{
		Values: model.ConnectionValues{
			Name:                "users sync",
			ScheduleType:        model.ScheduleBasic,
			ScheduleData:        &model.ScheduleData{BasicSchedule: &model.BasicSchedule{TimeUnit: "hours", Units: 1}},
			NamespaceDefinition: model.NamespaceSource,
			SyncCatalog: model.SyncCatalog{Streams: []model.StreamAndConfiguration{
				{Stream: model.Stream{Name: "users"}, Config: &model.StreamConfig{Selected: true}},
				{Stream: model.Stream{Name: "orders"}, Config: &model.StreamConfig{Selected: true}},
				{Stream: model.Stream{Name: "audit"}},
			}},
		},
		Source:                  model.SourceRef{SourceID: "src-b", SourceName: "postgres"},
		Destination:             model.DestinationRef{DestinationID: "dst-b", DestinationName: "bigquery"},
		SourceDefinitionID:      "def-src",
		DestinationDefinitionID: "def-dst",
		SourceCatalogID:         "catalog-1",
	}
}

func TestCreateConnection_PrependsToCachedList(t *testing.T) {
	svc, gw, tracker, store := newTestService(t)
	x, y := conn("x", model.StatusActive), conn("y", model.StatusInactive)
	store.Set(Keys.Lists(), listOf(x, y))

	created := conn("b", model.StatusActive)
	gw.On("Create", mock.Anything, mock.MatchedBy(func(req model.ConnectionCreateRequest) bool {
		return req.SourceID == "src-b" && req.DestinationID == "dst-b" &&
			req.Status == model.StatusActive && req.SourceCatalogID == "catalog-1" &&
			req.Name == "users sync"
	})).Return(created, nil).Once()

	got, err := svc.CreateConnection(context.Background(), createInput())
	require.NoError(t, err)
	assert.Equal(t, created, got)

	list := cachedList(t, store)
	require.Len(t, list.Connections, 3)
	assert.Equal(t, []model.Connection{created, x, y}, list.Connections)

	events := tracker.Events()
	require.Len(t, events, 1)
	assert.Equal(t, analytics.NamespaceConnection, events[0].Namespace)
	assert.Equal(t, analytics.ActionCreate, events[0].Action)
	assert.Equal(t, analytics.Properties{
		"actionDescription":                   "New connection created",
		"frequency":                           "1 hour",
		"connector_source_definition":         "postgres",
		"connector_source_definition_id":      "def-src",
		"connector_destination_definition":    "bigquery",
		"connector_destination_definition_id": "def-dst",
		"available_streams":                   3,
		"enabled_streams":                     2,
	}, events[0].Props)
}

func TestCreateConnection_EmptyListBecomesSingleEntry(t *testing.T) {
	svc, gw, _, store := newTestService(t)
	store.Set(Keys.Lists(), listOf())
	created := conn("b", model.StatusActive)
	gw.On("Create", mock.Anything, mock.Anything).Return(created, nil).Once()

	_, err := svc.CreateConnection(context.Background(), createInput())
	require.NoError(t, err)
	assert.Equal(t, []model.Connection{created}, cachedList(t, store).Connections)
}

func TestCreateConnection_MaterializesListWhenNoneCached(t *testing.T) {
	svc, gw, _, store := newTestService(t)
	created := conn("b", model.StatusActive)
	gw.On("Create", mock.Anything, mock.Anything).Return(created, nil).Once()

	_, err := svc.CreateConnection(context.Background(), createInput())
	require.NoError(t, err)
	assert.Equal(t, []model.Connection{created}, cachedList(t, store).Connections)
}

func TestCreateConnection_DropsDuplicateID(t *testing.T) {
	svc, gw, _, store := newTestService(t)
	created := conn("b", model.StatusActive)
	staleCopy := created
	staleCopy.Name = "seen by a refresh"
	store.Set(Keys.Lists(), listOf(conn("x", model.StatusActive), staleCopy))
	gw.On("Create", mock.Anything, mock.Anything).Return(created, nil).Once()

	_, err := svc.CreateConnection(context.Background(), createInput())
	require.NoError(t, err)

	list := cachedList(t, store)
	require.Len(t, list.Connections, 2)
	assert.Equal(t, created, list.Connections[0])
	assert.Equal(t, "x", list.Connections[1].ConnectionID)
}

func TestUpdateConnection_ReplacesInPlace(t *testing.T) {
	svc, gw, tracker, store := newTestService(t)
	x, a, y := conn("x", model.StatusActive), conn("a", model.StatusActive), conn("y", model.StatusActive)
	store.Set(Keys.Lists(), listOf(x, a, y))

	inactive := model.StatusInactive
	req := model.ConnectionUpdateRequest{ConnectionID: "a", Status: &inactive}
	updated := a
	updated.Status = model.StatusInactive
	gw.On("Update", mock.Anything, req).Return(updated, nil).Once()

	got, err := svc.UpdateConnection(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	list := cachedList(t, store)
	assert.Equal(t, []model.Connection{x, updated, y}, list.Connections)

	detail, ok := cache.GetAs[model.Connection](store, Keys.Detail("a"))
	require.True(t, ok)
	assert.Equal(t, list.Connections[1], detail)

	assert.Empty(t, tracker.Events(), "update is not tracked")
}

func TestUpdateConnection_SingleEntryScenario(t *testing.T) {
	svc, gw, _, store := newTestService(t)
	store.Set(Keys.Lists(), listOf(model.Connection{ConnectionID: "a", Status: model.StatusActive}))

	inactive := model.StatusInactive
	req := model.ConnectionUpdateRequest{ConnectionID: "a", Status: &inactive}
	response := model.Connection{ConnectionID: "a", Status: model.StatusInactive}
	gw.On("Update", mock.Anything, req).Return(response, nil).Once()

	_, err := svc.UpdateConnection(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []model.Connection{response}, cachedList(t, store).Connections)
	detail, _ := cache.GetAs[model.Connection](store, Keys.Detail("a"))
	assert.Equal(t, response, detail)
}

func TestUpdateConnection_NoCachedListOnlyPatchesDetail(t *testing.T) {
	svc, gw, _, store := newTestService(t)
	updated := conn("a", model.StatusActive)
	gw.On("Update", mock.Anything, mock.Anything).Return(updated, nil).Once()

	_, err := svc.UpdateConnection(context.Background(), model.ConnectionUpdateRequest{ConnectionID: "a", Name: new(string)})
	require.NoError(t, err)

	_, ok := store.Get(Keys.Lists())
	assert.False(t, ok, "update must not materialize a list")
	_, ok = store.Get(Keys.Detail("a"))
	assert.True(t, ok)
}

func TestUpdateConnection_EntryMissingFromListIsNoop(t *testing.T) {
	svc, gw, _, store := newTestService(t)
	x := conn("x", model.StatusActive)
	store.Set(Keys.Lists(), listOf(x))
	gw.On("Update", mock.Anything, mock.Anything).Return(conn("a", model.StatusActive), nil).Once()

	_, err := svc.UpdateConnection(context.Background(), model.ConnectionUpdateRequest{ConnectionID: "a"})
	require.NoError(t, err)
	assert.Equal(t, []model.Connection{x}, cachedList(t, store).Connections)
}

func TestDeleteConnection_RemovesDetailAndListEntry(t *testing.T) {
	svc, gw, tracker, store := newTestService(t)
	a := conn("a", model.StatusActive)
	store.Set(Keys.Lists(), listOf(a))
	store.Set(Keys.Detail("a"), a)
	gw.On("Delete", mock.Anything, "a").Return(nil).Once()

	require.NoError(t, svc.DeleteConnection(context.Background(), a))

	assert.Empty(t, cachedList(t, store).Connections)
	_, ok := store.Get(Keys.Detail("a"))
	assert.False(t, ok)

	events := tracker.Events()
	require.Len(t, events, 1)
	assert.Equal(t, analytics.ActionDelete, events[0].Action)
	assert.Equal(t, "Connection deleted", events[0].Props["actionDescription"])
	assert.Equal(t, "postgres", events[0].Props["connector_source"])
	assert.Equal(t, "def-dst", events[0].Props["connector_destination_definition_id"])

	// a later read goes back to the backend
	gw.On("Get", mock.Anything, "a", false).Return(model.Connection{}, errBackend).Once()
	_, err := svc.GetConnection(context.Background(), "a")
	assert.ErrorIs(t, err, errBackend)
}

func TestDeleteConnection_ToleratesMissingList(t *testing.T) {
	svc, gw, _, store := newTestService(t)
	gw.On("Delete", mock.Anything, "a").Return(nil).Once()

	require.NoError(t, svc.DeleteConnection(context.Background(), conn("a", model.StatusActive)))
	_, ok := store.Get(Keys.Lists())
	assert.False(t, ok)
}

func TestEnableConnection_ActionFollowsResultingStatus(t *testing.T) {
	tests := []struct {
		name      string
		enable    bool
		sent      model.ConnectionStatus
		resulting model.ConnectionStatus
		want      analytics.Action
	}{
		{"enable", true, model.StatusActive, model.StatusActive, analytics.ActionReenable},
		{"disable", false, model.StatusInactive, model.StatusInactive, analytics.ActionDisable},
		{"enable refused by backend", true, model.StatusActive, model.StatusInactive, analytics.ActionDisable},
		{"disable ignored by backend", false, model.StatusInactive, model.StatusActive, analytics.ActionReenable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, gw, tracker, store := newTestService(t)
			a := conn("a", model.StatusDeprecated)
			store.Set(Keys.Lists(), listOf(a))

			sent := tt.sent
			result := a
			result.Status = tt.resulting
			gw.On("Update", mock.Anything, model.ConnectionUpdateRequest{ConnectionID: "a", Status: &sent}).Return(result, nil).Once()

			got, err := svc.EnableConnection(context.Background(), "a", tt.enable)
			require.NoError(t, err)
			assert.Equal(t, tt.resulting, got.Status)

			// update's patch applies
			assert.Equal(t, []model.Connection{result}, cachedList(t, store).Connections)
			detail, _ := cache.GetAs[model.Connection](store, Keys.Detail("a"))
			assert.Equal(t, result, detail)

			events := tracker.Events()
			require.Len(t, events, 1)
			assert.Equal(t, tt.want, events[0].Action)
			assert.Equal(t, "24 hours", events[0].Props["frequency"])
			assert.Equal(t, "bigquery", events[0].Props["connector_destination"])
		})
	}
}

func TestSyncConnection_TracksWithoutPatching(t *testing.T) {
	svc, gw, tracker, store := newTestService(t)
	a := conn("a", model.StatusActive)
	store.Set(Keys.Lists(), listOf(a))
	before := snapshot(store, "a")
	job := model.NewPendingJob(1, model.JobSync, "a")
	gw.On("Sync", mock.Anything, "a").Return(job, nil).Once()

	got, err := svc.SyncConnection(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, job, got)
	assert.Equal(t, before, snapshot(store, "a"))

	events := tracker.Events()
	require.Len(t, events, 1)
	assert.Equal(t, analytics.ActionSync, events[0].Action)
	assert.Equal(t, "Manual triggered sync", events[0].Props["actionDescription"])
	assert.Equal(t, "def-src", events[0].Props["connector_source_definition_id"])
}

func TestResetConnection_NoPatchNoEvent(t *testing.T) {
	svc, gw, tracker, store := newTestService(t)
	store.Set(Keys.Lists(), listOf(conn("a", model.StatusActive)))
	store.Set(Keys.GetState("a"), model.ConnectionState{ConnectionID: "a", StateType: model.StateLegacy})
	before := snapshot(store, "a")
	job := model.NewPendingJob(2, model.JobResetConnection, "a")
	gw.On("Reset", mock.Anything, "a").Return(job, nil).Once()

	got, err := svc.ResetConnection(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, job, got)
	assert.Equal(t, before, snapshot(store, "a"))
	assert.Empty(t, tracker.Events())
}

func TestFailedMutations_LeaveCacheAndAnalyticsUntouched(t *testing.T) {
	a := conn("a", model.StatusActive)

	tests := []struct {
		name   string
		setup  func(gw *mockGateway)
		invoke func(svc *Service) error
	}{
		{"create", func(gw *mockGateway) {
			gw.On("Create", mock.Anything, mock.Anything).Return(model.Connection{}, errBackend).Once()
		}, func(svc *Service) error {
			_, err := svc.CreateConnection(context.Background(), createInput())
			return err
		}},
		{"update", func(gw *mockGateway) {
			gw.On("Update", mock.Anything, mock.Anything).Return(model.Connection{}, errBackend).Once()
		}, func(svc *Service) error {
			_, err := svc.UpdateConnection(context.Background(), model.ConnectionUpdateRequest{ConnectionID: "a"})
			return err
		}},
		{"delete", func(gw *mockGateway) {
			gw.On("Delete", mock.Anything, "a").Return(errBackend).Once()
		}, func(svc *Service) error {
			return svc.DeleteConnection(context.Background(), a)
		}},
		{"enable", func(gw *mockGateway) {
			gw.On("Update", mock.Anything, mock.Anything).Return(model.Connection{}, errBackend).Once()
		}, func(svc *Service) error {
			_, err := svc.EnableConnection(context.Background(), "a", false)
			return err
		}},
		{"sync", func(gw *mockGateway) {
			gw.On("Sync", mock.Anything, "a").Return(model.JobInfo{}, errBackend).Once()
		}, func(svc *Service) error {
			_, err := svc.SyncConnection(context.Background(), a)
			return err
		}},
		{"reset", func(gw *mockGateway) {
			gw.On("Reset", mock.Anything, "a").Return(model.JobInfo{}, errBackend).Once()
		}, func(svc *Service) error {
			_, err := svc.ResetConnection(context.Background(), "a")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, gw, tracker, store := newTestService(t)
			store.Set(Keys.Lists(), listOf(a, conn("x", model.StatusInactive)))
			store.Set(Keys.Detail("a"), a)
			before := snapshot(store, "a", "b")
			tt.setup(gw)

			err := tt.invoke(svc)
			assert.ErrorIs(t, err, errBackend, "gateway error is surfaced verbatim")
			assert.Equal(t, before, snapshot(store, "a", "b"))
			assert.Empty(t, tracker.Events())
		})
	}
}

func TestRemoveConnectionsFromList_IsIdempotent(t *testing.T) {
	svc, _, _, store := newTestService(t)
	x, y, z := conn("x", model.StatusActive), conn("y", model.StatusActive), conn("z", model.StatusActive)
	store.Set(Keys.Lists(), listOf(x, y, z))

	svc.RemoveConnectionsFromList([]string{"y"})
	once := cachedList(t, store)
	svc.RemoveConnectionsFromList([]string{"y"})
	twice := cachedList(t, store)

	assert.Equal(t, []model.Connection{x, z}, once.Connections)
	assert.Equal(t, once, twice)

	svc.RemoveConnectionsFromList([]string{"x", "z", "unknown"})
	assert.Empty(t, cachedList(t, store).Connections)
}

func TestRemoveConnectionsFromList_NoCachedList(t *testing.T) {
	svc, _, _, store := newTestService(t)
	svc.RemoveConnectionsFromList([]string{"a"})
	_, ok := store.Get(Keys.Lists())
	assert.False(t, ok)
}

func TestTrackerFailureDoesNotFailMutation(t *testing.T) {
	for _, tt := range []struct {
		name    string
		tracker *recordingTracker
	}{
		{"error", &recordingTracker{err: errors.New("analytics down")}},
		{"panic", &recordingTracker{panics: true}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.NewStore(0)
			gw := &mockGateway{}
			svc, err := NewService(store, gw, tt.tracker, testWorkspace)
			require.NoError(t, err)

			created := conn("b", model.StatusActive)
			gw.On("Create", mock.Anything, mock.Anything).Return(created, nil).Once()

			got, err := svc.CreateConnection(context.Background(), createInput())
			require.NoError(t, err)
			assert.Equal(t, created, got)
			assert.Equal(t, []model.Connection{created}, cachedList(t, store).Connections, "patch is kept")
			assert.Len(t, tt.tracker.Events(), 1)
			gw.AssertExpectations(t)
		})
	}
}

func TestMutate_CallbacksRunAfterPatch(t *testing.T) {
	svc, gw, tracker, store := newTestService(t)
	a := conn("a", model.StatusActive)
	store.Set(Keys.Lists(), listOf(a))
	gw.On("Delete", mock.Anything, "a").Return(nil).Once()

	var sawList model.ConnectionList
	var sawEvents int
	_, err := svc.Delete.Mutate(context.Background(), a, Callbacks[struct{}]{
		OnSuccess: func(struct{}) {
			sawList, _ = cache.GetAs[model.ConnectionList](store, Keys.Lists())
			sawEvents = len(tracker.Events())
		},
		OnError: func(error) { t.Error("unexpected OnError") },
	})
	require.NoError(t, err)
	assert.Empty(t, sawList.Connections)
	assert.Equal(t, 1, sawEvents)
}

func TestMutate_OnError(t *testing.T) {
	svc, gw, _, _ := newTestService(t)
	gw.On("Reset", mock.Anything, "a").Return(model.JobInfo{}, errBackend).Once()

	var got error
	_, err := svc.Reset.Mutate(context.Background(), "a", Callbacks[model.JobInfo]{
		OnSuccess: func(model.JobInfo) { t.Error("unexpected OnSuccess") },
		OnError:   func(err error) { got = err },
	})
	assert.ErrorIs(t, err, errBackend)
	assert.ErrorIs(t, got, errBackend)
}

func TestMutateAsync(t *testing.T) {
	svc, gw, _, store := newTestService(t)
	created := conn("b", model.StatusActive)
	gw.On("Create", mock.Anything, mock.Anything).Return(created, nil).Once()

	future := svc.Create.MutateAsync(context.Background(), createInput())
	got, err := future.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, ready, _ := future.Poll()
	assert.True(t, ready)
	assert.Equal(t, []model.Connection{created}, cachedList(t, store).Connections)
}
