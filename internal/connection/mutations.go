package connection

import (
	"context"

	"github.com/bassista/go_connsync/internal/analytics"
	"github.com/bassista/go_connsync/internal/cache"
	"github.com/bassista/go_connsync/internal/logger"
	"github.com/bassista/go_connsync/internal/model"
)

// CreateConnectionInput carries the form values and the connectors being paired.
// Definition ids are optional and only reported to analytics.
type CreateConnectionInput struct {
	Values                  model.ConnectionValues
	Source                  model.SourceRef
	Destination             model.DestinationRef
	SourceDefinitionID      string
	DestinationDefinitionID string
	SourceCatalogID         string
}

// EnableInput switches a connection between active and inactive.
type EnableInput struct {
	ConnectionID string
	Enable       bool
}

func (s *Service) newCreateMutation() *Mutation[CreateConnectionInput, model.Connection] {
	return &Mutation[CreateConnectionInput, model.Connection]{
		name:    "create connection",
		service: s,
		call: func(ctx context.Context, in CreateConnectionInput) (model.Connection, error) {
			return s.gateway.Create(ctx, model.ConnectionCreateRequest{
				SourceID:         in.Source.SourceID,
				DestinationID:    in.Destination.DestinationID,
				Status:           model.StatusActive,
				SourceCatalogID:  in.SourceCatalogID,
				ConnectionValues: in.Values,
			})
		},
		patch: func(_ CreateConnectionInput, created model.Connection) {
			s.prependToList(created)
		},
		event: func(in CreateConnectionInput, _ model.Connection) (analytics.Action, analytics.Properties) {
			return analytics.ActionCreate, analytics.Properties{
				"actionDescription":                   "New connection created",
				"frequency":                           analytics.FrequencyType(basicSchedule(in.Values.ScheduleData)),
				"connector_source_definition":         in.Source.SourceName,
				"connector_source_definition_id":      in.SourceDefinitionID,
				"connector_destination_definition":    in.Destination.DestinationName,
				"connector_destination_definition_id": in.DestinationDefinitionID,
				"available_streams":                   len(in.Values.SyncCatalog.Streams),
				"enabled_streams":                     in.Values.SyncCatalog.EnabledStreams(),
			}
		},
	}
}

func (s *Service) newUpdateMutation() *Mutation[model.ConnectionUpdateRequest, model.Connection] {
	return &Mutation[model.ConnectionUpdateRequest, model.Connection]{
		name:    "update connection",
		service: s,
		call:    s.gateway.Update,
		patch: func(_ model.ConnectionUpdateRequest, updated model.Connection) {
			s.storeUpdated(updated)
		},
	}
}

func (s *Service) newDeleteMutation() *Mutation[model.Connection, struct{}] {
	return &Mutation[model.Connection, struct{}]{
		name:    "delete connection",
		service: s,
		call: func(ctx context.Context, conn model.Connection) (struct{}, error) {
			return struct{}{}, s.gateway.Delete(ctx, conn.ConnectionID)
		},
		patch: func(conn model.Connection, _ struct{}) {
			s.store.Remove(Keys.Detail(conn.ConnectionID))
			s.filterList([]string{conn.ConnectionID})
		},
		event: func(conn model.Connection, _ struct{}) (analytics.Action, analytics.Properties) {
			props := analytics.ConnectorProperties(conn)
			props["actionDescription"] = "Connection deleted"
			return analytics.ActionDelete, props
		},
	}
}

// newEnableMutation delegates to the update mutation, so the cache is patched exactly as for an update.
func (s *Service) newEnableMutation() *Mutation[EnableInput, model.Connection] {
	return &Mutation[EnableInput, model.Connection]{
		name:    "enable connection",
		service: s,
		call: func(ctx context.Context, in EnableInput) (model.Connection, error) {
			status := model.StatusInactive
			if in.Enable {
				status = model.StatusActive
			}
			return s.Update.Mutate(ctx, model.ConnectionUpdateRequest{ConnectionID: in.ConnectionID, Status: &status})
		},
		event: func(_ EnableInput, conn model.Connection) (analytics.Action, analytics.Properties) {
			action := analytics.ActionDisable
			if conn.Status == model.StatusActive {
				action = analytics.ActionReenable
			}
			props := analytics.ConnectorProperties(conn)
			props["frequency"] = analytics.FrequencyType(conn.BasicSchedule())
			return action, props
		},
	}
}

func (s *Service) newSyncMutation() *Mutation[model.Connection, model.JobInfo] {
	return &Mutation[model.Connection, model.JobInfo]{
		name:    "sync connection",
		service: s,
		call: func(ctx context.Context, conn model.Connection) (model.JobInfo, error) {
			return s.gateway.Sync(ctx, conn.ConnectionID)
		},
		event: func(conn model.Connection, _ model.JobInfo) (analytics.Action, analytics.Properties) {
			props := analytics.ConnectorProperties(conn)
			props["actionDescription"] = "Manual triggered sync"
			props["frequency"] = analytics.FrequencyType(conn.BasicSchedule())
			return analytics.ActionSync, props
		},
	}
}

func (s *Service) newResetMutation() *Mutation[string, model.JobInfo] {
	return &Mutation[string, model.JobInfo]{
		name:    "reset connection",
		service: s,
		call:    s.gateway.Reset,
	}
}

// CreateConnection creates an active connection and prepends it to the cached list.
func (s *Service) CreateConnection(ctx context.Context, in CreateConnectionInput) (model.Connection, error) {
	return s.Create.Mutate(ctx, in)
}

// UpdateConnection applies a partial update and refreshes the cached detail and list entry.
func (s *Service) UpdateConnection(ctx context.Context, req model.ConnectionUpdateRequest) (model.Connection, error) {
	return s.Update.Mutate(ctx, req)
}

// DeleteConnection deletes conn and drops it from the cache.
func (s *Service) DeleteConnection(ctx context.Context, conn model.Connection) error {
	_, err := s.Delete.Mutate(ctx, conn)
	return err
}

// EnableConnection sets the connection active or inactive.
func (s *Service) EnableConnection(ctx context.Context, connectionID string, enable bool) (model.Connection, error) {
	return s.Enable.Mutate(ctx, EnableInput{ConnectionID: connectionID, Enable: enable})
}

// SyncConnection starts a manual sync job.
func (s *Service) SyncConnection(ctx context.Context, conn model.Connection) (model.JobInfo, error) {
	return s.Sync.Mutate(ctx, conn)
}

// ResetConnection starts a reset job. The cache is left untouched.
func (s *Service) ResetConnection(ctx context.Context, connectionID string) (model.JobInfo, error) {
	return s.Reset.Mutate(ctx, connectionID)
}

// RemoveConnectionsFromList drops the given ids from the cached list without calling the backend.
func (s *Service) RemoveConnectionsFromList(connectionIDs []string) {
	s.filterList(connectionIDs)
}

// prependToList puts conn first in the cached list, creating the list when none is cached.
// An entry with the same id (a refresh that already saw the new connection) is dropped.
func (s *Service) prependToList(conn model.Connection) {
	cache.Update(s.store, Keys.Lists(), func(prev model.ConnectionList, ok bool) model.ConnectionList {
		next := make([]model.Connection, 0, len(prev.Connections)+1)
		next = append(next, conn)
		for _, c := range prev.Connections {
			if c.ConnectionID != conn.ConnectionID {
				next = append(next, c)
			}
		}
		return model.ConnectionList{Connections: next}
	})
}

// storeUpdated overwrites the detail entry and replaces the matching list entry in place.
func (s *Service) storeUpdated(conn model.Connection) {
	s.store.Set(Keys.Detail(conn.ConnectionID), conn)
	patched := cache.PatchAs(s.store, Keys.Lists(), func(prev model.ConnectionList) model.ConnectionList {
		idx := prev.IndexOf(conn.ConnectionID)
		if idx < 0 {
			return prev
		}
		next := make([]model.Connection, len(prev.Connections))
		copy(next, prev.Connections)
		next[idx] = conn
		return model.ConnectionList{Connections: next}
	})
	if !patched {
		logger.WithConnection("connections", conn.ConnectionID).Tracef("no cached list to patch")
	}
}

// filterList removes the given ids from the cached list, if there is one.
func (s *Service) filterList(connectionIDs []string) {
	drop := make(map[string]struct{}, len(connectionIDs))
	for _, id := range connectionIDs {
		drop[id] = struct{}{}
	}
	cache.PatchAs(s.store, Keys.Lists(), func(prev model.ConnectionList) model.ConnectionList {
		next := make([]model.Connection, 0, len(prev.Connections))
		for _, c := range prev.Connections {
			if _, ok := drop[c.ConnectionID]; !ok {
				next = append(next, c)
			}
		}
		return model.ConnectionList{Connections: next}
	})
}

func basicSchedule(data *model.ScheduleData) *model.BasicSchedule {
	if data == nil {
		return nil
	}
	return data.BasicSchedule
}
