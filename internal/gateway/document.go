package gateway

import (
	"fmt"

	"github.com/bassista/go_connsync/internal/model"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"
)

// Metadata holds versioning info used to tell our own file writes from external edits.
type Metadata struct {
	LastUpdate int64 `json:"lastUpdate"` // Unix timestamp in milliseconds
}

// DataDocument is the connection backend state kept by the memory and file gateways.
type DataDocument struct {
	Metadata    Metadata                `json:"metadata"`
	Connections []model.Connection      `json:"connections" validate:"dive"`
	States      []model.ConnectionState `json:"states"`
	Jobs        []model.JobRead         `json:"jobs"`
}

// ApplyDefaults sets fallback values after decode.
func (d *DataDocument) ApplyDefaults() {
	if d.Connections == nil {
		d.Connections = []model.Connection{}
	}
	if d.States == nil {
		d.States = []model.ConnectionState{}
	}
	if d.Jobs == nil {
		d.Jobs = []model.JobRead{}
	}
	for i := range d.Connections {
		d.Connections[i].ApplyDefaults()
	}
}

func (d *DataDocument) indexOf(connectionID string) int {
	for i := range d.Connections {
		if d.Connections[i].ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

func (d *DataDocument) list(workspaceID string) model.ConnectionList {
	out := model.ConnectionList{Connections: []model.Connection{}}
	for _, c := range d.Connections {
		if c.Status == model.StatusDeprecated {
			continue
		}
		if workspaceID != "" && c.Source.WorkspaceID != "" && c.Source.WorkspaceID != workspaceID {
			continue
		}
		out.Connections = append(out.Connections, c)
	}
	return out
}

func (d *DataDocument) get(connectionID string) (model.Connection, error) {
	idx := d.indexOf(connectionID)
	if idx < 0 {
		return model.Connection{}, notFound(connectionID)
	}
	return d.Connections[idx], nil
}

// create appends a new connection. Source and destination refs are borrowed from any
// existing connection that uses the same ids.
func (d *DataDocument) create(req model.ConnectionCreateRequest, workspaceID string) (model.Connection, error) {
	if err := model.Validate(req); err != nil {
		return model.Connection{}, invalid(err)
	}

	conn := model.Connection{
		ConnectionID:        uuid.NewString(),
		Name:                req.Name,
		SourceID:            req.SourceID,
		DestinationID:       req.DestinationID,
		Source:              model.SourceRef{SourceID: req.SourceID, WorkspaceID: workspaceID},
		Destination:         model.DestinationRef{DestinationID: req.DestinationID, WorkspaceID: workspaceID},
		Status:              req.Status,
		ScheduleType:        req.ScheduleType,
		ScheduleData:        req.ScheduleData,
		NamespaceDefinition: req.NamespaceDefinition,
		NamespaceFormat:     req.NamespaceFormat,
		Prefix:              req.Prefix,
		SyncCatalog:         req.SyncCatalog,
		Operations:          req.Operations,
		CatalogID:           req.SourceCatalogID,
	}
	for _, existing := range d.Connections {
		if existing.Source.SourceID == req.SourceID {
			conn.Source = existing.Source
		}
		if existing.Destination.DestinationID == req.DestinationID {
			conn.Destination = existing.Destination
		}
	}
	if conn.Name == "" {
		conn.Name = fmt.Sprintf("%s -> %s", nameOr(conn.Source.Name, req.SourceID), nameOr(conn.Destination.Name, req.DestinationID))
	}
	conn.ApplyDefaults()

	d.Connections = append(d.Connections, conn)
	return conn, nil
}

func (d *DataDocument) update(req model.ConnectionUpdateRequest) (model.Connection, error) {
	if err := model.Validate(req); err != nil {
		return model.Connection{}, invalid(err)
	}
	idx := d.indexOf(req.ConnectionID)
	if idx < 0 {
		return model.Connection{}, notFound(req.ConnectionID)
	}
	updated := d.Connections[idx]
	req.ApplyTo(&updated)
	updated.ApplyDefaults()
	d.Connections[idx] = updated
	return updated, nil
}

func (d *DataDocument) remove(connectionID string) error {
	idx := d.indexOf(connectionID)
	if idx < 0 {
		return notFound(connectionID)
	}
	d.Connections = append(d.Connections[:idx:idx], d.Connections[idx+1:]...)
	d.dropState(connectionID)
	return nil
}

// startJob records a pending job for an active connection.
func (d *DataDocument) startJob(connectionID string, configType model.JobConfigType) (model.JobInfo, error) {
	conn, err := d.get(connectionID)
	if err != nil {
		return model.JobInfo{}, err
	}
	if conn.Status == model.StatusDeprecated {
		return model.JobInfo{}, fmt.Errorf("connection %s is deprecated: %w", connectionID, errdefs.ErrFailedPrecondition)
	}

	var nextID int64 = 1
	for _, j := range d.Jobs {
		if j.ID >= nextID {
			nextID = j.ID + 1
		}
	}
	info := model.NewPendingJob(nextID, configType, connectionID)
	d.Jobs = append(d.Jobs, info.Job)

	if configType == model.JobResetConnection {
		d.dropState(connectionID)
	}
	return info, nil
}

func (d *DataDocument) state(connectionID string) (model.ConnectionState, error) {
	if d.indexOf(connectionID) < 0 {
		return model.ConnectionState{}, notFound(connectionID)
	}
	for _, s := range d.States {
		if s.ConnectionID == connectionID {
			return s, nil
		}
	}
	return model.ConnectionState{ConnectionID: connectionID, StateType: model.StateNotSet}, nil
}

func (d *DataDocument) dropState(connectionID string) {
	kept := make([]model.ConnectionState, 0, len(d.States))
	for _, s := range d.States {
		if s.ConnectionID != connectionID {
			kept = append(kept, s)
		}
	}
	d.States = kept
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
