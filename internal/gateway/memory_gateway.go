package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bassista/go_connsync/internal/logger"
	"github.com/bassista/go_connsync/internal/model"
)

// MemoryGateway keeps connection state in memory.
// It is used for development without a backend and in tests.
type MemoryGateway struct {
	mu          sync.RWMutex
	doc         DataDocument
	workspaceID string
}

func NewMemoryGateway(workspaceID string) *MemoryGateway {
	doc := DataDocument{}
	doc.ApplyDefaults()
	return &MemoryGateway{doc: doc, workspaceID: workspaceID}
}

// NewMemoryGatewayFromDocument seeds the gateway with a copy of doc.
func NewMemoryGatewayFromDocument(workspaceID string, doc DataDocument) (*MemoryGateway, error) {
	mg := NewMemoryGateway(workspaceID)
	if err := cloneInto(doc, &mg.doc); err != nil {
		return nil, err
	}
	mg.doc.ApplyDefaults()
	return mg, nil
}

func (m *MemoryGateway) List(_ context.Context, workspaceID string) (model.ConnectionList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.doc.list(workspaceID)
	logger.WithComponent("memory-gateway").Debugf("listing %d connections for workspace %s", len(list.Connections), workspaceID)
	var out model.ConnectionList
	return out, cloneInto(list, &out)
}

func (m *MemoryGateway) Get(_ context.Context, connectionID string, withRefresh bool) (model.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	logger.WithConnection("memory-gateway", connectionID).Debugf("get connection (refresh=%v)", withRefresh)
	conn, err := m.doc.get(connectionID)
	if err != nil {
		return model.Connection{}, err
	}
	return cloneConnection(conn)
}

func (m *MemoryGateway) Create(_ context.Context, req model.ConnectionCreateRequest) (model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var safe model.ConnectionCreateRequest
	if err := cloneInto(req, &safe); err != nil {
		return model.Connection{}, err
	}
	conn, err := m.doc.create(safe, m.workspaceID)
	if err != nil {
		return model.Connection{}, err
	}
	logger.WithConnection("memory-gateway", conn.ConnectionID).Debugf("created connection")
	return cloneConnection(conn)
}

func (m *MemoryGateway) Update(_ context.Context, req model.ConnectionUpdateRequest) (model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var safe model.ConnectionUpdateRequest
	if err := cloneInto(req, &safe); err != nil {
		return model.Connection{}, err
	}
	conn, err := m.doc.update(safe)
	if err != nil {
		return model.Connection{}, err
	}
	logger.WithConnection("memory-gateway", conn.ConnectionID).Debugf("updated connection")
	return cloneConnection(conn)
}

func (m *MemoryGateway) Delete(_ context.Context, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger.WithConnection("memory-gateway", connectionID).Debugf("deleting connection")
	return m.doc.remove(connectionID)
}

func (m *MemoryGateway) Sync(_ context.Context, connectionID string) (model.JobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger.WithConnection("memory-gateway", connectionID).Debugf("starting sync job")
	return m.doc.startJob(connectionID, model.JobSync)
}

func (m *MemoryGateway) Reset(_ context.Context, connectionID string) (model.JobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger.WithConnection("memory-gateway", connectionID).Debugf("starting reset job")
	return m.doc.startJob(connectionID, model.JobResetConnection)
}

func (m *MemoryGateway) GetState(_ context.Context, connectionID string) (model.ConnectionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.state(connectionID)
}

// SetState stores a sync checkpoint, standing in for the backend's sync workers.
func (m *MemoryGateway) SetState(state model.ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.dropState(state.ConnectionID)
	m.doc.States = append(m.doc.States, state)
}

// Jobs returns the jobs started so far.
func (m *MemoryGateway) Jobs() []model.JobRead {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.JobRead, len(m.doc.Jobs))
	copy(out, m.doc.Jobs)
	return out
}

// cloneConnection deep-copies a connection so callers never share slices with the gateway.
func cloneConnection(c model.Connection) (model.Connection, error) {
	var out model.Connection
	err := cloneInto(c, &out)
	return out, err
}

func cloneInto(src, dst any) error {
	bytes, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, dst)
}
