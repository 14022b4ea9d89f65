package gateway

import (
	"context"

	"github.com/bassista/go_connsync/internal/model"
)

// Gateway performs the network calls behind every connection query and mutation.
// Implementations return errors classified with github.com/containerd/errdefs.
type Gateway interface {
	List(ctx context.Context, workspaceID string) (model.ConnectionList, error)
	Get(ctx context.Context, connectionID string, withRefresh bool) (model.Connection, error)
	Create(ctx context.Context, req model.ConnectionCreateRequest) (model.Connection, error)
	Update(ctx context.Context, req model.ConnectionUpdateRequest) (model.Connection, error)
	Delete(ctx context.Context, connectionID string) error
	Sync(ctx context.Context, connectionID string) (model.JobInfo, error)
	Reset(ctx context.Context, connectionID string) (model.JobInfo, error)
	GetState(ctx context.Context, connectionID string) (model.ConnectionState, error)
}

// Watcher is implemented by gateways whose data can change behind the service's back.
// onChange is called after an external change has been observed.
type Watcher interface {
	StartWatcher(ctx context.Context, onChange func()) error
}
