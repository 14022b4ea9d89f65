package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bassista/go_connsync/internal/logger"
	"github.com/bassista/go_connsync/internal/model"
	"gopkg.in/resty.v1"
)

const (
	pathListConnections    = "/v1/web_backend/connections/list"
	pathGetConnection      = "/v1/web_backend/connections/get"
	pathCreateConnection   = "/v1/web_backend/connections/create"
	pathUpdateConnection   = "/v1/web_backend/connections/update"
	pathDeleteConnection   = "/v1/connections/delete"
	pathSyncConnection     = "/v1/connections/sync"
	pathResetConnection    = "/v1/connections/reset"
	pathGetConnectionState = "/v1/state/get"
)

type workspaceBody struct {
	WorkspaceID string `json:"workspaceId"`
}

type connectionBody struct {
	ConnectionID string `json:"connectionId"`
}

type getConnectionBody struct {
	ConnectionID         string `json:"connectionId"`
	WithRefreshedCatalog bool   `json:"withRefreshedCatalog"`
}

// HTTPGateway talks to the connection backend over its JSON-over-POST API.
type HTTPGateway struct {
	client *resty.Client
}

// NewHTTPGateway builds a gateway for the API rooted at apiURL.
// authToken is sent as a bearer token when not empty.
func NewHTTPGateway(apiURL, authToken string, timeout time.Duration) (*HTTPGateway, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, errors.New("api url is required")
	}

	client := resty.New().
		SetHostURL(strings.TrimRight(apiURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetLogger(logger.Logger.Writer())
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if authToken != "" {
		client.SetAuthToken(authToken)
	}

	return &HTTPGateway{client: client}, nil
}

// post sends body to path and decodes a 2xx response into out (when out is not nil).
func (g *HTTPGateway) post(ctx context.Context, path string, body, out any) error {
	resp, err := g.client.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("POST %s: %w", path, ctxErr)
		}
		return fmt.Errorf("POST %s: %w", path, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		apiErr := newAPIError(path, resp.StatusCode(), resp.Body())
		logger.WithComponent("http-gateway").Warnf("backend call failed: %v", apiErr)
		return apiErr
	}

	logger.WithComponent("http-gateway").Tracef("POST %s -> %d in %v", path, resp.StatusCode(), resp.Time())

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (g *HTTPGateway) List(ctx context.Context, workspaceID string) (model.ConnectionList, error) {
	var out model.ConnectionList
	if err := g.post(ctx, pathListConnections, workspaceBody{WorkspaceID: workspaceID}, &out); err != nil {
		return model.ConnectionList{}, err
	}
	out.ApplyDefaults()
	return out, nil
}

func (g *HTTPGateway) Get(ctx context.Context, connectionID string, withRefresh bool) (model.Connection, error) {
	var out model.Connection
	body := getConnectionBody{ConnectionID: connectionID, WithRefreshedCatalog: withRefresh}
	if err := g.post(ctx, pathGetConnection, body, &out); err != nil {
		return model.Connection{}, err
	}
	out.ApplyDefaults()
	return out, nil
}

func (g *HTTPGateway) Create(ctx context.Context, req model.ConnectionCreateRequest) (model.Connection, error) {
	if err := model.Validate(req); err != nil {
		return model.Connection{}, invalid(err)
	}
	var out model.Connection
	if err := g.post(ctx, pathCreateConnection, req, &out); err != nil {
		return model.Connection{}, err
	}
	out.ApplyDefaults()
	return out, nil
}

func (g *HTTPGateway) Update(ctx context.Context, req model.ConnectionUpdateRequest) (model.Connection, error) {
	if err := model.Validate(req); err != nil {
		return model.Connection{}, invalid(err)
	}
	var out model.Connection
	if err := g.post(ctx, pathUpdateConnection, req, &out); err != nil {
		return model.Connection{}, err
	}
	out.ApplyDefaults()
	return out, nil
}

func (g *HTTPGateway) Delete(ctx context.Context, connectionID string) error {
	return g.post(ctx, pathDeleteConnection, connectionBody{ConnectionID: connectionID}, nil)
}

func (g *HTTPGateway) Sync(ctx context.Context, connectionID string) (model.JobInfo, error) {
	var out model.JobInfo
	err := g.post(ctx, pathSyncConnection, connectionBody{ConnectionID: connectionID}, &out)
	return out, err
}

func (g *HTTPGateway) Reset(ctx context.Context, connectionID string) (model.JobInfo, error) {
	var out model.JobInfo
	err := g.post(ctx, pathResetConnection, connectionBody{ConnectionID: connectionID}, &out)
	return out, err
}

func (g *HTTPGateway) GetState(ctx context.Context, connectionID string) (model.ConnectionState, error) {
	var out model.ConnectionState
	err := g.post(ctx, pathGetConnectionState, connectionBody{ConnectionID: connectionID}, &out)
	return out, err
}
