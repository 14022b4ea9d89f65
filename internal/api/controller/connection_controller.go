package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/bassista/go_connsync/internal/connection"
	"github.com/bassista/go_connsync/internal/logger"
	"github.com/bassista/go_connsync/internal/model"
	"github.com/containerd/errdefs"
	"github.com/gin-gonic/gin"
)

// CreateConnectionBody is the payload of POST /api/connection.
type CreateConnectionBody struct {
	Values                  model.ConnectionValues `json:"values"`
	Source                  model.SourceRef        `json:"source"`
	Destination             model.DestinationRef   `json:"destination"`
	SourceDefinitionID      string                 `json:"sourceDefinitionId,omitempty"`
	DestinationDefinitionID string                 `json:"destinationDefinitionId,omitempty"`
	SourceCatalogID         string                 `json:"sourceCatalogId,omitempty"`
}

// RemoveConnectionsBody is the payload of POST /api/connections/remove.
type RemoveConnectionsBody struct {
	ConnectionIDs []string `json:"connectionIds" binding:"required"`
}

type ConnectionController struct {
	service *connection.Service
}

func NewConnectionController(service *connection.Service) *ConnectionController {
	return &ConnectionController{service: service}
}

// List returns the workspace connection list, served from cache when present.
func (cc *ConnectionController) List(c *gin.Context) {
	list, err := cc.service.GetConnectionList(c.Request.Context())
	if err != nil {
		writeError(c, "list connections", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// RemoveFromList drops ids from the cached list only; the backend is not called.
func (cc *ConnectionController) RemoveFromList(c *gin.Context) {
	var body RemoveConnectionsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	cc.service.RemoveConnectionsFromList(body.ConnectionIDs)
	c.Status(http.StatusNoContent)
}

func (cc *ConnectionController) Get(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}
	conn, err := cc.service.GetConnection(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get connection", err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

// RefreshCatalog asks the backend to rediscover the source schema. The cached detail is kept.
func (cc *ConnectionController) RefreshCatalog(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}
	conn, err := cc.service.RefreshConnectionCatalog(c.Request.Context(), id)
	if err != nil {
		writeError(c, "refresh catalog", err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (cc *ConnectionController) GetState(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}
	state, err := cc.service.GetConnectionState(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get connection state", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (cc *ConnectionController) Create(c *gin.Context) {
	var body CreateConnectionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if body.Source.SourceID == "" || body.Destination.DestinationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source.sourceId and destination.destinationId are required"})
		return
	}

	conn, err := cc.service.CreateConnection(c.Request.Context(), connection.CreateConnectionInput{
		Values:                  body.Values,
		Source:                  body.Source,
		Destination:             body.Destination,
		SourceDefinitionID:      body.SourceDefinitionID,
		DestinationDefinitionID: body.DestinationDefinitionID,
		SourceCatalogID:         body.SourceCatalogID,
	})
	if err != nil {
		writeError(c, "create connection", err)
		return
	}
	c.JSON(http.StatusCreated, conn)
}

// Update applies a partial update. The path id wins over any id in the body.
func (cc *ConnectionController) Update(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}
	var req model.ConnectionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.ConnectionID = id

	conn, err := cc.service.UpdateConnection(c.Request.Context(), req)
	if err != nil {
		writeError(c, "update connection", err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (cc *ConnectionController) Enable(c *gin.Context) {
	cc.setEnabled(c, true)
}

func (cc *ConnectionController) Disable(c *gin.Context) {
	cc.setEnabled(c, false)
}

func (cc *ConnectionController) setEnabled(c *gin.Context, enable bool) {
	id, ok := connectionID(c)
	if !ok {
		return
	}
	conn, err := cc.service.EnableConnection(c.Request.Context(), id, enable)
	if err != nil {
		writeError(c, "enable connection", err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

// Sync starts a manual sync. The connection is loaded first so the event can describe it.
func (cc *ConnectionController) Sync(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	conn, err := cc.service.GetConnection(ctx, id)
	if err != nil {
		writeError(c, "sync connection", err)
		return
	}
	job, err := cc.service.SyncConnection(ctx, conn)
	if err != nil {
		writeError(c, "sync connection", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (cc *ConnectionController) Reset(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}
	job, err := cc.service.ResetConnection(c.Request.Context(), id)
	if err != nil {
		writeError(c, "reset connection", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (cc *ConnectionController) Delete(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	conn, err := cc.service.GetConnection(ctx, id)
	if err != nil {
		writeError(c, "delete connection", err)
		return
	}
	if err := cc.service.DeleteConnection(ctx, conn); err != nil {
		writeError(c, "delete connection", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func connectionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing connection id"})
		return "", false
	}
	return id, true
}

// writeError maps an error class to a status code. Unclassified errors are a 500.
func writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	entry := logger.WithConnection("connection_controller", c.Param("id"))
	if status >= http.StatusInternalServerError {
		entry.Errorf("%s failed: %v", op, err)
	} else {
		entry.Debugf("%s failed: %v", op, err)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, errdefs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errdefs.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrConflict), errors.Is(err, errdefs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errdefs.ErrFailedPrecondition):
		return http.StatusPreconditionFailed
	case errors.Is(err, errdefs.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errdefs.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, errdefs.ErrResourceExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, errdefs.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, errdefs.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
