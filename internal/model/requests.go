package model

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// ConnectionValues are the user-editable settings shared by create forms.
type ConnectionValues struct {
	Name                string              `json:"name,omitempty"`
	ScheduleData        *ScheduleData       `json:"scheduleData,omitempty"`
	ScheduleType        ScheduleType        `json:"scheduleType" validate:"required,oneof=manual basic cron"`
	Prefix              string              `json:"prefix"`
	SyncCatalog         SyncCatalog         `json:"syncCatalog"`
	NamespaceDefinition NamespaceDefinition `json:"namespaceDefinition" validate:"required,oneof=source destination customformat"`
	NamespaceFormat     string              `json:"namespaceFormat,omitempty"`
	Operations          []Operation         `json:"operations,omitempty" validate:"dive"`
}

// ConnectionCreateRequest is the create payload sent to the gateway.
type ConnectionCreateRequest struct {
	SourceID        string           `json:"sourceId" validate:"required"`
	DestinationID   string           `json:"destinationId" validate:"required"`
	Status          ConnectionStatus `json:"status" validate:"required,oneof=active inactive"`
	SourceCatalogID string           `json:"sourceCatalogId,omitempty"`
	ConnectionValues
}

// ConnectionUpdateRequest is a partial update. Nil fields are left unchanged.
type ConnectionUpdateRequest struct {
	ConnectionID        string               `json:"connectionId" validate:"required"`
	Name                *string              `json:"name,omitempty"`
	Status              *ConnectionStatus    `json:"status,omitempty" validate:"omitempty,oneof=active inactive deprecated"`
	ScheduleType        *ScheduleType        `json:"scheduleType,omitempty" validate:"omitempty,oneof=manual basic cron"`
	ScheduleData        *ScheduleData        `json:"scheduleData,omitempty"`
	NamespaceDefinition *NamespaceDefinition `json:"namespaceDefinition,omitempty" validate:"omitempty,oneof=source destination customformat"`
	NamespaceFormat     *string              `json:"namespaceFormat,omitempty"`
	Prefix              *string              `json:"prefix,omitempty"`
	SyncCatalog         *SyncCatalog         `json:"syncCatalog,omitempty"`
	Operations          []Operation          `json:"operations,omitempty" validate:"dive"`
	SourceCatalogID     *string              `json:"sourceCatalogId,omitempty"`
}

// ApplyTo merges the non-nil fields of the request into c.
func (r ConnectionUpdateRequest) ApplyTo(c *Connection) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Status != nil {
		c.Status = *r.Status
	}
	if r.ScheduleType != nil {
		c.ScheduleType = *r.ScheduleType
	}
	if r.ScheduleData != nil {
		c.ScheduleData = r.ScheduleData
	}
	if r.NamespaceDefinition != nil {
		c.NamespaceDefinition = *r.NamespaceDefinition
	}
	if r.NamespaceFormat != nil {
		c.NamespaceFormat = *r.NamespaceFormat
	}
	if r.Prefix != nil {
		c.Prefix = *r.Prefix
	}
	if r.SyncCatalog != nil {
		c.SyncCatalog = *r.SyncCatalog
	}
	if r.Operations != nil {
		c.Operations = r.Operations
	}
	if r.SourceCatalogID != nil {
		c.CatalogID = *r.SourceCatalogID
	}
}

// StateType tells how a connection's sync state is shaped.
type StateType string

const (
	StateGlobal StateType = "global"
	StateStream StateType = "stream"
	StateLegacy StateType = "legacy"
	StateNotSet StateType = "not_set"
)

// ConnectionState is an opaque sync checkpoint snapshot.
type ConnectionState struct {
	ConnectionID string          `json:"connectionId"`
	StateType    StateType       `json:"stateType"`
	State        json.RawMessage `json:"state,omitempty"`
	StreamState  json.RawMessage `json:"streamState,omitempty"`
	GlobalState  json.RawMessage `json:"globalState,omitempty"`
}

// JobConfigType identifies the kind of job started for a connection.
type JobConfigType string

const (
	JobSync            JobConfigType = "sync"
	JobResetConnection JobConfigType = "reset_connection"
)

// JobRead is the job record returned when a sync or reset is started.
type JobRead struct {
	ID         int64         `json:"id"`
	ConfigType JobConfigType `json:"configType"`
	ConfigID   string        `json:"configId"`
	Status     string        `json:"status"`
	CreatedAt  int64         `json:"createdAt"`
	UpdatedAt  int64         `json:"updatedAt"`
}

// JobInfo is the handle of a started sync or reset job.
type JobInfo struct {
	Job JobRead `json:"job"`
}

// NewPendingJob builds a freshly started job record.
func NewPendingJob(id int64, configType JobConfigType, connectionID string) JobInfo {
	now := time.Now().Unix()
	return JobInfo{Job: JobRead{
		ID:         id,
		ConfigType: configType,
		ConfigID:   connectionID,
		Status:     "pending",
		CreatedAt:  now,
		UpdatedAt:  now,
	}}
}

var validate = validator.New()

// Validate checks struct tags on any model value.
func Validate(v any) error {
	return validate.Struct(v)
}
