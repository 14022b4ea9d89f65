package model

import "encoding/json"

// ConnectionStatus is the lifecycle state of a connection.
type ConnectionStatus string

const (
	StatusActive     ConnectionStatus = "active"
	StatusInactive   ConnectionStatus = "inactive"
	StatusDeprecated ConnectionStatus = "deprecated"
)

// ScheduleType selects how ScheduleData is interpreted by the backend.
type ScheduleType string

const (
	ScheduleManual ScheduleType = "manual"
	ScheduleBasic  ScheduleType = "basic"
	ScheduleCron   ScheduleType = "cron"
)

// NamespaceDefinition controls where synced streams land in the destination.
type NamespaceDefinition string

const (
	NamespaceSource       NamespaceDefinition = "source"
	NamespaceDestination  NamespaceDefinition = "destination"
	NamespaceCustomFormat NamespaceDefinition = "customformat"
)

// BasicSchedule is an interval schedule, e.g. every 24 hours.
type BasicSchedule struct {
	TimeUnit string `json:"timeUnit" validate:"required"`
	Units    int64  `json:"units" validate:"min=1"`
}

// CronSchedule is forwarded to the backend untouched.
type CronSchedule struct {
	CronExpression string `json:"cronExpression" validate:"required"`
	CronTimeZone   string `json:"cronTimeZone"`
}

// ScheduleData is opaque to this service; only BasicSchedule is read, for analytics.
type ScheduleData struct {
	BasicSchedule *BasicSchedule `json:"basicSchedule,omitempty"`
	Cron          *CronSchedule  `json:"cron,omitempty"`
}

// SourceRef is the source side of a connection as returned by the backend.
type SourceRef struct {
	SourceID           string `json:"sourceId"`
	Name               string `json:"name"`
	SourceName         string `json:"sourceName"`
	SourceDefinitionID string `json:"sourceDefinitionId"`
	WorkspaceID        string `json:"workspaceId"`
}

// DestinationRef is the destination side of a connection.
type DestinationRef struct {
	DestinationID           string `json:"destinationId"`
	Name                    string `json:"name"`
	DestinationName         string `json:"destinationName"`
	DestinationDefinitionID string `json:"destinationDefinitionId"`
	WorkspaceID             string `json:"workspaceId"`
}

// Stream describes one stream a source exposes.
type Stream struct {
	Name               string          `json:"name" validate:"required"`
	Namespace          string          `json:"namespace,omitempty"`
	JSONSchema         json.RawMessage `json:"jsonSchema,omitempty"`
	SupportedSyncModes []string        `json:"supportedSyncModes,omitempty"`
}

// StreamConfig is the user's selection and sync settings for a stream.
type StreamConfig struct {
	Selected            bool       `json:"selected"`
	SyncMode            string     `json:"syncMode,omitempty"`
	DestinationSyncMode string     `json:"destinationSyncMode,omitempty"`
	CursorField         []string   `json:"cursorField,omitempty"`
	PrimaryKey          [][]string `json:"primaryKey,omitempty"`
	AliasName           string     `json:"aliasName,omitempty"`
}

// StreamAndConfiguration pairs a stream with its configuration.
type StreamAndConfiguration struct {
	Stream Stream        `json:"stream"`
	Config *StreamConfig `json:"config,omitempty"`
}

// SyncCatalog is the set of streams a connection can sync.
type SyncCatalog struct {
	Streams []StreamAndConfiguration `json:"streams" validate:"dive"`
}

// EnabledStreams counts the streams selected for sync.
func (c SyncCatalog) EnabledStreams() int {
	n := 0
	for _, s := range c.Streams {
		if s.Config != nil && s.Config.Selected {
			n++
		}
	}
	return n
}

// Operation is a post-sync transformation step.
type Operation struct {
	OperationID           string          `json:"operationId,omitempty"`
	WorkspaceID           string          `json:"workspaceId,omitempty"`
	Name                  string          `json:"name" validate:"required"`
	OperatorConfiguration json.RawMessage `json:"operatorConfiguration,omitempty"`
}

// Connection is the full connection record.
type Connection struct {
	ConnectionID        string              `json:"connectionId" validate:"required"`
	Name                string              `json:"name"`
	SourceID            string              `json:"sourceId"`
	DestinationID       string              `json:"destinationId"`
	Source              SourceRef           `json:"source"`
	Destination         DestinationRef      `json:"destination"`
	Status              ConnectionStatus    `json:"status" validate:"required,oneof=active inactive deprecated"`
	ScheduleType        ScheduleType        `json:"scheduleType,omitempty" validate:"omitempty,oneof=manual basic cron"`
	ScheduleData        *ScheduleData       `json:"scheduleData,omitempty"`
	NamespaceDefinition NamespaceDefinition `json:"namespaceDefinition,omitempty"`
	NamespaceFormat     string              `json:"namespaceFormat,omitempty"`
	Prefix              string              `json:"prefix"`
	SyncCatalog         SyncCatalog         `json:"syncCatalog"`
	Operations          []Operation         `json:"operations"`
	CatalogID           string              `json:"catalogId,omitempty"`
	IsSyncing           bool                `json:"isSyncing"`
}

// BasicSchedule returns the interval schedule, if any.
func (c Connection) BasicSchedule() *BasicSchedule {
	if c.ScheduleData == nil {
		return nil
	}
	return c.ScheduleData.BasicSchedule
}

// ConnectionList is the workspace-scoped list response.
type ConnectionList struct {
	Connections []Connection `json:"connections"`
}

// IndexOf returns the position of the connection with the given id, or -1.
func (l ConnectionList) IndexOf(connectionID string) int {
	for i := range l.Connections {
		if l.Connections[i].ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

// ApplyDefaults sets fallback values after decode.
func (c *Connection) ApplyDefaults() {
	if c.Operations == nil {
		c.Operations = []Operation{}
	}
	if c.SyncCatalog.Streams == nil {
		c.SyncCatalog.Streams = []StreamAndConfiguration{}
	}
	if c.ScheduleType == "" {
		c.ScheduleType = ScheduleManual
	}
	if c.NamespaceDefinition == "" {
		c.NamespaceDefinition = NamespaceSource
	}
	if c.SourceID == "" {
		c.SourceID = c.Source.SourceID
	}
	if c.DestinationID == "" {
		c.DestinationID = c.Destination.DestinationID
	}
}

// ApplyDefaults sets fallback values on every entry.
func (l *ConnectionList) ApplyDefaults() {
	if l.Connections == nil {
		l.Connections = []Connection{}
	}
	for i := range l.Connections {
		l.Connections[i].ApplyDefaults()
	}
}
