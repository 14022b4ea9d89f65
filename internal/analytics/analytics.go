package analytics

import (
	"fmt"
	"strings"

	"github.com/bassista/go_connsync/internal/model"
)

// Namespace groups related events.
type Namespace string

// Action names a tracked user action within a namespace.
type Action string

const (
	NamespaceConnection Namespace = "connection"

	ActionCreate   Action = "Create"
	ActionDelete   Action = "Delete"
	ActionReenable Action = "Reenable"
	ActionDisable  Action = "Disable"
	ActionSync     Action = "FullRefresh"
)

// Properties is the flat property bag attached to an event. Values should be scalars.
type Properties map[string]any

// Tracker records telemetry events. Callers treat it as fire-and-forget:
// a failing tracker must never change the outcome of the operation being tracked.
type Tracker interface {
	Track(namespace Namespace, action Action, props Properties) error
}

// NoopTracker drops every event.
type NoopTracker struct{}

func (NoopTracker) Track(Namespace, Action, Properties) error {
	return nil
}

// FrequencyType labels a basic schedule for analytics, e.g. "24 hours" or "1 hour".
// Connections without a basic schedule are reported as "manual".
func FrequencyType(schedule *model.BasicSchedule) string {
	if schedule == nil || schedule.Units <= 0 || schedule.TimeUnit == "" {
		return "manual"
	}
	unit := strings.ToLower(schedule.TimeUnit)
	if schedule.Units == 1 {
		unit = strings.TrimSuffix(unit, "s")
	}
	return fmt.Sprintf("%d %s", schedule.Units, unit)
}

// ConnectorProperties describes both ends of a connection the way every connection event does.
func ConnectorProperties(conn model.Connection) Properties {
	return Properties{
		"connector_source":                    conn.Source.SourceName,
		"connector_source_definition_id":      conn.Source.SourceDefinitionID,
		"connector_destination":               conn.Destination.DestinationName,
		"connector_destination_definition_id": conn.Destination.DestinationDefinitionID,
	}
}
