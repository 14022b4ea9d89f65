package gateway

import (
	"github.com/bassista/go_connsync/internal/model"
)

const testWorkspace = "ws-1"

func createTestDataDocument() DataDocument {
	return DataDocument{
		Metadata: Metadata{LastUpdate: 1000},
		Connections: []model.Connection{
			{
				ConnectionID: "conn-1",
				Name:         "Postgres -> Warehouse",
				Source: model.SourceRef{
					SourceID: "src-1", Name: "Postgres", SourceName: "postgres",
					SourceDefinitionID: "def-src-pg", WorkspaceID: testWorkspace,
				},
				Destination: model.DestinationRef{
					DestinationID: "dst-1", Name: "Warehouse", DestinationName: "bigquery",
					DestinationDefinitionID: "def-dst-bq", WorkspaceID: testWorkspace,
				},
				Status: model.StatusActive,
			},
			{
				ConnectionID: "conn-old",
				Source:       model.SourceRef{SourceID: "src-1", WorkspaceID: testWorkspace},
				Status:       model.StatusDeprecated,
			},
			{
				ConnectionID: "conn-other-ws",
				Source:       model.SourceRef{SourceID: "src-9", WorkspaceID: "ws-2"},
				Status:       model.StatusInactive,
			},
		},
	}
}

func newCreateRequest() model.ConnectionCreateRequest {
	return model.ConnectionCreateRequest{
		SourceID:      "src-1",
		DestinationID: "dst-1",
		Status:        model.StatusActive,
		ConnectionValues: model.ConnectionValues{
			ScheduleType:        model.ScheduleBasic,
			ScheduleData:        &model.ScheduleData{BasicSchedule: &model.BasicSchedule{TimeUnit: "hours", Units: 24}},
			NamespaceDefinition: model.NamespaceSource,
			SyncCatalog: model.SyncCatalog{Streams: []model.StreamAndConfiguration{
				{Stream: model.Stream{Name: "users"}, Config: &model.StreamConfig{Selected: true}},
				{Stream: model.Stream{Name: "orders"}, Config: &model.StreamConfig{Selected: false}},
			}},
		},
	}
}

func strPtr(s string) *string {
	return &s
}
