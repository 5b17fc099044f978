package entities

// All returns every entity managed by the schema migration, parents first.
func All() []any {
	return []any{
		&Equipment{},
		&MaintenanceTrigger{},
		&MaintenanceRequest{},
		&TelemetryLog{},
	}
}
