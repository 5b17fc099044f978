package repository

import (
	"context"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
)

// TriggerRepository handles maintenance trigger configuration.
type TriggerRepository interface {
	ListTriggers(ctx context.Context, filter TriggerFilter) ([]entities.MaintenanceTrigger, error)
	// GetRulesFor returns the active triggers scoped to one equipment/parameter pair
	// in evaluation order. An empty slice means nothing is configured.
	GetRulesFor(ctx context.Context, equipmentID, parameter string) ([]entities.MaintenanceTrigger, error)
	GetTrigger(ctx context.Context, id string) (*entities.MaintenanceTrigger, error)
	CreateTrigger(ctx context.Context, trigger *entities.MaintenanceTrigger) error
	UpdateTrigger(ctx context.Context, trigger *entities.MaintenanceTrigger) error
	DeleteTrigger(ctx context.Context, id string) error
	ToggleTrigger(ctx context.Context, id string, active bool) error

	// Import/Export
	CountTriggersByName(ctx context.Context, equipmentID, name string) (int64, error)
}

// TriggerFilter controls trigger listing queries.
type TriggerFilter struct {
	EquipmentID string
	Parameter   string
	Active      *bool
}
