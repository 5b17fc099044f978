package cbm

import (
	"context"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/repository"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
)

// DefaultEquipment returns the demo plant shipped with GearGuard.
func DefaultEquipment() []entities.Equipment {
	return []entities.Equipment{
		{ID: "eq1", Name: "CNC Machine 01", SerialNumber: "CNC-XH-001", Department: "Production", Status: entities.EquipmentStatusActive},
		{ID: "eq2", Name: "Conveyor Belt 04", SerialNumber: "CV-BL-04", Department: "Logistics", Status: entities.EquipmentStatusActive},
		{ID: "eq3", Name: "Diesel Ben 500kVA", SerialNumber: "DG-500-01", Department: "Utilities", Status: entities.EquipmentStatusActive},
	}
}

// DefaultTriggers returns the built-in triggers for the demo plant.
func DefaultTriggers() []entities.MaintenanceTrigger {
	return []entities.MaintenanceTrigger{
		{
			ID:             "tr1",
			EquipmentID:    "eq1",
			Name:           "Overheating Check",
			Description:    "Spindle temperature above safe operating range",
			Parameter:      ParameterTemperature,
			Operator:       OperatorGreaterThan,
			Threshold:      80,
			ActionTemplate: "Check Coolant System",
			Priority:       entities.PriorityCritical,
			IsActive:       true,
			SortOrder:      0,
		},
		{
			ID:             "tr2",
			EquipmentID:    "eq3",
			Name:           "Oil Change Interval",
			Description:    "Generator service interval reached",
			Parameter:      ParameterRunningHours,
			Operator:       OperatorGreaterThan,
			Threshold:      500,
			ActionTemplate: "Perform 500h Service",
			Priority:       entities.PriorityCritical,
			IsActive:       true,
			SortOrder:      0,
		},
	}
}

// SeedDefaults ensures the built-in equipment and triggers exist. It checks by id
// so partial seeds from previous runs self-heal on restart, and it never
// overwrites records an operator has edited.
func SeedDefaults(ctx context.Context, repos Repositories, log logger.Logger) error {
	var createdEquipment, createdTriggers int

	for _, eq := range DefaultEquipment() {
		_, err := repos.Equipment.GetEquipment(ctx, eq.ID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, repository.ErrEquipmentNotFound):
			return err
		}
		if err := repos.Equipment.SaveEquipment(ctx, &eq); err != nil {
			return err
		}
		createdEquipment++
	}

	defaults := DefaultTriggers()
	for i := range defaults {
		_, err := repos.Triggers.GetTrigger(ctx, defaults[i].ID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, repository.ErrTriggerNotFound):
			return err
		}
		if err := repos.Triggers.CreateTrigger(ctx, &defaults[i]); err != nil {
			return err
		}
		createdTriggers++
	}

	if createdEquipment > 0 || createdTriggers > 0 {
		log.Info("seeded default plant",
			logger.Int("equipment_created", createdEquipment),
			logger.Int("triggers_created", createdTriggers))
	}
	return nil
}
