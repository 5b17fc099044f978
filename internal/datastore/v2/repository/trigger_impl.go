package repository

import (
	"context"
	"fmt"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// evaluationOrder keeps trigger evaluation stable across calls.
const evaluationOrder = "sort_order ASC, created_at ASC, id ASC"

// triggerRepository implements TriggerRepository.
type triggerRepository struct {
	db *gorm.DB
}

// NewTriggerRepository creates a new TriggerRepository.
func NewTriggerRepository(db *gorm.DB) TriggerRepository {
	return &triggerRepository{db: db}
}

// ListTriggers returns triggers matching the filter in evaluation order.
func (r *triggerRepository) ListTriggers(ctx context.Context, filter TriggerFilter) ([]entities.MaintenanceTrigger, error) {
	var triggers []entities.MaintenanceTrigger
	query := r.db.WithContext(ctx)

	if filter.EquipmentID != "" {
		query = query.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.Parameter != "" {
		query = query.Where("parameter = ?", filter.Parameter)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	if err := query.Order(evaluationOrder).Find(&triggers).Error; err != nil {
		return nil, fmt.Errorf("failed to list maintenance triggers: %w", err)
	}
	return triggers, nil
}

// GetRulesFor returns the active triggers for an equipment/parameter pair.
func (r *triggerRepository) GetRulesFor(ctx context.Context, equipmentID, parameter string) ([]entities.MaintenanceTrigger, error) {
	active := true
	triggers, err := r.ListTriggers(ctx, TriggerFilter{EquipmentID: equipmentID, Parameter: parameter, Active: &active})
	if err != nil {
		return nil, err
	}
	if triggers == nil {
		triggers = []entities.MaintenanceTrigger{}
	}
	return triggers, nil
}

// GetTrigger returns a trigger by id or ErrTriggerNotFound.
func (r *triggerRepository) GetTrigger(ctx context.Context, id string) (*entities.MaintenanceTrigger, error) {
	var trigger entities.MaintenanceTrigger
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&trigger).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTriggerNotFound
		}
		return nil, fmt.Errorf("failed to get maintenance trigger %s: %w", id, err)
	}
	return &trigger, nil
}

// CreateTrigger inserts a trigger, assigning a uuid when the id is empty.
func (r *triggerRepository) CreateTrigger(ctx context.Context, trigger *entities.MaintenanceTrigger) error {
	if trigger.ID == "" {
		trigger.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(trigger).Error; err != nil {
		return fmt.Errorf("failed to create maintenance trigger: %w", err)
	}
	return nil
}

// UpdateTrigger replaces all mutable columns of an existing trigger.
func (r *triggerRepository) UpdateTrigger(ctx context.Context, trigger *entities.MaintenanceTrigger) error {
	if trigger.ID == "" {
		return fmt.Errorf("failed to update maintenance trigger: missing trigger ID")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := triggerExists(tx, trigger.ID); err != nil {
			return err
		}
		err := tx.Model(&entities.MaintenanceTrigger{}).
			Where("id = ?", trigger.ID).
			Select("equipment_id", "name", "description", "parameter", "operator",
				"threshold", "action_template", "priority", "is_active", "sort_order").
			Updates(trigger).Error
		if err != nil {
			return fmt.Errorf("failed to update maintenance trigger %s: %w", trigger.ID, err)
		}
		return nil
	})
}

// DeleteTrigger removes a trigger. Requests it created are kept.
func (r *triggerRepository) DeleteTrigger(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.MaintenanceTrigger{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete maintenance trigger %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTriggerNotFound
	}
	return nil
}

// ToggleTrigger activates or deactivates a trigger.
func (r *triggerRepository) ToggleTrigger(ctx context.Context, id string, active bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := triggerExists(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&entities.MaintenanceTrigger{}).Where("id = ?", id).Update("is_active", active).Error; err != nil {
			return fmt.Errorf("failed to toggle maintenance trigger %s: %w", id, err)
		}
		return nil
	})
}

// triggerExists checks by id rather than RowsAffected, which MySQL reports as 0
// when an update leaves the row unchanged.
func triggerExists(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&entities.MaintenanceTrigger{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up maintenance trigger %s: %w", id, err)
	}
	if count == 0 {
		return ErrTriggerNotFound
	}
	return nil
}

// CountTriggersByName returns how many triggers on the equipment share the name.
func (r *triggerRepository) CountTriggersByName(ctx context.Context, equipmentID, name string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.MaintenanceTrigger{}).
		Where("equipment_id = ? AND name = ?", equipmentID, name).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count triggers by name: %w", err)
	}
	return count, nil
}
