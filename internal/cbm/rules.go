package cbm

import (
	"context"
	"math"
	"strings"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/repository"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
)

// ValidateTrigger normalizes t in place and reports the first invalid field.
func ValidateTrigger(t *entities.MaintenanceTrigger) error {
	t.EquipmentID = strings.TrimSpace(t.EquipmentID)
	t.Name = strings.TrimSpace(t.Name)
	t.Parameter = strings.TrimSpace(t.Parameter)
	t.Operator = NormalizeOperator(t.Operator)

	switch {
	case t.EquipmentID == "":
		return triggerError("equipment_id is required")
	case t.Name == "":
		return triggerError("name is required")
	case t.Parameter == "":
		return triggerError("parameter is required")
	case !IsKnownOperator(t.Operator):
		return triggerError("unsupported operator %q", t.Operator)
	case math.IsNaN(t.Threshold) || math.IsInf(t.Threshold, 0):
		return triggerError("threshold must be a finite number")
	}

	if t.Priority == "" {
		t.Priority = entities.PriorityCritical
	}
	if !isKnownPriority(t.Priority) {
		return triggerError("unsupported priority %q", t.Priority)
	}
	return nil
}

func isKnownPriority(p string) bool {
	switch p {
	case entities.PriorityLow, entities.PriorityMedium, entities.PriorityHigh, entities.PriorityCritical:
		return true
	default:
		return false
	}
}

// GetRule returns one trigger. Unknown ids yield a not-found error.
func (e *Engine) GetRule(ctx context.Context, id string) (*entities.MaintenanceTrigger, error) {
	rule, err := e.repos.Triggers.GetTrigger(ctx, id)
	if err != nil {
		return nil, e.ruleError("get rule", id, err)
	}
	return rule, nil
}

// CreateRule validates and stores a new trigger for existing equipment.
func (e *Engine) CreateRule(ctx context.Context, rule *entities.MaintenanceTrigger) error {
	if err := e.checkRule(ctx, rule); err != nil {
		return err
	}
	if err := e.repos.Triggers.CreateTrigger(ctx, rule); err != nil {
		return persistenceError("create rule", err)
	}
	e.log.Info("trigger created",
		logger.String("trigger_id", rule.ID),
		logger.String("equipment_id", rule.EquipmentID))
	return nil
}

// UpdateRule validates and replaces an existing trigger.
func (e *Engine) UpdateRule(ctx context.Context, rule *entities.MaintenanceTrigger) error {
	if err := e.checkRule(ctx, rule); err != nil {
		return err
	}
	if err := e.repos.Triggers.UpdateTrigger(ctx, rule); err != nil {
		return e.ruleError("update rule", rule.ID, err)
	}
	return nil
}

// DeleteRule removes a trigger. Requests it already produced are kept.
func (e *Engine) DeleteRule(ctx context.Context, id string) error {
	if err := e.repos.Triggers.DeleteTrigger(ctx, id); err != nil {
		return e.ruleError("delete rule", id, err)
	}
	return nil
}

// ToggleRule activates or deactivates a trigger.
func (e *Engine) ToggleRule(ctx context.Context, id string, active bool) error {
	if err := e.repos.Triggers.ToggleTrigger(ctx, id, active); err != nil {
		return e.ruleError("toggle rule", id, err)
	}
	return nil
}

func (e *Engine) checkRule(ctx context.Context, rule *entities.MaintenanceTrigger) error {
	if err := ValidateTrigger(rule); err != nil {
		return err
	}
	exists, err := e.repos.Equipment.Exists(ctx, rule.EquipmentID)
	if err != nil {
		return persistenceError("equipment lookup", err)
	}
	if !exists {
		return notFoundError(rule.EquipmentID)
	}
	return nil
}

func (e *Engine) ruleError(operation, id string, err error) error {
	if errors.Is(err, repository.ErrTriggerNotFound) {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryNotFound).
			Context("trigger_id", id).
			Build()
	}
	return persistenceError(operation, err)
}
