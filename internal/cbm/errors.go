package cbm

import (
	"fmt"

	"github.com/amshithnair/gearguard-odoo/internal/errors"
)

// Sentinel errors. Every error returned by Ingest wraps exactly one of them and
// carries the matching category, so callers may use either errors.Is or errors.IsValidation.
var (
	ErrInvalidReading   = errors.NewStd("invalid reading")
	ErrUnknownEquipment = errors.NewStd("unknown equipment")
	ErrPersistence      = errors.NewStd("persistence failure")
	ErrInvalidTrigger   = errors.NewStd("invalid trigger")
)

func validationError(reading Reading, format string, args ...any) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidReading, fmt.Sprintf(format, args...))).
		Component(componentName).
		Category(errors.CategoryValidation).
		Context("equipment_id", reading.EquipmentID).
		Context("parameter", reading.Parameter).
		Build()
}

func notFoundError(equipmentID string) error {
	return errors.New(fmt.Errorf("%w: %q", ErrUnknownEquipment, equipmentID)).
		Component(componentName).
		Category(errors.CategoryNotFound).
		Context("equipment_id", equipmentID).
		Build()
}

func persistenceError(operation string, err error) error {
	return errors.New(fmt.Errorf("%w: %s: %w", ErrPersistence, operation, err)).
		Component(componentName).
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

func triggerError(format string, args ...any) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidTrigger, fmt.Sprintf(format, args...))).
		Component(componentName).
		Category(errors.CategoryValidation).
		Build()
}
