package repository

import "github.com/amshithnair/gearguard-odoo/internal/errors"

var (
	// ErrTriggerNotFound is returned when a maintenance trigger id does not exist.
	ErrTriggerNotFound = errors.NewStd("maintenance trigger not found")
	// ErrEquipmentNotFound is returned when an equipment id does not exist.
	ErrEquipmentNotFound = errors.NewStd("equipment not found")
	// ErrRequestNotFound is returned when a maintenance request id does not exist.
	ErrRequestNotFound = errors.NewStd("maintenance request not found")
)
