package cbm

import (
	"fmt"
	"strconv"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/google/uuid"
)

// Emitter builds maintenance requests for violated rules.
type Emitter struct {
	clock    func() time.Time
	newID    func() string
	identity string
}

// NewEmitter creates an emitter stamping requests with clock.
func NewEmitter(clock func() time.Time) *Emitter {
	if clock == nil {
		clock = defaultClock
	}
	return &Emitter{clock: clock, newID: uuid.NewString, identity: SystemIdentity}
}

// Emit returns a new condition-based request for rule. It does not persist it.
func (e *Emitter) Emit(rule *entities.MaintenanceTrigger, reading Reading) *entities.MaintenanceRequest {
	priority := rule.Priority
	if priority == "" {
		priority = entities.PriorityCritical
	}
	triggerID := rule.ID
	now := e.clock()
	return &entities.MaintenanceRequest{
		ID:          e.newID(),
		Title:       fmt.Sprintf("AUTO-ALERT: %s (Value: %s)", rule.Name, FormatValue(reading.Value)),
		Description: ticketDescription(rule, reading),
		EquipmentID: reading.EquipmentID,
		TriggerID:   &triggerID,
		RequestType: entities.RequestTypeConditionBased,
		Priority:    priority,
		Stage:       entities.StageNew,
		CreatedBy:   e.identity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ticketDescription(rule *entities.MaintenanceTrigger, reading Reading) string {
	return fmt.Sprintf("System triggered maintenance. Rule: %s. Value %s %s limit %s. Action: %s",
		rule.Name, FormatValue(reading.Value), violationVerb(rule.Operator), FormatValue(rule.Threshold), rule.ActionTemplate)
}

func violationVerb(operator string) string {
	switch NormalizeOperator(operator) {
	case OperatorLessThan, OperatorLessOrEqual:
		return "fell below"
	case OperatorEqual:
		return "reached"
	default:
		return "exceeded"
	}
}

// FormatValue prints v in its shortest exact decimal form (85, 80.01, -3.5).
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewLogEntry builds the audit entry for a processed reading.
func NewLogEntry(reading Reading, isAnomaly bool, now time.Time) *entities.TelemetryLog {
	observed := reading.ObservedAt
	if observed.IsZero() {
		observed = now
	}
	observed = observed.UTC()
	return &entities.TelemetryLog{
		ID:            uuid.NewString(),
		EquipmentID:   reading.EquipmentID,
		Parameter:     reading.Parameter,
		Value:         reading.Value,
		ObservedAt:    observed,
		IsAnomaly:     isAnomaly,
		ProcessedFlag: true,
		CreatedAt:     now,
	}
}

func defaultClock() time.Time { return time.Now().UTC() }
