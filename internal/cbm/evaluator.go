package cbm

import (
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
)

// Evaluate returns the rules the reading violates, in the order they were given.
// Rules scoped to another equipment or parameter are skipped. Every rule is
// checked; a violation never stops evaluation of the rest.
func Evaluate(reading Reading, rules []entities.MaintenanceTrigger) []entities.MaintenanceTrigger {
	violated := make([]entities.MaintenanceTrigger, 0)
	for i := range rules {
		rule := &rules[i]
		if rule.EquipmentID != reading.EquipmentID || rule.Parameter != reading.Parameter {
			continue
		}
		if Violates(rule.Operator, reading.Value, rule.Threshold) {
			violated = append(violated, *rule)
		}
	}
	return violated
}

// Violates applies operator to value and threshold. Unknown operators never violate.
// Equality is exact float comparison.
func Violates(operator string, value, threshold float64) bool {
	switch NormalizeOperator(operator) {
	case OperatorGreaterThan:
		return value > threshold
	case OperatorLessThan:
		return value < threshold
	case OperatorGreaterOrEqual:
		return value >= threshold
	case OperatorLessOrEqual:
		return value <= threshold
	case OperatorEqual:
		return value == threshold
	default:
		return false
	}
}
