// Package cbm provides the condition-based maintenance trigger engine.
package cbm

import "strings"

// componentName tags errors and log lines raised by this package.
const componentName = "cbm"

// SystemIdentity is recorded as the creator of engine-generated requests.
const SystemIdentity = "system:cbm-engine"

// Parameters are the conventional telemetry channels. Parameter names are open strings;
// these are the ones the simulator and the control panel know about.
const (
	ParameterTemperature  = "Temperature"
	ParameterRunningHours = "Running_Hours"
	ParameterVibration    = "Vibration"
	ParameterCycleCount   = "Cycle_Count"
)

// Comparison operators between a reading value and a trigger threshold.
const (
	OperatorGreaterThan    = "greater_than"
	OperatorLessThan       = "less_than"
	OperatorGreaterOrEqual = "greater_or_equal"
	OperatorLessOrEqual    = "less_or_equal"
	OperatorEqual          = "equal"
)

// Feedback messages returned alongside ingestion results.
const (
	MessageAnomaly = "Anomaly Detected! Maintenance Request Auto-Generated."
	MessageNormal  = "Telemetry Logged. Status: Normal."
	MessageFailed  = "Failed to submit telemetry."
)

// Log listing bounds.
const (
	DefaultLogLimit = 50
	MaxLogLimit     = 1000
)

// legacyOperators maps spellings stored by older rule sets to canonical operators.
var legacyOperators = map[string]string{
	"equals": OperatorEqual,
	"eq":     OperatorEqual,
	"gt":     OperatorGreaterThan,
	"lt":     OperatorLessThan,
	"gte":    OperatorGreaterOrEqual,
	"lte":    OperatorLessOrEqual,
	">":      OperatorGreaterThan,
	"<":      OperatorLessThan,
	">=":     OperatorGreaterOrEqual,
	"<=":     OperatorLessOrEqual,
	"==":     OperatorEqual,
}

// NormalizeOperator returns the canonical spelling of op, so "Greater_Than" and
// "Equals" become "greater_than" and "equal". Unknown operators are returned lowercased.
func NormalizeOperator(op string) string {
	key := strings.ToLower(strings.TrimSpace(op))
	if canonical, ok := legacyOperators[key]; ok {
		return canonical
	}
	return key
}

// IsKnownOperator reports whether op (after normalization) is supported.
func IsKnownOperator(op string) bool {
	switch NormalizeOperator(op) {
	case OperatorGreaterThan, OperatorLessThan, OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorEqual:
		return true
	default:
		return false
	}
}
