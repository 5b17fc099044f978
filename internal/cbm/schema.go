package cbm

import (
	"strings"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Schema describes the values the control panel offers when editing triggers.
type Schema struct {
	Parameters   []ParameterSchema `json:"parameters"`
	Operators    []OperatorSchema  `json:"operators"`
	Priorities   []string          `json:"priorities"`
	Stages       []string          `json:"stages"`
	RequestTypes []string          `json:"requestTypes"`
}

// ParameterSchema describes a known telemetry channel.
type ParameterSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Unit  string `json:"unit"`
}

// OperatorSchema describes a comparison operator for the UI.
type OperatorSchema struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
}

var parameterUnits = []struct{ name, unit string }{
	{ParameterTemperature, "°C"},
	{ParameterRunningHours, "h"},
	{ParameterVibration, "mm/s"},
	{ParameterCycleCount, "cycles"},
}

var operatorSymbols = []struct{ name, symbol string }{
	{OperatorGreaterThan, ">"},
	{OperatorLessThan, "<"},
	{OperatorGreaterOrEqual, ">="},
	{OperatorLessOrEqual, "<="},
	{OperatorEqual, "=="},
}

// Label turns an identifier such as "Running_Hours" or "greater_or_equal" into title case.
func Label(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// GetSchema returns the trigger editing catalog.
func GetSchema() Schema {
	s := Schema{
		Priorities:   []string{entities.PriorityLow, entities.PriorityMedium, entities.PriorityHigh, entities.PriorityCritical},
		Stages:       []string{entities.StageNew, entities.StageInProgress, entities.StageRepaired, entities.StageScrap},
		RequestTypes: []string{entities.RequestTypeCorrective, entities.RequestTypePreventive, entities.RequestTypeConditionBased},
	}
	for _, p := range parameterUnits {
		s.Parameters = append(s.Parameters, ParameterSchema{Name: p.name, Label: Label(p.name), Unit: p.unit})
	}
	for _, op := range operatorSymbols {
		s.Operators = append(s.Operators, OperatorSchema{Name: op.name, Label: Label(op.name), Symbol: op.symbol})
	}
	return s
}
