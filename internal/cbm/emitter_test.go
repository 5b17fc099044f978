package cbm

import (
	"testing"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		85:      "85",
		80.01:   "80.01",
		500:     "500",
		-3.5:    "-3.5",
		0:       "0",
		1234.25: "1234.25",
		0.1:     "0.1",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatValue(in))
	}
}

func TestEmitter_Emit(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	em := NewEmitter(func() time.Time { return now })
	rule := &entities.MaintenanceTrigger{
		ID:             "tr2",
		Name:           "Oil Change Interval",
		Threshold:      500,
		ActionTemplate: "Perform 500h Service",
		Priority:       entities.PriorityHigh,
	}

	req := em.Emit(rule, Reading{EquipmentID: "eq3", Parameter: ParameterRunningHours, Value: 500.5})

	assert.Equal(t, "AUTO-ALERT: Oil Change Interval (Value: 500.5)", req.Title)
	assert.Equal(t, "System triggered maintenance. Rule: Oil Change Interval. Value 500.5 exceeded limit 500. Action: Perform 500h Service", req.Description)
	assert.Equal(t, "eq3", req.EquipmentID)
	assert.Equal(t, entities.PriorityHigh, req.Priority)
	assert.Equal(t, entities.StageNew, req.Stage)
	assert.Equal(t, entities.RequestTypeConditionBased, req.RequestType)
	assert.Equal(t, SystemIdentity, req.CreatedBy)
	assert.Equal(t, now, req.CreatedAt)
	require.NotNil(t, req.TriggerID)
	assert.Equal(t, "tr2", *req.TriggerID)
	assert.NotEmpty(t, req.ID)

	other := em.Emit(rule, Reading{EquipmentID: "eq3", Parameter: ParameterRunningHours, Value: 500.5})
	assert.NotEqual(t, req.ID, other.ID, "every request gets a fresh id")
}

func TestEmitter_DefaultsPriority(t *testing.T) {
	t.Parallel()

	req := NewEmitter(nil).Emit(&entities.MaintenanceTrigger{ID: "r", Name: "n"}, Reading{EquipmentID: "eq1", Value: 1})
	assert.Equal(t, entities.PriorityCritical, req.Priority)
}

func TestNewLogEntry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	entry := NewLogEntry(Reading{EquipmentID: "eq1", Parameter: ParameterTemperature, Value: 42}, true, now)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, now, entry.ObservedAt)
	assert.Equal(t, now, entry.CreatedAt)
	assert.True(t, entry.IsAnomaly)
	assert.True(t, entry.ProcessedFlag)

	observed := now.Add(-time.Minute)
	entry = NewLogEntry(Reading{EquipmentID: "eq1", Parameter: ParameterTemperature, Value: 42, ObservedAt: observed}, false, now)
	assert.Equal(t, observed, entry.ObservedAt)
	assert.False(t, entry.IsAnomaly)
}

func TestEmitter_DescriptionFollowsOperator(t *testing.T) {
	t.Parallel()

	em := NewEmitter(nil)
	tests := []struct {
		operator string
		value    float64
		want     string
	}{
		{OperatorGreaterThan, 3.5, "Value 3.5 exceeded limit 2"},
		{OperatorGreaterOrEqual, 2, "Value 2 exceeded limit 2"},
		{OperatorLessThan, 1.5, "Value 1.5 fell below limit 2"},
		{OperatorLessOrEqual, 2, "Value 2 fell below limit 2"},
		{"Less_Than", 1.5, "Value 1.5 fell below limit 2"},
		{OperatorEqual, 2, "Value 2 reached limit 2"},
	}
	for _, tt := range tests {
		rule := &entities.MaintenanceTrigger{ID: "tr7", Name: "Oil Pressure", Operator: tt.operator, Threshold: 2, ActionTemplate: "Check oil pump"}
		req := em.Emit(rule, Reading{EquipmentID: "eq2", Parameter: "Oil_Pressure", Value: tt.value})
		assert.Contains(t, req.Description, tt.want, tt.operator)
	}
}

func TestNewLogEntry_StoresUTC(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+1800)
	observed := time.Date(2026, 1, 1, 15, 30, 0, 0, ist)
	entry := NewLogEntry(Reading{EquipmentID: "eq1", Parameter: ParameterTemperature, Value: 1, ObservedAt: observed}, false, time.Now())
	assert.Equal(t, time.UTC, entry.ObservedAt.Location())
	assert.True(t, entry.ObservedAt.Equal(observed))
}
