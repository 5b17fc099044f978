package repository

import (
	"testing"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingRecorder_PersistsRequestsAndLog(t *testing.T) {
	db := setupTestDB(t)
	seedEquipment(t, db, "eq1")
	recorder := NewReadingRecorder(db)
	ctx := t.Context()
	now := time.Now().UTC()

	requests := []*entities.MaintenanceRequest{
		newRequest("eq1", entities.PriorityCritical, entities.StageNew, now),
		newRequest("eq1", entities.PriorityHigh, entities.StageNew, now),
	}
	entry := testLogEntry("eq1", "Temperature", 85, now, true)

	require.NoError(t, recorder.RecordReading(ctx, requests, entry))
	assert.NotEmpty(t, entry.ID)

	_, ticketCount, err := NewMaintenanceRequestRepository(db).ListRequests(ctx, MaintenanceRequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), ticketCount)

	_, logCount, err := NewTelemetryLogRepository(db).ListLogs(ctx, TelemetryLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), logCount)
}

func TestReadingRecorder_RollsBackOnLogFailure(t *testing.T) {
	db := setupTestDB(t)
	seedEquipment(t, db, "eq1")
	recorder := NewReadingRecorder(db)
	ctx := t.Context()
	now := time.Now().UTC()

	// The log entry references unknown equipment, so the final insert fails.
	requests := []*entities.MaintenanceRequest{newRequest("eq1", entities.PriorityCritical, entities.StageNew, now)}
	entry := testLogEntry("ghost", "Temperature", 85, now, true)

	require.Error(t, recorder.RecordReading(ctx, requests, entry))

	_, ticketCount, err := NewMaintenanceRequestRepository(db).ListRequests(ctx, MaintenanceRequestFilter{})
	require.NoError(t, err)
	assert.Zero(t, ticketCount, "ticket insert must be rolled back with the log entry")
}

func TestReadingRecorder_NoRequests(t *testing.T) {
	db := setupTestDB(t)
	seedEquipment(t, db, "eq1")

	entry := testLogEntry("eq1", "Temperature", 60, time.Now().UTC(), false)
	require.NoError(t, NewReadingRecorder(db).RecordReading(t.Context(), nil, entry))

	items, _, err := NewTelemetryLogRepository(db).ListLogs(t.Context(), TelemetryLogFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsAnomaly)
	assert.True(t, items[0].ProcessedFlag)
}
