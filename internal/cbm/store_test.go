package cbm

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/repository"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// setupSQLiteEngine runs the engine against the gorm repositories on an isolated
// in-memory database seeded with the default plant.
func setupSQLiteEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:cbm_%s?mode=memory&cache=shared&_foreign_keys=ON", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(entities.All()...))

	repos := NewRepositories(db)
	require.NoError(t, SeedDefaults(t.Context(), repos, testLogger()))

	e := NewEngine(repos, testLogger())
	t.Cleanup(e.Stop)
	return e, db
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSQLiteEngine_IngestPersistsAtomically(t *testing.T) {
	e, db := setupSQLiteEngine(t)

	result, err := e.Ingest(t.Context(), Reading{EquipmentID: "eq3", Parameter: ParameterRunningHours, Value: 512})
	require.NoError(t, err)
	require.Len(t, result.TicketsCreated, 1)
	assert.Equal(t, "AUTO-ALERT: Oil Change Interval (Value: 512)", result.TicketsCreated[0].Title)

	var stored entities.MaintenanceRequest
	require.NoError(t, db.First(&stored, "id = ?", result.TicketsCreated[0].ID).Error)
	assert.Equal(t, entities.RequestTypeConditionBased, stored.RequestType)
	require.NotNil(t, stored.TriggerID)
	assert.Equal(t, "tr2", *stored.TriggerID)

	var entry entities.TelemetryLog
	require.NoError(t, db.First(&entry, "id = ?", result.LogEntryID).Error)
	assert.True(t, entry.IsAnomaly)
}

func TestSQLiteEngine_UnknownEquipmentWritesNothing(t *testing.T) {
	e, db := setupSQLiteEngine(t)

	_, err := e.Ingest(t.Context(), Reading{EquipmentID: "eq99", Parameter: ParameterTemperature, Value: 200})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	assert.Zero(t, countRows(t, db, &entities.TelemetryLog{}))
	assert.Zero(t, countRows(t, db, &entities.MaintenanceRequest{}))
}

func TestSQLiteEngine_FailedLogRollsBackTickets(t *testing.T) {
	e, db := setupSQLiteEngine(t)

	// Make the log insert fail after the ticket insert succeeded.
	require.NoError(t, db.Exec("CREATE TRIGGER fail_log BEFORE INSERT ON machine_telemetry_log BEGIN SELECT RAISE(ABORT, 'log unavailable'); END").Error)

	_, err := e.Ingest(t.Context(), Reading{EquipmentID: "eq1", Parameter: ParameterTemperature, Value: 99})
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))

	assert.Zero(t, countRows(t, db, &entities.MaintenanceRequest{}), "ticket insert must be rolled back")
	assert.Zero(t, countRows(t, db, &entities.TelemetryLog{}))
}

func TestSQLiteEngine_ConcurrentIngest(t *testing.T) {
	e, db := setupSQLiteEngine(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			_, err := e.Ingest(t.Context(), Reading{EquipmentID: "eq1", Parameter: ParameterTemperature, Value: float64(70 + i)})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Equal(t, int64(20), countRows(t, db, &entities.TelemetryLog{}))
	// Values 81..89 exceed the 80 threshold.
	assert.Equal(t, int64(9), countRows(t, db, &entities.MaintenanceRequest{}))

	entries, _, err := e.ListLog(t.Context(), repository.TelemetryLogFilter{AnomalyOnly: true})
	require.NoError(t, err)
	assert.Len(t, entries, 9)
}

func TestSQLiteEngine_MixedOffsetsStoredInUTC(t *testing.T) {
	e, db := setupSQLiteEngine(t)

	ist := time.FixedZone("IST", 5*3600+1800)
	// 10:00Z sent with a +05:30 offset, then 12:00Z sent in UTC.
	first := time.Date(2026, 1, 1, 15, 30, 0, 0, ist)
	second := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := e.Ingest(t.Context(), Reading{EquipmentID: "eq1", Parameter: ParameterTemperature, Value: 1, ObservedAt: first})
	require.NoError(t, err)
	_, err = e.Ingest(t.Context(), Reading{EquipmentID: "eq1", Parameter: ParameterTemperature, Value: 2, ObservedAt: second})
	require.NoError(t, err)

	entries, err := e.ListRecentLog(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.InDelta(t, 2.0, entries[0].Value, 0.0001, "newest observation first")
	assert.InDelta(t, 1.0, entries[1].Value, 0.0001)
	assert.True(t, entries[1].ObservedAt.Equal(first))

	// Cutoff 11:00Z, expressed with yet another offset.
	cutoff := time.Date(2026, 1, 1, 6, 0, 0, 0, time.FixedZone("EST", -5*3600))
	deleted, err := repository.NewTelemetryLogRepository(db).DeleteLogsBefore(t.Context(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err = e.ListRecentLog(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 2.0, entries[0].Value, 0.0001)
}
