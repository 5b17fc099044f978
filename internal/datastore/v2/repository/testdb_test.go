package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// setupTestDB creates an isolated in-memory SQLite database per test.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=ON", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entities.All()...), "failed to migrate tables")
	return db
}

// seedEquipment inserts equipment rows with the given ids.
func seedEquipment(t *testing.T, db *gorm.DB, ids ...string) {
	t.Helper()
	repo := NewEquipmentRepository(db)
	for _, id := range ids {
		require.NoError(t, repo.SaveEquipment(t.Context(), &entities.Equipment{ID: id, Name: "Machine " + id}))
	}
}

func createTestTrigger(t *testing.T, repo TriggerRepository, equipmentID, name, parameter string, threshold float64) *entities.MaintenanceTrigger {
	t.Helper()
	trigger := &entities.MaintenanceTrigger{
		EquipmentID:    equipmentID,
		Name:           name,
		Parameter:      parameter,
		Operator:       "greater_than",
		Threshold:      threshold,
		ActionTemplate: "Inspect",
		Priority:       entities.PriorityHigh,
		IsActive:       true,
	}
	require.NoError(t, repo.CreateTrigger(t.Context(), trigger))
	return trigger
}

func testLogEntry(equipmentID, parameter string, value float64, observedAt time.Time, anomaly bool) *entities.TelemetryLog {
	return &entities.TelemetryLog{
		EquipmentID:   equipmentID,
		Parameter:     parameter,
		Value:         value,
		ObservedAt:    observedAt,
		IsAnomaly:     anomaly,
		ProcessedFlag: true,
	}
}
