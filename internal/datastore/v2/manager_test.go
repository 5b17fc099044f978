package v2

import (
	"testing"

	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) Manager {
	t.Helper()
	mgr, err := NewSQLiteManager(Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize())
	return mgr
}

func TestSQLiteManager_InitializeCreatesTables(t *testing.T) {
	mgr := setupManager(t)

	migrator := mgr.DB().Migrator()
	for _, model := range entities.All() {
		assert.True(t, migrator.HasTable(model), "missing table for %T", model)
	}
	assert.Equal(t, "sqlite", mgr.Dialect())
	require.NoError(t, mgr.Ping(t.Context()))
}

func TestSQLiteManager_InitializeIsIdempotent(t *testing.T) {
	mgr := setupManager(t)
	require.NoError(t, mgr.Initialize())
}

func TestSQLiteManager_ForeignKeysEnforced(t *testing.T) {
	mgr := setupManager(t)

	err := mgr.DB().Create(&entities.TelemetryLog{ID: "x", EquipmentID: "ghost", Parameter: "Temperature"}).Error
	assert.Error(t, err)
}

func TestOpen_SelectsDialect(t *testing.T) {
	dir := t.TempDir()
	mgr, err := Open(&conf.DatabaseSettings{Type: "sqlite", Path: dir + "/cbm.db"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	assert.Equal(t, "sqlite", mgr.Dialect())

	_, err = Open(&conf.DatabaseSettings{Type: "oracle"}, nil)
	assert.Error(t, err)

	_, err = Open(&conf.DatabaseSettings{Type: "mysql"}, nil)
	assert.Error(t, err, "mysql without dsn must fail before dialing")
}
