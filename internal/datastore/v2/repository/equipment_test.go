package repository

import (
	"testing"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquipmentRepository_SaveIsUpsert(t *testing.T) {
	repo := NewEquipmentRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.SaveEquipment(ctx, &entities.Equipment{ID: "eq1", Name: "CNC Machine 01"}))
	require.NoError(t, repo.SaveEquipment(ctx, &entities.Equipment{ID: "eq1", Name: "CNC Machine 01 (rebuilt)", Status: entities.EquipmentStatusUnderMaintenance}))

	got, err := repo.GetEquipment(ctx, "eq1")
	require.NoError(t, err)
	assert.Equal(t, "CNC Machine 01 (rebuilt)", got.Name)
	assert.Equal(t, entities.EquipmentStatusUnderMaintenance, got.Status)

	items, err := repo.ListEquipment(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestEquipmentRepository_Exists(t *testing.T) {
	db := setupTestDB(t)
	seedEquipment(t, db, "eq1")
	repo := NewEquipmentRepository(db)

	ok, err := repo.Exists(t.Context(), "eq1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(t.Context(), "eq404")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetEquipment(t.Context(), "eq404")
	assert.ErrorIs(t, err, ErrEquipmentNotFound)
}
