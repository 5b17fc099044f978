package repository

import (
	"context"
	"fmt"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EquipmentRepository resolves equipment records for validation and display.
type EquipmentRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	GetEquipment(ctx context.Context, id string) (*entities.Equipment, error)
	ListEquipment(ctx context.Context) ([]entities.Equipment, error)
	// SaveEquipment inserts the record or updates name, serial, department and status.
	SaveEquipment(ctx context.Context, equipment *entities.Equipment) error
}

type equipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository creates a new EquipmentRepository.
func NewEquipmentRepository(db *gorm.DB) EquipmentRepository {
	return &equipmentRepository{db: db}
}

func (r *equipmentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Equipment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check equipment %s: %w", id, err)
	}
	return count > 0, nil
}

func (r *equipmentRepository) GetEquipment(ctx context.Context, id string) (*entities.Equipment, error) {
	var equipment entities.Equipment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&equipment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, fmt.Errorf("failed to get equipment %s: %w", id, err)
	}
	return &equipment, nil
}

func (r *equipmentRepository) ListEquipment(ctx context.Context) ([]entities.Equipment, error) {
	var items []entities.Equipment
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return items, nil
}

func (r *equipmentRepository) SaveEquipment(ctx context.Context, equipment *entities.Equipment) error {
	if equipment.Status == "" {
		equipment.Status = entities.EquipmentStatusActive
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "serial_number", "department", "status"}),
	}).Create(equipment).Error
	if err != nil {
		return fmt.Errorf("failed to save equipment %s: %w", equipment.ID, err)
	}
	return nil
}
