package repository

import (
	"context"
	"fmt"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type maintenanceRequestRepository struct {
	db *gorm.DB
}

// NewMaintenanceRequestRepository creates a new MaintenanceRequestRepository.
func NewMaintenanceRequestRepository(db *gorm.DB) MaintenanceRequestRepository {
	return &maintenanceRequestRepository{db: db}
}

func (r *maintenanceRequestRepository) CreateRequest(ctx context.Context, request *entities.MaintenanceRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return fmt.Errorf("failed to create maintenance request: %w", err)
	}
	return nil
}

func (r *maintenanceRequestRepository) GetRequest(ctx context.Context, id string) (*entities.MaintenanceRequest, error) {
	var request entities.MaintenanceRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get maintenance request %s: %w", id, err)
	}
	return &request, nil
}

func (r *maintenanceRequestRepository) ListRequests(ctx context.Context, filter MaintenanceRequestFilter) ([]entities.MaintenanceRequest, int64, error) {
	var items []entities.MaintenanceRequest
	var total int64

	scoped := func(q *gorm.DB) *gorm.DB {
		if filter.EquipmentID != "" {
			q = q.Where("equipment_id = ?", filter.EquipmentID)
		}
		if filter.TriggerID != "" {
			q = q.Where("trigger_id = ?", filter.TriggerID)
		}
		if filter.Stage != "" {
			q = q.Where("stage = ?", filter.Stage)
		}
		if filter.Priority != "" {
			q = q.Where("priority = ?", filter.Priority)
		}
		if filter.RequestType != "" {
			q = q.Where("request_type = ?", filter.RequestType)
		}
		return q
	}

	if err := scoped(r.db.WithContext(ctx).Model(&entities.MaintenanceRequest{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count maintenance requests: %w", err)
	}

	query := scoped(r.db.WithContext(ctx)).Order("created_at DESC, id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list maintenance requests: %w", err)
	}
	return items, total, nil
}
