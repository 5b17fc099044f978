package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newestFirst orders log entries by observation time, breaking ties by insertion.
const newestFirst = "observed_at DESC, created_at DESC"

type telemetryLogRepository struct {
	db *gorm.DB
}

// NewTelemetryLogRepository creates a new TelemetryLogRepository.
func NewTelemetryLogRepository(db *gorm.DB) TelemetryLogRepository {
	return &telemetryLogRepository{db: db}
}

// AppendLog inserts a telemetry log entry.
func (r *telemetryLogRepository) AppendLog(ctx context.Context, entry *entities.TelemetryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append telemetry log: %w", err)
	}
	return nil
}

// ListLogs returns matching entries newest first with the total count.
func (r *telemetryLogRepository) ListLogs(ctx context.Context, filter TelemetryLogFilter) ([]entities.TelemetryLog, int64, error) {
	var items []entities.TelemetryLog
	var total int64

	scoped := func(q *gorm.DB) *gorm.DB {
		if filter.EquipmentID != "" {
			q = q.Where("equipment_id = ?", filter.EquipmentID)
		}
		if filter.Parameter != "" {
			q = q.Where("parameter = ?", filter.Parameter)
		}
		if filter.AnomalyOnly {
			q = q.Where("is_anomaly = ?", true)
		}
		return q
	}

	if err := scoped(r.db.WithContext(ctx).Model(&entities.TelemetryLog{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count telemetry log: %w", err)
	}

	query := scoped(r.db.WithContext(ctx)).Order(newestFirst)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list telemetry log: %w", err)
	}
	return items, total, nil
}

// DeleteLogsBefore removes entries observed before the cutoff.
func (r *telemetryLogRepository) DeleteLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("observed_at < ?", before.UTC()).Delete(&entities.TelemetryLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete telemetry log before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}
