package repository

import (
	"context"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"gorm.io/gorm"
)

// ReadingRecorder persists the side effects of one ingested reading atomically.
type ReadingRecorder interface {
	// RecordReading inserts the requests, then the log entry, in one transaction.
	// Any failure rolls back every write.
	RecordReading(ctx context.Context, requests []*entities.MaintenanceRequest, entry *entities.TelemetryLog) error
}

type readingRecorder struct {
	db *gorm.DB
}

// NewReadingRecorder creates a ReadingRecorder backed by db transactions.
func NewReadingRecorder(db *gorm.DB) ReadingRecorder {
	return &readingRecorder{db: db}
}

func (r *readingRecorder) RecordReading(ctx context.Context, requests []*entities.MaintenanceRequest, entry *entities.TelemetryLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := NewMaintenanceRequestRepository(tx)
		for _, req := range requests {
			if err := requestRepo.CreateRequest(ctx, req); err != nil {
				return err
			}
		}
		return NewTelemetryLogRepository(tx).AppendLog(ctx, entry)
	})
}
