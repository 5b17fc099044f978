package repository

import (
	"context"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
)

// TelemetryLogRepository stores the reading audit log.
type TelemetryLogRepository interface {
	// AppendLog inserts one entry, assigning a uuid when the id is empty.
	AppendLog(ctx context.Context, entry *entities.TelemetryLog) error
	// ListLogs returns entries newest first and the total matching count.
	ListLogs(ctx context.Context, filter TelemetryLogFilter) ([]entities.TelemetryLog, int64, error)
	DeleteLogsBefore(ctx context.Context, before time.Time) (int64, error)
}

// TelemetryLogFilter controls log listing queries.
type TelemetryLogFilter struct {
	EquipmentID string
	Parameter   string
	AnomalyOnly bool
	Limit       int
	Offset      int
}
