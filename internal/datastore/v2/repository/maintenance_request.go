package repository

import (
	"context"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
)

// MaintenanceRequestRepository stores maintenance tickets.
type MaintenanceRequestRepository interface {
	// CreateRequest appends a ticket, assigning a uuid when the id is empty. It never updates.
	CreateRequest(ctx context.Context, request *entities.MaintenanceRequest) error
	GetRequest(ctx context.Context, id string) (*entities.MaintenanceRequest, error)
	// ListRequests returns tickets newest first and the total matching count.
	ListRequests(ctx context.Context, filter MaintenanceRequestFilter) ([]entities.MaintenanceRequest, int64, error)
}

// MaintenanceRequestFilter controls ticket listing queries.
type MaintenanceRequestFilter struct {
	EquipmentID string
	TriggerID   string
	Stage       string
	Priority    string
	RequestType string
	Limit       int
	Offset      int
}
