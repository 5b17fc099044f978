package cbm

import (
	"math"
	"strings"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
)

// Reading is a single telemetry sample for one equipment parameter.
type Reading struct {
	EquipmentID string    `json:"equipment_id"`
	Parameter   string    `json:"parameter"`
	Value       float64   `json:"value"`
	ObservedAt  time.Time `json:"observed_at,omitzero"`
}

// normalize trims identifiers and rejects readings that cannot be evaluated.
func (r Reading) normalize() (Reading, error) {
	r.EquipmentID = strings.TrimSpace(r.EquipmentID)
	r.Parameter = strings.TrimSpace(r.Parameter)
	// Stored times must share one offset: sqlite orders them as text.
	if !r.ObservedAt.IsZero() {
		r.ObservedAt = r.ObservedAt.UTC()
	}
	if r.EquipmentID == "" {
		return r, validationError(r, "equipment id is required")
	}
	if r.Parameter == "" {
		return r, validationError(r, "parameter is required")
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return r, validationError(r, "value must be a finite number")
	}
	return r, nil
}

// IngestResult reports what one reading caused.
type IngestResult struct {
	IsAnomaly      bool                          `json:"is_anomaly"`
	ViolatedRules  []entities.MaintenanceTrigger `json:"violated_rules"`
	TicketsCreated []entities.MaintenanceRequest `json:"tickets_created"`
	// SuppressedRules lists ids of violated rules the incident policy did not admit.
	SuppressedRules []string `json:"suppressed_rules,omitempty"`
	LogEntryID      string   `json:"log_entry_id"`
	Message         string   `json:"message"`
}
