package entities

import "time"

// TelemetryLog is the append-only record of one ingested reading.
type TelemetryLog struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	EquipmentID   string    `gorm:"size:64;not null;index:idx_telemetry_equipment_observed,priority:1" json:"equipment_id"`
	Parameter     string    `gorm:"size:100;not null;index" json:"parameter"`
	Value         float64   `gorm:"not null" json:"value"`
	ObservedAt    time.Time `gorm:"not null;index;index:idx_telemetry_equipment_observed,priority:2" json:"observed_at"`
	IsAnomaly     bool      `gorm:"not null;default:false;index" json:"is_anomaly"`
	ProcessedFlag bool      `gorm:"not null;default:false" json:"processed_flag"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	Equipment     Equipment `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (TelemetryLog) TableName() string {
	return "machine_telemetry_log"
}
