package entities

import "time"

// MaintenanceTrigger is a threshold rule on one equipment/parameter pair.
// When a reading violates it, the engine opens a condition-based maintenance request.
type MaintenanceTrigger struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	EquipmentID    string    `gorm:"size:64;not null;index:idx_trigger_scope,priority:1" json:"equipment_id"`
	Name           string    `gorm:"size:200;not null" json:"name"`
	Description    string    `gorm:"size:1000;default:''" json:"description"`
	Parameter      string    `gorm:"size:50;not null;index:idx_trigger_scope,priority:2" json:"parameter"`
	Operator       string    `gorm:"size:20;not null" json:"operator"`
	Threshold      float64   `gorm:"not null" json:"threshold"`
	ActionTemplate string    `gorm:"size:2000;default:''" json:"action_template"`
	Priority       string    `gorm:"size:20;not null;default:'Critical'" json:"priority"`
	IsActive       bool      `gorm:"not null;index" json:"is_active"`
	SortOrder      int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Equipment      Equipment `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (MaintenanceTrigger) TableName() string {
	return "maintenance_triggers"
}
