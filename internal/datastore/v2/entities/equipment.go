package entities

import "time"

// Equipment status values.
const (
	EquipmentStatusActive           = "Active"
	EquipmentStatusUnderMaintenance = "Under Maintenance"
	EquipmentStatusScrapped         = "Scrapped"
)

// Equipment is a monitored asset. The trigger engine only needs its id and name.
type Equipment struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	SerialNumber string    `gorm:"size:100;default:''" json:"serial_number"`
	Department   string    `gorm:"size:100;default:''" json:"department"`
	Status       string    `gorm:"size:20;not null;default:'Active'" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (Equipment) TableName() string {
	return "equipment"
}
