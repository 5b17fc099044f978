package entities

import "time"

// Request types.
const (
	RequestTypeCorrective     = "Corrective"
	RequestTypePreventive     = "Preventive"
	RequestTypeConditionBased = "Condition_Based"
)

// Workflow stages. StageNew is the entry state.
const (
	StageNew        = "New"
	StageInProgress = "In Progress"
	StageRepaired   = "Repaired"
	StageScrap      = "Scrap"
)

// Priorities.
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// MaintenanceRequest is a maintenance ticket. Requests created by the trigger
// engine carry the trigger id and a system creator.
type MaintenanceRequest struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	EquipmentID string    `gorm:"size:64;not null;index" json:"equipment_id"`
	TriggerID   *string   `gorm:"size:64;index" json:"trigger_id,omitempty"`
	RequestType string    `gorm:"size:20;not null;default:'Corrective';index" json:"request_type"`
	Priority    string    `gorm:"size:20;not null;default:'Medium';index" json:"priority"`
	Stage       string    `gorm:"size:20;not null;default:'New';index" json:"stage"`
	CreatedBy   string    `gorm:"size:64;not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Equipment   Equipment `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (MaintenanceRequest) TableName() string {
	return "maintenance_requests"
}
