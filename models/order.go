package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order represents one manufacturing job
type Order struct {
	ID                  uint                        `gorm:"primaryKey" json:"id"`
	OrderNo             string                      `gorm:"size:32;uniqueIndex;not null" json:"order_no"` // immutable after creation
	BagNo               *string                     `gorm:"size:64" json:"bag_no"`
	ClientName          string                      `gorm:"not null" json:"client_name"`
	ClientCategory      ClientCategory              `gorm:"size:16;not null;default:'RETAIL'" json:"client_category"`
	UrgencyLevel        UrgencyLevel                `gorm:"size:16;not null;default:'NORMAL'" json:"urgency_level"`
	DesignNo            *string                     `json:"design_no"`
	Description         string                      `gorm:"type:text" json:"description"`
	Quantity            int                         `gorm:"not null;check:quantity > 0" json:"quantity"`
	StoneType           *string                     `json:"stone_type"`
	StoneSize           *string                     `json:"stone_size"`
	StoneQuality        *string                     `json:"stone_quality"`
	SpecialInstructions *string                     `gorm:"type:text" json:"special_instructions"`
	OrderDate           time.Time                   `gorm:"not null" json:"order_date"`
	DeliveryDate        *time.Time                  `json:"delivery_date"`
	CurrentStatus       OrderStatus                 `gorm:"size:32;not null;index" json:"current_status"`
	CurrentLocation     Location                    `gorm:"size:16;not null;index" json:"current_location"`
	CurrentKarigarID    *uint                       `gorm:"index" json:"current_karigar_id"` // set only while at a karigar
	CurrentKarigar      *Karigar                    `gorm:"foreignKey:CurrentKarigarID" json:"current_karigar,omitempty"`
	CurrentProcessID    *uint                       `gorm:"index" json:"current_process_id"`
	CurrentProcess      *Process                    `gorm:"foreignKey:CurrentProcessID" json:"current_process,omitempty"`
	HeldFromStatus      *OrderStatus                `gorm:"size:32" json:"held_from_status,omitempty"` // pipeline status an ON_HOLD or REWORK_REQUIRED order resumes from
	ProgressPercentage  float64                     `gorm:"not null;default:0" json:"progress_percentage"`
	EstimatedCompletion *time.Time                  `json:"estimated_completion"`
	ImageURLs           datatypes.JSONSlice[string] `json:"image_urls"`
	DocumentURLs        datatypes.JSONSlice[string] `json:"document_urls"`
	Version             uint                        `gorm:"not null;default:1" json:"version"`
	StatusHistory       []OrderStatusHistory        `gorm:"foreignKey:OrderID" json:"status_history,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderStatusHistory is one immutable record of an accepted status transition
type OrderStatusHistory struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OrderID        uint         `gorm:"not null;index" json:"order_id"`
	PreviousStatus *OrderStatus `gorm:"size:32" json:"previous_status"` // nil for the creation entry
	NewStatus      OrderStatus  `gorm:"size:32;not null" json:"new_status"`
	Location       Location     `gorm:"size:16;not null" json:"location"`
	KarigarID      *uint        `gorm:"index" json:"karigar_id"`
	Karigar        *Karigar     `gorm:"foreignKey:KarigarID" json:"karigar,omitempty"`
	ProcessID      *uint        `json:"process_id"`
	Process        *Process     `gorm:"foreignKey:ProcessID" json:"process,omitempty"`
	StatusDate     time.Time    `gorm:"not null;index" json:"status_date"`
	Comments       string       `gorm:"type:text" json:"comments"`
	ChangedBy      *string      `json:"changed_by"`
	CreatedAt      time.Time    `json:"created_at"`
}

// TableName specifies the table name for the OrderStatusHistory model
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
