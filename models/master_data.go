package models

import (
	"time"

	"gorm.io/gorm"
)

// Karigar represents an outside contractor that work is issued to
type Karigar struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Code      string         `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Contact   *string        `gorm:"size:20" json:"contact"`
	Address   *string        `gorm:"type:text" json:"address"`
	Active    bool           `gorm:"not null" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Karigar model
func (Karigar) TableName() string {
	return "karigars"
}

// Process represents a named production step (casting, filing, polishing, ...)
type Process struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description *string        `gorm:"type:text" json:"description"`
	Active      bool           `gorm:"not null" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Process model
func (Process) TableName() string {
	return "processes"
}

// Design represents a catalog design that issues can reference
type Design struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Code        string         `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Category    *string        `gorm:"size:50" json:"category"`
	Description *string        `gorm:"type:text" json:"description"`
	Active      bool           `gorm:"not null" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Design model
func (Design) TableName() string {
	return "designs"
}
