package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Issue represents material handed to a karigar for a process
type Issue struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	IssueNo        string          `gorm:"size:32;uniqueIndex;not null" json:"issue_no"`
	IssueDate      time.Time       `gorm:"not null;index" json:"issue_date"`
	KarigarID      uint            `gorm:"not null;index" json:"karigar_id"`
	Karigar        *Karigar        `gorm:"foreignKey:KarigarID" json:"karigar,omitempty"`
	ProcessID      uint            `gorm:"not null;index" json:"process_id"`
	Process        *Process        `gorm:"foreignKey:ProcessID" json:"process,omitempty"`
	DesignID       *uint           `gorm:"index" json:"design_id"`
	Design         *Design         `gorm:"foreignKey:DesignID" json:"design,omitempty"`
	Pieces         int             `gorm:"not null;check:pieces > 0" json:"pieces"`
	GrossWeight    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"gross_weight"`
	StoneWeight    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"stone_weight"`
	NetWeight      decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"net_weight"` // always gross - stone
	ReceivedWeight decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"received_weight"`
	ReceivedPieces int             `gorm:"not null;default:0" json:"received_pieces"`
	Balance        decimal.Decimal `gorm:"-" json:"balance"`
	Remarks        *string         `gorm:"type:text" json:"remarks"`
	Status         IssueStatus     `gorm:"size:16;not null;default:'Pending';index" json:"status"`
	Version        uint            `gorm:"not null;default:1" json:"version"`
	Receipts       []Receipt       `gorm:"foreignKey:IssueID" json:"receipts,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Issue model
func (Issue) TableName() string {
	return "issues"
}

// RemainingBalance is the issued gross weight not yet received back
func (i *Issue) RemainingBalance() decimal.Decimal {
	return i.GrossWeight.Sub(i.ReceivedWeight)
}

// AfterFind fills the computed balance
func (i *Issue) AfterFind(tx *gorm.DB) error {
	i.Balance = i.RemainingBalance()
	return nil
}

// Receipt represents material returned by a karigar against an issue
type Receipt struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ReceiptNo       string          `gorm:"size:32;uniqueIndex;not null" json:"receipt_no"`
	ReceiptDate     time.Time       `gorm:"not null;index" json:"receipt_date"`
	IssueID         uint            `gorm:"not null;index" json:"issue_id"`
	Issue           *Issue          `gorm:"foreignKey:IssueID" json:"issue,omitempty"`
	KarigarID       uint            `gorm:"not null;index" json:"karigar_id"` // copied from the issue
	Karigar         *Karigar        `gorm:"foreignKey:KarigarID" json:"karigar,omitempty"`
	Pieces          int             `gorm:"not null;check:pieces > 0" json:"pieces"`
	GrossWeight     decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"gross_weight"`
	StoneWeight     decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"stone_weight"`
	WastageWeight   decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"wastage_weight"`
	NetWeight       decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"net_weight"` // gross - stone - wastage
	OverrideApplied bool            `gorm:"not null;default:false" json:"override_applied"`
	Overage         decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"overage"` // weight accepted beyond the issue balance
	Remarks         *string         `gorm:"type:text" json:"remarks"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}
