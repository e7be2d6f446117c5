package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock register transaction types
const (
	TransactionIssue   = "Issue"
	TransactionReceipt = "Receipt"
	// Reversals cancel an earlier entry when its issue or receipt is corrected or deleted
	TransactionIssueReversal   = "IssueReversal"
	TransactionReceiptReversal = "ReceiptReversal"
)

// StockRegisterEntry is one weight movement between the workshop and a karigar.
// Out columns are filled by issues, in columns by receipts.
type StockRegisterEntry struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	TransactionType string          `gorm:"size:16;not null;index" json:"transaction_type"`
	TransactionID   uint            `gorm:"not null" json:"transaction_id"`
	TransactionNo   string          `gorm:"size:32;not null" json:"transaction_no"`
	TransactionDate time.Time       `gorm:"not null;index" json:"transaction_date"`
	KarigarID       uint            `gorm:"not null;index" json:"karigar_id"`
	GrossWeightIn   decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"gross_weight_in"`
	GrossWeightOut  decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"gross_weight_out"`
	NetWeightIn     decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"net_weight_in"`
	NetWeightOut    decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"net_weight_out"`
	BalanceGross    decimal.Decimal `gorm:"-" json:"balance_gross"` // running weight outstanding with karigars
	BalanceNet      decimal.Decimal `gorm:"-" json:"balance_net"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for the StockRegisterEntry model
func (StockRegisterEntry) TableName() string {
	return "stock_register"
}

// Sequence is the per-day counter behind document numbers
type Sequence struct {
	Prefix    string    `gorm:"primaryKey;size:8" json:"prefix"`
	Day       string    `gorm:"primaryKey;size:8" json:"day"`
	Value     int       `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Sequence model
func (Sequence) TableName() string {
	return "sequences"
}
