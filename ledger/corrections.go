package ledger

import (
	"fmt"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/shopspring/decimal"
)

// IssueUpdate holds the editable fields of an issue. Nil fields are kept.
type IssueUpdate struct {
	IssueDate   *time.Time
	KarigarID   *uint
	ProcessID   *uint
	DesignID    *uint // zero clears the design
	Pieces      *int
	GrossWeight *decimal.Decimal
	StoneWeight *decimal.Decimal
	Remarks     *string
	// ExpectedVersion, when non-zero, must match the stored issue version.
	ExpectedVersion uint
}

// ReceiptUpdate holds the editable fields of a receipt. Nil fields are kept.
type ReceiptUpdate struct {
	ReceiptDate   *time.Time
	Pieces        *int
	GrossWeight   *decimal.Decimal
	StoneWeight   *decimal.Decimal
	WastageWeight *decimal.Decimal
	Remarks       *string
	// AllowOverride accepts a revision that pushes the received total past the issued weight.
	AllowOverride bool
	// ExpectedIssueVersion, when non-zero, must match the stored issue version.
	ExpectedIssueVersion uint
}

// ReviseIssue applies u to issue in place. receipts are those already recorded against
// it: once there are any the karigar is fixed, and a new gross weight may not fall below
// the net weight already received. Net weight, totals and status are recomputed.
// On error issue is left untouched.
func ReviseIssue(issue *models.Issue, receipts []models.Receipt, u IssueUpdate) error {
	if err := checkVersion(issue, u.ExpectedVersion); err != nil {
		return err
	}

	next := *issue
	if u.IssueDate != nil {
		if u.IssueDate.IsZero() {
			return apperrors.Invalid("issue_date", "is required")
		}
		next.IssueDate = *u.IssueDate
	}
	if u.KarigarID != nil {
		if *u.KarigarID == 0 {
			return apperrors.Invalid("karigar_id", "is required")
		}
		if *u.KarigarID != issue.KarigarID && len(receipts) > 0 {
			return &apperrors.InvalidStateError{
				Entity: "issue",
				Status: string(issue.Status),
				Reason: fmt.Sprintf("the karigar cannot change once %d receipts are recorded", len(receipts)),
			}
		}
		next.KarigarID = *u.KarigarID
	}
	if u.ProcessID != nil {
		if *u.ProcessID == 0 {
			return apperrors.Invalid("process_id", "is required")
		}
		next.ProcessID = *u.ProcessID
	}
	if u.DesignID != nil {
		next.DesignID = nil
		if *u.DesignID != 0 {
			id := *u.DesignID
			next.DesignID = &id
		}
	}
	if u.Pieces != nil {
		if *u.Pieces < 1 {
			return apperrors.Invalid("pieces", "must be at least 1, got %d", *u.Pieces)
		}
		next.Pieces = *u.Pieces
	}
	if u.GrossWeight != nil {
		next.GrossWeight = *u.GrossWeight
	}
	if u.StoneWeight != nil {
		next.StoneWeight = *u.StoneWeight
	}
	if err := checkWeight("gross_weight", next.GrossWeight); err != nil {
		return err
	}
	if err := checkWeight("stone_weight", next.StoneWeight); err != nil {
		return err
	}
	if next.StoneWeight.GreaterThan(next.GrossWeight) {
		return apperrors.Invalid("stone_weight", "%s exceeds gross weight %s", next.StoneWeight, next.GrossWeight)
	}

	received, _ := Totals(receipts)
	if u.GrossWeight != nil && next.GrossWeight.LessThan(received) {
		return &apperrors.BalanceExceededError{
			IssueNo:  issue.IssueNo,
			Issued:   next.GrossWeight,
			Received: received,
			Overage:  received.Sub(next.GrossWeight),
		}
	}
	if u.Remarks != nil {
		next.Remarks = optional(*u.Remarks)
	}

	next.NetWeight = next.GrossWeight.Sub(next.StoneWeight)
	settle(&next, receipts)
	*issue = next
	return nil
}

// CheckIssueDeletable allows deleting an issue only while nothing has been received
// against it.
func CheckIssueDeletable(issue *models.Issue, receipts []models.Receipt, expectedVersion uint) error {
	if err := checkVersion(issue, expectedVersion); err != nil {
		return err
	}
	if len(receipts) > 0 {
		return &apperrors.InvalidStateError{
			Entity: "issue",
			Status: string(issue.Status),
			Reason: fmt.Sprintf("%d receipts are recorded against it", len(receipts)),
		}
	}
	return nil
}

// ReviseReceipt re-checks existing with u applied, as if it were received again after
// others, the remaining receipts of the issue. On success it returns the revised receipt
// and updates issue's totals and status in place. On error issue is left untouched.
func ReviseReceipt(issue *models.Issue, others []models.Receipt, existing *models.Receipt, u ReceiptUpdate) (*models.Receipt, error) {
	req := ReceiptRequest{
		ReceiptNo:            existing.ReceiptNo,
		ReceiptDate:          existing.ReceiptDate,
		Pieces:               existing.Pieces,
		GrossWeight:          existing.GrossWeight,
		StoneWeight:          existing.StoneWeight,
		WastageWeight:        existing.WastageWeight,
		AllowOverride:        u.AllowOverride,
		ExpectedIssueVersion: u.ExpectedIssueVersion,
	}
	if existing.Remarks != nil {
		req.Remarks = *existing.Remarks
	}
	if u.ReceiptDate != nil {
		if u.ReceiptDate.IsZero() {
			return nil, apperrors.Invalid("receipt_date", "is required")
		}
		req.ReceiptDate = *u.ReceiptDate
	}
	if u.Pieces != nil {
		req.Pieces = *u.Pieces
	}
	if u.GrossWeight != nil {
		req.GrossWeight = *u.GrossWeight
	}
	if u.StoneWeight != nil {
		req.StoneWeight = *u.StoneWeight
	}
	if u.WastageWeight != nil {
		req.WastageWeight = *u.WastageWeight
	}
	if u.Remarks != nil {
		req.Remarks = *u.Remarks
	}

	revised, err := ApplyReceipt(issue, others, req)
	if err != nil {
		return nil, err
	}
	revised.ID = existing.ID
	revised.CreatedAt = existing.CreatedAt
	return revised, nil
}

// WithdrawReceipt recomputes issue's totals and status from the receipts that remain
// once one is deleted.
func WithdrawReceipt(issue *models.Issue, remaining []models.Receipt, expectedVersion uint) error {
	if err := checkVersion(issue, expectedVersion); err != nil {
		return err
	}
	settle(issue, remaining)
	return nil
}

// settle derives the received totals, balance and status of issue from receipts.
func settle(issue *models.Issue, receipts []models.Receipt) {
	received, pieces := Totals(receipts)
	issue.ReceivedWeight = received
	issue.ReceivedPieces = pieces
	issue.Balance = issue.RemainingBalance()
	issue.Status = DeriveStatus(issue.GrossWeight, received, len(receipts))
}

// ReceiptSummary totals what has come back against one issue.
type ReceiptSummary struct {
	IssueID            uint               `json:"issue_id"`
	IssueNo            string             `json:"issue_no"`
	IssueGrossWeight   decimal.Decimal    `json:"issue_gross_weight"`
	IssueNetWeight     decimal.Decimal    `json:"issue_net_weight"`
	TotalReceipts      int                `json:"total_receipts"`
	TotalPieces        int                `json:"total_pieces"`
	TotalGrossReceived decimal.Decimal    `json:"total_gross_received"`
	TotalNetReceived   decimal.Decimal    `json:"total_net_received"`
	TotalWastage       decimal.Decimal    `json:"total_wastage"`
	Balance            decimal.Decimal    `json:"balance"` // issued gross not yet received, as on the issue
	Status             models.IssueStatus `json:"status"`
}

// Summarize totals receipts against issue.
func Summarize(issue *models.Issue, receipts []models.Receipt) ReceiptSummary {
	summary := ReceiptSummary{
		IssueID:            issue.ID,
		IssueNo:            issue.IssueNo,
		IssueGrossWeight:   issue.GrossWeight,
		IssueNetWeight:     issue.NetWeight,
		TotalReceipts:      len(receipts),
		TotalGrossReceived: decimal.Zero,
		TotalWastage:       decimal.Zero,
		Status:             issue.Status,
	}
	for _, r := range receipts {
		summary.TotalGrossReceived = summary.TotalGrossReceived.Add(r.GrossWeight)
		summary.TotalWastage = summary.TotalWastage.Add(r.WastageWeight)
	}
	summary.TotalNetReceived, summary.TotalPieces = Totals(receipts)
	summary.Balance = issue.GrossWeight.Sub(summary.TotalNetReceived)
	return summary
}
