// Package ledger implements the material balance rules for work issued to karigars:
// net weight computation, the cumulative balance check for receipts and the derived
// issue status. It performs no I/O; callers persist what it returns.
package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/shopspring/decimal"
)

// IssueRequest holds the input for a new issue. Net weight is always derived.
type IssueRequest struct {
	IssueNo     string
	IssueDate   time.Time
	KarigarID   uint
	ProcessID   uint
	DesignID    *uint
	Pieces      int
	GrossWeight decimal.Decimal
	StoneWeight decimal.Decimal
	Remarks     string
}

// ReceiptRequest holds the input for a receipt against an issue.
type ReceiptRequest struct {
	ReceiptNo     string
	ReceiptDate   time.Time
	Pieces        int
	GrossWeight   decimal.Decimal
	StoneWeight   decimal.Decimal
	WastageWeight decimal.Decimal
	Remarks       string
	// AllowOverride accepts a receipt that pushes the received total past the issued weight.
	AllowOverride bool
	// ExpectedIssueVersion, when non-zero, must match the stored issue version.
	ExpectedIssueVersion uint
}

// WeightPlaces is the number of decimal places weights are stored with.
const WeightPlaces = 3

// checkWeight rejects negative weights and weights finer than the stored precision.
func checkWeight(field string, w decimal.Decimal) error {
	if w.IsNegative() {
		return apperrors.Invalid(field, "must not be negative")
	}
	if !w.Equal(w.Truncate(WeightPlaces)) {
		return apperrors.Invalid(field, "%s has more than %d decimal places", w, WeightPlaces)
	}
	return nil
}

// NewIssue validates req and builds a pending issue.
func NewIssue(req IssueRequest) (*models.Issue, error) {
	if req.KarigarID == 0 {
		return nil, apperrors.Invalid("karigar_id", "is required")
	}
	if req.ProcessID == 0 {
		return nil, apperrors.Invalid("process_id", "is required")
	}
	if req.Pieces < 1 {
		return nil, apperrors.Invalid("pieces", "must be at least 1, got %d", req.Pieces)
	}
	if err := checkWeight("gross_weight", req.GrossWeight); err != nil {
		return nil, err
	}
	if err := checkWeight("stone_weight", req.StoneWeight); err != nil {
		return nil, err
	}
	if req.StoneWeight.GreaterThan(req.GrossWeight) {
		return nil, apperrors.Invalid("stone_weight", "%s exceeds gross weight %s", req.StoneWeight, req.GrossWeight)
	}

	return &models.Issue{
		IssueNo:        req.IssueNo,
		IssueDate:      req.IssueDate,
		KarigarID:      req.KarigarID,
		ProcessID:      req.ProcessID,
		DesignID:       req.DesignID,
		Pieces:         req.Pieces,
		GrossWeight:    req.GrossWeight,
		StoneWeight:    req.StoneWeight,
		NetWeight:      req.GrossWeight.Sub(req.StoneWeight),
		ReceivedWeight: decimal.Zero,
		Balance:        req.GrossWeight,
		Remarks:        optional(req.Remarks),
		Status:         models.IssuePending,
	}, nil
}

// ApplyReceipt checks req against issue and the receipts already recorded for it. On
// success it returns the new receipt and updates issue's received totals, balance and
// status in place. On error issue is left untouched.
func ApplyReceipt(issue *models.Issue, prior []models.Receipt, req ReceiptRequest) (*models.Receipt, error) {
	if err := checkVersion(issue, req.ExpectedIssueVersion); err != nil {
		return nil, err
	}
	if req.Pieces < 1 {
		return nil, apperrors.Invalid("pieces", "must be at least 1, got %d", req.Pieces)
	}
	weights := []struct {
		field string
		value decimal.Decimal
	}{
		{"gross_weight", req.GrossWeight},
		{"stone_weight", req.StoneWeight},
		{"wastage_weight", req.WastageWeight},
	}
	for _, w := range weights {
		if err := checkWeight(w.field, w.value); err != nil {
			return nil, err
		}
	}

	net := NetWeight(req.GrossWeight, req.StoneWeight, req.WastageWeight)
	if net.IsNegative() {
		return nil, apperrors.Invalid("net_weight", "stone and wastage (%s) exceed gross weight %s",
			req.StoneWeight.Add(req.WastageWeight), req.GrossWeight)
	}

	received, pieces := Totals(prior)
	cumulative := received.Add(net)
	overage := decimal.Zero
	if cumulative.GreaterThan(issue.GrossWeight) {
		overage = cumulative.Sub(issue.GrossWeight)
		if !req.AllowOverride {
			return nil, &apperrors.BalanceExceededError{
				IssueNo:  issue.IssueNo,
				Issued:   issue.GrossWeight,
				Received: cumulative,
				Overage:  overage,
			}
		}
	}

	receipt := &models.Receipt{
		ReceiptNo:       req.ReceiptNo,
		ReceiptDate:     req.ReceiptDate,
		IssueID:         issue.ID,
		KarigarID:       issue.KarigarID,
		Pieces:          req.Pieces,
		GrossWeight:     req.GrossWeight,
		StoneWeight:     req.StoneWeight,
		WastageWeight:   req.WastageWeight,
		NetWeight:       net,
		OverrideApplied: overage.IsPositive(),
		Overage:         overage,
		Remarks:         optional(req.Remarks),
	}

	issue.ReceivedWeight = cumulative
	issue.ReceivedPieces = pieces + req.Pieces
	issue.Balance = issue.RemainingBalance()
	issue.Status = DeriveStatus(issue.GrossWeight, cumulative, len(prior)+1)
	return receipt, nil
}

// NetWeight is gross minus stone minus wastage.
func NetWeight(gross, stone, wastage decimal.Decimal) decimal.Decimal {
	return gross.Sub(stone).Sub(wastage)
}

// Totals sums the net weight and pieces of receipts.
func Totals(receipts []models.Receipt) (decimal.Decimal, int) {
	weight := decimal.Zero
	pieces := 0
	for _, r := range receipts {
		weight = weight.Add(r.NetWeight)
		pieces += r.Pieces
	}
	return weight, pieces
}

// DeriveStatus maps the received total against the issued gross weight to a status.
// An issue with no receipts is pending even when nothing was issued.
func DeriveStatus(issued, received decimal.Decimal, receipts int) models.IssueStatus {
	switch {
	case receipts > 0 && received.GreaterThanOrEqual(issued):
		return models.IssueCompleted
	case received.IsPositive():
		return models.IssuePartial
	default:
		return models.IssuePending
	}
}

// checkVersion fails when expected is set and differs from the stored issue version.
func checkVersion(issue *models.Issue, expected uint) error {
	if expected != 0 && expected != issue.Version {
		return &apperrors.ConcurrentModificationError{
			Entity:   "issue",
			ID:       issue.ID,
			Expected: versionString(expected),
			Actual:   versionString(issue.Version),
		}
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func versionString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
