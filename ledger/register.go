package ledger

import (
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/shopspring/decimal"
)

// IssueEntry records the weight leaving the workshop for issue.
func IssueEntry(issue *models.Issue) *models.StockRegisterEntry {
	return &models.StockRegisterEntry{
		TransactionType: models.TransactionIssue,
		TransactionID:   issue.ID,
		TransactionNo:   issue.IssueNo,
		TransactionDate: issue.IssueDate,
		KarigarID:       issue.KarigarID,
		GrossWeightIn:   decimal.Zero,
		GrossWeightOut:  issue.GrossWeight,
		NetWeightIn:     decimal.Zero,
		NetWeightOut:    issue.NetWeight,
	}
}

// ReceiptEntry records the weight coming back with receipt.
func ReceiptEntry(receipt *models.Receipt) *models.StockRegisterEntry {
	return &models.StockRegisterEntry{
		TransactionType: models.TransactionReceipt,
		TransactionID:   receipt.ID,
		TransactionNo:   receipt.ReceiptNo,
		TransactionDate: receipt.ReceiptDate,
		KarigarID:       receipt.KarigarID,
		GrossWeightIn:   receipt.GrossWeight,
		GrossWeightOut:  decimal.Zero,
		NetWeightIn:     receipt.NetWeight,
		NetWeightOut:    decimal.Zero,
	}
}

var reversalTypes = map[string]string{
	models.TransactionIssue:   models.TransactionIssueReversal,
	models.TransactionReceipt: models.TransactionReceiptReversal,
}

// Reverse builds the entry that cancels e. It keeps e's date so balances before and
// after the correction line up, and swaps the in and out columns.
func Reverse(e *models.StockRegisterEntry) *models.StockRegisterEntry {
	r := *e
	r.ID = 0
	r.CreatedAt = time.Time{}
	if t, ok := reversalTypes[e.TransactionType]; ok {
		r.TransactionType = t
	}
	r.GrossWeightIn, r.GrossWeightOut = e.GrossWeightOut, e.GrossWeightIn
	r.NetWeightIn, r.NetWeightOut = e.NetWeightOut, e.NetWeightIn
	return &r
}

// SameMovement reports whether a and b record the same weights for the same karigar,
// document and date.
func SameMovement(a, b *models.StockRegisterEntry) bool {
	return a.KarigarID == b.KarigarID &&
		a.TransactionNo == b.TransactionNo &&
		a.TransactionDate.Equal(b.TransactionDate) &&
		a.GrossWeightIn.Equal(b.GrossWeightIn) &&
		a.GrossWeightOut.Equal(b.GrossWeightOut) &&
		a.NetWeightIn.Equal(b.NetWeightIn) &&
		a.NetWeightOut.Equal(b.NetWeightOut)
}

// RunningBalances fills BalanceGross and BalanceNet on entries, which must be in
// chronological order. opening is the balance carried in from earlier entries.
// The balance is the weight still out with karigars.
func RunningBalances(entries []models.StockRegisterEntry, openingGross, openingNet decimal.Decimal) {
	gross, net := openingGross, openingNet
	for i := range entries {
		e := &entries[i]
		gross = gross.Add(e.GrossWeightOut).Sub(e.GrossWeightIn)
		net = net.Add(e.NetWeightOut).Sub(e.NetWeightIn)
		e.BalanceGross = gross
		e.BalanceNet = net
	}
}
