package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/ledger"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/store"
	"github.com/kendall-kelly/jewelry-erp-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	db      *gorm.DB
	svc     *LedgerService
	karigar models.Karigar
	process models.Process
}

func newLedgerFixture(t *testing.T) ledgerFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	return ledgerFixture{
		db:      db,
		svc:     NewLedgerService(db).WithClock(fixedClock),
		karigar: testutil.SeedKarigar(t, db, "K-07", true),
		process: testutil.SeedProcess(t, db, "Casting", true),
	}
}

func grams(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f ledgerFixture) issue(t *testing.T, gross string) *models.Issue {
	t.Helper()
	issue, err := f.svc.CreateIssue(context.Background(), ledger.IssueRequest{
		KarigarID:   f.karigar.ID,
		ProcessID:   f.process.ID,
		Pieces:      12,
		GrossWeight: grams(gross),
		StoneWeight: decimal.Zero,
	})
	require.NoError(t, err)
	return issue
}

func TestCreateIssue(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	preview, err := f.svc.NextIssueNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ISS-20240307-001", preview)

	issue := f.issue(t, "25.5")
	assert.Equal(t, "ISS-20240307-001", issue.IssueNo)
	assert.Equal(t, models.IssuePending, issue.Status)
	assert.True(t, issue.NetWeight.Equal(grams("25.5")))
	assert.True(t, issue.IssueDate.Equal(serviceNow))

	loaded, err := f.svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Balance.Equal(grams("25.5")))
	require.NotNil(t, loaded.Karigar)
	assert.Equal(t, "K-07", loaded.Karigar.Code)
}

func TestCreateIssue_MasterDataChecks(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	missingDesign := uint(99)

	tests := []struct {
		name  string
		req   ledger.IssueRequest
		field string
	}{
		{"unknown karigar", ledger.IssueRequest{KarigarID: 404, ProcessID: f.process.ID, Pieces: 1, GrossWeight: grams("1")}, "karigar_id"},
		{"unknown process", ledger.IssueRequest{KarigarID: f.karigar.ID, ProcessID: 404, Pieces: 1, GrossWeight: grams("1")}, "process_id"},
		{"unknown design", ledger.IssueRequest{KarigarID: f.karigar.ID, ProcessID: f.process.ID, DesignID: &missingDesign, Pieces: 1, GrossWeight: grams("1")}, "design_id"},
		{"stone heavier than gross", ledger.IssueRequest{KarigarID: f.karigar.ID, ProcessID: f.process.ID, Pieces: 1, GrossWeight: grams("1"), StoneWeight: grams("2")}, "stone_weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateIssue(ctx, tt.req)
			var validation *apperrors.ValidationError
			require.True(t, errors.As(err, &validation), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, validation.Field)
		})
	}

	preview, err := f.svc.NextIssueNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ISS-20240307-001", preview, "rejected issues do not consume numbers")
}

func TestCreateReceipt_BalanceScenario(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "25.5")

	receipt, updated, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 5, GrossWeight: grams("10.2")})
	require.NoError(t, err)
	assert.Equal(t, "RCP-20240307-001", receipt.ReceiptNo)
	assert.Equal(t, f.karigar.ID, receipt.KarigarID)
	assert.Equal(t, models.IssuePartial, updated.Status)
	assert.True(t, updated.ReceivedWeight.Equal(grams("10.2")))

	_, _, err = f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 7, GrossWeight: grams("16.0")})
	var exceeded *apperrors.BalanceExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.True(t, exceeded.Overage.Equal(grams("0.7")))

	preview, err := f.svc.NextReceiptNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "RCP-20240307-002", preview, "a rejected receipt does not consume a number")

	loaded, err := f.svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssuePartial, loaded.Status)
	assert.Len(t, loaded.Receipts, 1)

	receipt, updated, err = f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 7, GrossWeight: grams("16.0"), AllowOverride: true})
	require.NoError(t, err)
	assert.True(t, receipt.OverrideApplied)
	assert.True(t, receipt.Overage.Equal(grams("0.7")))
	assert.Equal(t, models.IssueCompleted, updated.Status)
	assert.True(t, updated.Balance.Equal(grams("-0.7")))

	pending, err := f.svc.PendingIssuesByKarigar(ctx, f.karigar.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entries, err := f.svc.StockRegister(ctx, store.RegisterFilter{KarigarID: f.karigar.ID})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].BalanceGross.Equal(grams("25.5")))
	assert.True(t, entries[2].BalanceGross.Equal(grams("-0.7")))

	receipts, total, err := f.svc.ListReceipts(ctx, store.ReceiptFilter{IssueID: issue.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, receipts, 2)
}

func TestCreateReceipt_StaleIssueVersion(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")

	_, _, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 1, GrossWeight: grams("4"), ExpectedIssueVersion: issue.Version})
	require.NoError(t, err)

	_, _, err = f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 1, GrossWeight: grams("4"), ExpectedIssueVersion: issue.Version})
	assert.True(t, apperrors.IsConcurrentModification(err))
}

func TestCreateReceipt_RetriesOnceAfterLostRace(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	interfered := loseVersionRace(t, f.db, "issues", 1)

	receipt, updated, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 2, GrossWeight: grams("4")})
	require.NoError(t, err)
	assert.Equal(t, 1, *interfered)
	assert.Equal(t, "RCP-20240307-001", receipt.ReceiptNo, "the number is allocated once, before the retry")
	assert.True(t, updated.ReceivedWeight.Equal(grams("4")))
	assert.Equal(t, models.IssuePartial, updated.Status)

	_, total, err := f.svc.ListReceipts(ctx, store.ReceiptFilter{IssueID: issue.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "the lost attempt was rolled back")
}

func TestCreateReceipt_SecondLostRaceSurfaces(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	interfered := loseVersionRace(t, f.db, "issues", 2)

	_, _, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 2, GrossWeight: grams("4")})
	var conflict *apperrors.ConcurrentModificationError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, *interfered)

	loaded, err := f.svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Receipts)
	assert.Equal(t, models.IssuePending, loaded.Status)
}

func TestCreateReceipt_PinnedVersionDoesNotRetry(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	interfered := loseVersionRace(t, f.db, "issues", 1)

	_, _, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 2, GrossWeight: grams("4"), ExpectedIssueVersion: issue.Version})
	assert.True(t, apperrors.IsConcurrentModification(err))
	assert.Equal(t, 1, *interfered, "a caller that pinned the version sees the first conflict")

	_, total, err := f.svc.ListReceipts(ctx, store.ReceiptFilter{IssueID: issue.ID})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateReceipt_UnknownIssue(t *testing.T) {
	f := newLedgerFixture(t)

	_, _, err := f.svc.CreateReceipt(context.Background(), 404, ledger.ReceiptRequest{Pieces: 1, GrossWeight: grams("1")})
	assert.Equal(t, "ISSUE_NOT_FOUND", apperrors.CodeOf(err))
}

func TestPendingIssuesByKarigar(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	first := f.issue(t, "5")
	f.issue(t, "8")

	_, _, err := f.svc.CreateReceipt(ctx, first.ID, ledger.ReceiptRequest{Pieces: 12, GrossWeight: grams("5")})
	require.NoError(t, err)

	pending, err := f.svc.PendingIssuesByKarigar(ctx, f.karigar.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ISS-20240307-002", pending[0].IssueNo)

	_, err = f.svc.PendingIssuesByKarigar(ctx, 404)
	assert.Equal(t, "KARIGAR_NOT_FOUND", apperrors.CodeOf(err))

	issues, total, err := f.svc.ListIssues(ctx, store.IssueFilter{Status: models.IssueCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, first.ID, issues[0].ID)
}

func TestUpdateIssue(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	_, _, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 4, GrossWeight: grams("4")})
	require.NoError(t, err)

	gross, stone := grams("11"), grams("0.5")
	updated, err := f.svc.UpdateIssue(ctx, issue.ID, ledger.IssueUpdate{GrossWeight: &gross, StoneWeight: &stone})
	require.NoError(t, err)
	assert.True(t, updated.NetWeight.Equal(grams("10.5")))
	assert.True(t, updated.Balance.Equal(grams("7")))
	assert.Len(t, updated.Receipts, 1, "the updated issue is returned with its receipts")

	inactive := testutil.SeedKarigar(t, f.db, "K-09", false)
	_, err = f.svc.UpdateIssue(ctx, issue.ID, ledger.IssueUpdate{KarigarID: &inactive.ID})
	var validation *apperrors.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "karigar_id", validation.Field)

	_, err = f.svc.UpdateIssue(ctx, issue.ID, ledger.IssueUpdate{GrossWeight: &gross, ExpectedVersion: issue.Version})
	assert.True(t, apperrors.IsConcurrentModification(err), "the version moved with the receipt and the first update")

	_, err = f.svc.UpdateIssue(ctx, 404, ledger.IssueUpdate{GrossWeight: &gross})
	assert.Equal(t, "ISSUE_NOT_FOUND", apperrors.CodeOf(err))
}

func TestUpdateIssue_RetriesOnceAfterLostRace(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	interfered := loseVersionRace(t, f.db, "issues", 1)

	pieces := 14
	updated, err := f.svc.UpdateIssue(ctx, issue.ID, ledger.IssueUpdate{Pieces: &pieces})
	require.NoError(t, err)
	assert.Equal(t, 1, *interfered)
	assert.Equal(t, 14, updated.Pieces)
	assert.Equal(t, uint(2), updated.Version, "the rolled back bump does not count")

	_, err = f.svc.UpdateIssue(ctx, issue.ID, ledger.IssueUpdate{Pieces: &pieces, ExpectedVersion: 2})
	require.NoError(t, err)
}

func TestDeleteIssue(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	received := f.issue(t, "10")
	spare := f.issue(t, "3")
	_, _, err := f.svc.CreateReceipt(ctx, received.ID, ledger.ReceiptRequest{Pieces: 1, GrossWeight: grams("2")})
	require.NoError(t, err)

	err = f.svc.DeleteIssue(ctx, received.ID, 0)
	var invalid *apperrors.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "issue", invalid.Entity)

	assert.True(t, apperrors.IsConcurrentModification(f.svc.DeleteIssue(ctx, spare.ID, 5)))
	require.NoError(t, f.svc.DeleteIssue(ctx, spare.ID, spare.Version))

	_, err = f.svc.GetIssue(ctx, spare.ID)
	assert.Equal(t, "ISSUE_NOT_FOUND", apperrors.CodeOf(err))

	entries, err := f.svc.StockRegister(ctx, store.RegisterFilter{})
	require.NoError(t, err)
	assert.True(t, entries[len(entries)-1].BalanceGross.Equal(grams("8")))
}

func TestUpdateReceipt(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	first, _, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 6, GrossWeight: grams("6")})
	require.NoError(t, err)
	_, _, err = f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 4, GrossWeight: grams("3")})
	require.NoError(t, err)

	over := grams("7.5")
	_, _, err = f.svc.UpdateReceipt(ctx, first.ID, ledger.ReceiptUpdate{GrossWeight: &over})
	var exceeded *apperrors.BalanceExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.True(t, exceeded.Received.Equal(grams("10.5")), "the other receipt counts toward the balance")

	exact := grams("7")
	receipt, updated, err := f.svc.UpdateReceipt(ctx, first.ID, ledger.ReceiptUpdate{GrossWeight: &exact})
	require.NoError(t, err)
	assert.Equal(t, "RCP-20240307-001", receipt.ReceiptNo)
	assert.Equal(t, models.IssueCompleted, updated.Status)
	assert.True(t, updated.Balance.IsZero())

	loaded, err := f.svc.GetReceipt(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, loaded.NetWeight.Equal(exact))

	_, _, err = f.svc.UpdateReceipt(ctx, 404, ledger.ReceiptUpdate{GrossWeight: &exact})
	assert.Equal(t, "RECEIPT_NOT_FOUND", apperrors.CodeOf(err))
}

func TestUpdateReceipt_RetriesOnceAfterLostRace(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	receipt, _, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 2, GrossWeight: grams("4")})
	require.NoError(t, err)
	interfered := loseVersionRace(t, f.db, "issues", 2)

	gross := grams("5")
	_, _, err = f.svc.UpdateReceipt(ctx, receipt.ID, ledger.ReceiptUpdate{GrossWeight: &gross, ExpectedIssueVersion: 2})
	assert.True(t, apperrors.IsConcurrentModification(err))
	assert.Equal(t, 1, *interfered, "a pinned version is not retried")

	revised, updated, err := f.svc.UpdateReceipt(ctx, receipt.ID, ledger.ReceiptUpdate{GrossWeight: &gross})
	require.NoError(t, err)
	assert.Equal(t, 2, *interfered)
	assert.True(t, revised.NetWeight.Equal(gross))
	assert.True(t, updated.ReceivedWeight.Equal(gross))
}

func TestDeleteReceipt(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	receipt, _, err := f.svc.CreateReceipt(ctx, issue.ID, ledger.ReceiptRequest{Pieces: 12, GrossWeight: grams("10")})
	require.NoError(t, err)

	updated, err := f.svc.DeleteReceipt(ctx, receipt.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.IssuePending, updated.Status)
	assert.True(t, updated.Balance.Equal(grams("10")))
	assert.Zero(t, updated.ReceivedPieces)

	pending, err := f.svc.PendingIssuesByKarigar(ctx, f.karigar.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "the issue is open again")

	_, err = f.svc.DeleteReceipt(ctx, receipt.ID, 0)
	assert.Equal(t, "RECEIPT_NOT_FOUND", apperrors.CodeOf(err))
}

func TestReceiptSummary(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	issue := f.issue(t, "10")
	for _, req := range []ledger.ReceiptRequest{
		{Pieces: 5, GrossWeight: grams("4.25"), WastageWeight: grams("0.25")},
		{Pieces: 3, GrossWeight: grams("3")},
	} {
		_, _, err := f.svc.CreateReceipt(ctx, issue.ID, req)
		require.NoError(t, err)
	}

	summary, err := f.svc.ReceiptSummary(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalReceipts)
	assert.True(t, summary.TotalGrossReceived.Equal(grams("7.25")))
	assert.True(t, summary.TotalNetReceived.Equal(grams("7")))
	assert.True(t, summary.TotalWastage.Equal(grams("0.25")))
	assert.True(t, summary.Balance.Equal(grams("3")))
	assert.Equal(t, models.IssuePartial, summary.Status)

	_, err = f.svc.ReceiptSummary(ctx, 404)
	assert.Equal(t, "ISSUE_NOT_FOUND", apperrors.CodeOf(err))
}
