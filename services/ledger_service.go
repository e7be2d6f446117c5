package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/ledger"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/numbering"
	"github.com/kendall-kelly/jewelry-erp-api/store"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService issues material to karigars and records what comes back.
type LedgerService struct {
	ledger     *store.LedgerStore
	masterData *store.MasterDataStore
	sequences  *store.SequenceCounter
	now        func() time.Time
}

var ledgerServiceInstance *LedgerService

// NewLedgerService wires a ledger service onto db
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		ledger:     store.NewLedgerStore(db),
		masterData: store.NewMasterDataStore(db),
		sequences:  store.NewSequenceCounter(db),
		now:        time.Now,
	}
}

// InitLedgerService creates the shared ledger service instance
func InitLedgerService(db *gorm.DB) *LedgerService {
	ledgerServiceInstance = NewLedgerService(db)
	return ledgerServiceInstance
}

// GetLedgerService returns the shared ledger service instance
func GetLedgerService() *LedgerService {
	return ledgerServiceInstance
}

// SetLedgerService replaces the shared instance (primarily for testing)
func SetLedgerService(service *LedgerService) {
	ledgerServiceInstance = service
}

// WithClock replaces the time source used for default dates and numbering
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// NextIssueNumber previews the next issue number for today
func (s *LedgerService) NextIssueNumber(ctx context.Context) (string, error) {
	return s.peek(ctx, numbering.PrefixIssue)
}

// NextReceiptNumber previews the next receipt number for today
func (s *LedgerService) NextReceiptNumber(ctx context.Context) (string, error) {
	return s.peek(ctx, numbering.PrefixReceipt)
}

func (s *LedgerService) peek(ctx context.Context, prefix string) (string, error) {
	today := s.now()
	seq, err := s.sequences.PeekSequence(ctx, prefix, today)
	if err != nil {
		return "", fmt.Errorf("reading %s sequence: %w", prefix, err)
	}
	return numbering.Format(prefix, today, seq)
}

// CreateIssue validates the referenced master data, allocates a number when none is
// given and records the issue with its stock register entry.
func (s *LedgerService) CreateIssue(ctx context.Context, req ledger.IssueRequest) (*models.Issue, error) {
	if err := s.checkReferences(ctx, req.KarigarID, req.ProcessID, req.DesignID); err != nil {
		return nil, err
	}
	if req.IssueDate.IsZero() {
		req.IssueDate = s.now()
	}

	// validate before a number is spent
	if _, err := ledger.NewIssue(req); err != nil {
		return nil, err
	}

	req.IssueNo = strings.TrimSpace(req.IssueNo)
	if req.IssueNo == "" {
		number, err := numbering.Generate(ctx, s.sequences, numbering.PrefixIssue, s.now())
		if err != nil {
			return nil, err
		}
		req.IssueNo = number
	}

	issue, err := ledger.NewIssue(req)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.CreateIssue(ctx, issue); err != nil {
		return nil, err
	}

	log.Printf("Issue %s recorded: %s gross to karigar %d", issue.IssueNo, issue.GrossWeight, issue.KarigarID)
	return issue, nil
}

// checkReferences verifies the karigar, process and design an issue points at. Zero
// identifiers are not checked.
func (s *LedgerService) checkReferences(ctx context.Context, karigarID, processID uint, designID *uint) error {
	if karigarID != 0 {
		active, err := s.masterData.IsActiveContractor(ctx, karigarID)
		if err != nil {
			return fmt.Errorf("checking karigar %d: %w", karigarID, err)
		}
		if !active {
			return apperrors.Invalid("karigar_id", "karigar %d is not an active contractor", karigarID)
		}
	}
	if processID != 0 {
		active, err := s.masterData.IsActiveProcess(ctx, processID)
		if err != nil {
			return fmt.Errorf("checking process %d: %w", processID, err)
		}
		if !active {
			return apperrors.Invalid("process_id", "process %d is not active", processID)
		}
	}
	if designID != nil && *designID != 0 {
		exists, err := s.masterData.DesignExists(ctx, *designID)
		if err != nil {
			return fmt.Errorf("checking design %d: %w", *designID, err)
		}
		if !exists {
			return apperrors.Invalid("design_id", "design %d does not exist", *designID)
		}
	}
	return nil
}

// retryLostRace runs op a second time when it lost a version race the caller did not pin
// with an expected version.
func retryLostRace(pinned bool, op func() error) error {
	err := op()
	if err == nil || pinned || !apperrors.IsConcurrentModification(err) {
		return err
	}
	return op()
}

// UpdateIssue corrects an issue. Changed references are checked against master data
// first; the weights are then re-checked against the recorded receipts under the issue's
// row lock.
func (s *LedgerService) UpdateIssue(ctx context.Context, id uint, update ledger.IssueUpdate) (*models.Issue, error) {
	var karigarID, processID uint
	if update.KarigarID != nil {
		karigarID = *update.KarigarID
	}
	if update.ProcessID != nil {
		processID = *update.ProcessID
	}
	if err := s.checkReferences(ctx, karigarID, processID, update.DesignID); err != nil {
		return nil, err
	}

	var issue *models.Issue
	err := retryLostRace(update.ExpectedVersion != 0, func() error {
		var err error
		issue, err = s.ledger.ReviseIssue(ctx, id, func(issue *models.Issue, receipts []models.Receipt) error {
			return ledger.ReviseIssue(issue, receipts, update)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Issue %s revised: %s gross, now %s", issue.IssueNo, issue.GrossWeight, issue.Status)
	return s.ledger.LoadIssue(ctx, id)
}

// DeleteIssue removes an issue that nothing has been received against
func (s *LedgerService) DeleteIssue(ctx context.Context, id uint, expectedVersion uint) error {
	var issue *models.Issue
	err := retryLostRace(expectedVersion != 0, func() error {
		var err error
		issue, err = s.ledger.DeleteIssue(ctx, id, func(issue *models.Issue, receipts []models.Receipt) error {
			return ledger.CheckIssueDeletable(issue, receipts, expectedVersion)
		})
		return err
	})
	if err != nil {
		return err
	}

	log.Printf("Issue %s deleted, %s gross reversed in the stock register", issue.IssueNo, issue.GrossWeight)
	return nil
}

// GetIssue loads an issue with its receipts and balance
func (s *LedgerService) GetIssue(ctx context.Context, id uint) (*models.Issue, error) {
	return s.ledger.LoadIssue(ctx, id)
}

// ListIssues returns one page of issues and the total count
func (s *LedgerService) ListIssues(ctx context.Context, filter store.IssueFilter) ([]models.Issue, int64, error) {
	return s.ledger.ListIssues(ctx, filter)
}

// PendingIssuesByKarigar lists the issues a karigar still owes weight on
func (s *LedgerService) PendingIssuesByKarigar(ctx context.Context, karigarID uint) ([]models.Issue, error) {
	if _, err := s.masterData.GetKarigar(ctx, karigarID); err != nil {
		return nil, err
	}
	return s.ledger.PendingIssuesByKarigar(ctx, karigarID)
}

// CreateReceipt records material returned against an issue. The request is checked
// against the current issue first so an obviously bad receipt does not use up a number.
// The authoritative balance check and the insert then run under the issue's row lock.
// Without an expected issue version a lost version race is retried once.
func (s *LedgerService) CreateReceipt(ctx context.Context, issueID uint, req ledger.ReceiptRequest) (*models.Receipt, *models.Issue, error) {
	if req.ReceiptDate.IsZero() {
		req.ReceiptDate = s.now()
	}

	current, err := s.ledger.LoadIssue(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}
	preview := *current
	if _, err := ledger.ApplyReceipt(&preview, current.Receipts, req); err != nil {
		logRejected(err)
		return nil, nil, err
	}

	req.ReceiptNo = strings.TrimSpace(req.ReceiptNo)
	if req.ReceiptNo == "" {
		number, err := numbering.Generate(ctx, s.sequences, numbering.PrefixReceipt, s.now())
		if err != nil {
			return nil, nil, err
		}
		req.ReceiptNo = number
	}

	var receipt *models.Receipt
	var issue *models.Issue
	err = retryLostRace(req.ExpectedIssueVersion != 0, func() error {
		var err error
		receipt, issue, err = s.ledger.ReceiveAgainstIssue(ctx, issueID, func(issue *models.Issue, prior []models.Receipt) (*models.Receipt, error) {
			return ledger.ApplyReceipt(issue, prior, req)
		})
		logRejected(err)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if receipt.OverrideApplied {
		log.Printf("Receipt %s accepted against issue %s with override, overage %s", receipt.ReceiptNo, issue.IssueNo, receipt.Overage)
	} else {
		log.Printf("Receipt %s recorded against issue %s, issue now %s", receipt.ReceiptNo, issue.IssueNo, issue.Status)
	}
	return receipt, issue, nil
}

// GetReceipt loads a receipt with its issue and karigar
func (s *LedgerService) GetReceipt(ctx context.Context, id uint) (*models.Receipt, error) {
	return s.ledger.GetReceipt(ctx, id)
}

// UpdateReceipt corrects a receipt. The balance check is re-run over the issue's receipt
// set with the revision in place of the original, under the issue's row lock.
func (s *LedgerService) UpdateReceipt(ctx context.Context, id uint, update ledger.ReceiptUpdate) (*models.Receipt, *models.Issue, error) {
	var receipt *models.Receipt
	var issue *models.Issue
	err := retryLostRace(update.ExpectedIssueVersion != 0, func() error {
		var err error
		receipt, issue, err = s.ledger.ReviseReceipt(ctx, id, func(issue *models.Issue, others []models.Receipt, existing *models.Receipt) (*models.Receipt, error) {
			return ledger.ReviseReceipt(issue, others, existing, update)
		})
		logRejected(err)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("Receipt %s revised to %s net, issue %s now %s", receipt.ReceiptNo, receipt.NetWeight, issue.IssueNo, issue.Status)
	return receipt, issue, nil
}

// DeleteReceipt removes a receipt and recomputes its issue from the receipts that remain
func (s *LedgerService) DeleteReceipt(ctx context.Context, id uint, expectedIssueVersion uint) (*models.Issue, error) {
	var receipt *models.Receipt
	var issue *models.Issue
	err := retryLostRace(expectedIssueVersion != 0, func() error {
		var err error
		receipt, issue, err = s.ledger.DeleteReceipt(ctx, id, func(issue *models.Issue, remaining []models.Receipt) error {
			return ledger.WithdrawReceipt(issue, remaining, expectedIssueVersion)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Receipt %s deleted, issue %s now %s", receipt.ReceiptNo, issue.IssueNo, issue.Status)
	return issue, nil
}

// ReceiptSummary totals the receipts recorded against an issue
func (s *LedgerService) ReceiptSummary(ctx context.Context, issueID uint) (*ledger.ReceiptSummary, error) {
	issue, err := s.ledger.LoadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	summary := ledger.Summarize(issue, issue.Receipts)
	return &summary, nil
}

func logRejected(err error) {
	var exceeded *apperrors.BalanceExceededError
	if errors.As(err, &exceeded) {
		log.Printf("Receipt against issue %s rejected, overage %s", exceeded.IssueNo, exceeded.Overage)
	}
}

// ListReceipts returns one page of receipts and the total count
func (s *LedgerService) ListReceipts(ctx context.Context, filter store.ReceiptFilter) ([]models.Receipt, int64, error) {
	return s.ledger.ListReceipts(ctx, filter)
}

// StockRegister lists register entries with running balances
func (s *LedgerService) StockRegister(ctx context.Context, filter store.RegisterFilter) ([]models.StockRegisterEntry, error) {
	return s.ledger.StockRegister(ctx, filter)
}

// RegisterOpening returns the balance outstanding before filter.From
func (s *LedgerService) RegisterOpening(ctx context.Context, filter store.RegisterFilter) (gross, net decimal.Decimal, err error) {
	return s.ledger.RegisterOpening(ctx, filter)
}
