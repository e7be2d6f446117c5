package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/ledger"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IssueFilter narrows an issue listing
type IssueFilter struct {
	KarigarID uint
	ProcessID uint
	Status    models.IssueStatus
	Page
}

// ReceiptFilter narrows a receipt listing
type ReceiptFilter struct {
	IssueID   uint
	KarigarID uint
	Page
}

// RegisterFilter narrows the stock register. From and To are inclusive when set.
type RegisterFilter struct {
	KarigarID uint
	From      *time.Time
	To        *time.Time
}

// ReceiptBuilder validates a receipt against the locked issue and its prior receipts.
// It may update the issue's received totals in place.
type ReceiptBuilder func(issue *models.Issue, prior []models.Receipt) (*models.Receipt, error)

// IssueReviser validates a change against the locked issue and its receipts and applies
// it to the issue in place.
type IssueReviser func(issue *models.Issue, receipts []models.Receipt) error

// ReceiptReviser validates a change to existing against the locked issue and the issue's
// other receipts. It returns the revised receipt and may update the issue's totals in place.
type ReceiptReviser func(issue *models.Issue, others []models.Receipt, existing *models.Receipt) (*models.Receipt, error)

// LedgerStore persists issues, receipts and the stock register.
type LedgerStore struct {
	db *gorm.DB
}

// NewLedgerStore creates a ledger store backed by db
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// CreateIssue inserts issue and its stock register entry.
func (s *LedgerStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if issue.Version == 0 {
			issue.Version = 1
		}
		if err := tx.Omit(clause.Associations).Create(issue).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.Invalid("issue_no", "%s is already in use", issue.IssueNo)
			}
			return fmt.Errorf("inserting issue: %w", err)
		}
		if err := tx.Create(ledger.IssueEntry(issue)).Error; err != nil {
			return fmt.Errorf("appending stock register entry: %w", err)
		}
		return nil
	})
}

// LoadIssue fetches an issue with its karigar, process, design and receipts.
func (s *LedgerStore) LoadIssue(ctx context.Context, id uint) (*models.Issue, error) {
	var issue models.Issue
	err := s.db.WithContext(ctx).
		Preload("Karigar").
		Preload("Process").
		Preload("Design").
		Preload("Receipts", func(db *gorm.DB) *gorm.DB {
			return db.Order("receipt_date ASC, id ASC")
		}).
		First(&issue, id).Error
	if err != nil {
		return nil, notFound(err, "issue", id)
	}
	return &issue, nil
}

// ListIssues returns one page of issues matching f, newest first.
func (s *LedgerStore) ListIssues(ctx context.Context, f IssueFilter) ([]models.Issue, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Issue{})
	if f.KarigarID != 0 {
		q = q.Where("karigar_id = ?", f.KarigarID)
	}
	if f.ProcessID != 0 {
		q = q.Where("process_id = ?", f.ProcessID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var issues []models.Issue
	err := f.Page.apply(q).
		Preload("Karigar").
		Preload("Process").
		Order("issue_date DESC, id DESC").
		Find(&issues).Error
	return issues, total, err
}

// PendingIssuesByKarigar returns the issues of a karigar that still have weight out,
// oldest first.
func (s *LedgerStore) PendingIssuesByKarigar(ctx context.Context, karigarID uint) ([]models.Issue, error) {
	var issues []models.Issue
	err := s.db.WithContext(ctx).
		Preload("Process").
		Where("karigar_id = ? AND status IN ?", karigarID, []models.IssueStatus{models.IssuePending, models.IssuePartial}).
		Order("issue_date ASC, id ASC").
		Find(&issues).Error
	return issues, err
}

// ListReceipts returns one page of receipts matching f, newest first.
func (s *LedgerStore) ListReceipts(ctx context.Context, f ReceiptFilter) ([]models.Receipt, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Receipt{})
	if f.IssueID != 0 {
		q = q.Where("issue_id = ?", f.IssueID)
	}
	if f.KarigarID != 0 {
		q = q.Where("karigar_id = ?", f.KarigarID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var receipts []models.Receipt
	err := f.Page.apply(q).
		Preload("Issue").
		Preload("Karigar").
		Order("receipt_date DESC, id DESC").
		Find(&receipts).Error
	return receipts, total, err
}

// ReceiveAgainstIssue records a receipt atomically: the issue row is locked, prior
// receipts are read, build validates and produces the receipt, and the receipt, the
// updated issue and the stock register entry are written before the lock is released.
// A rejected receipt writes nothing.
func (s *LedgerStore) ReceiveAgainstIssue(ctx context.Context, issueID uint, build ReceiptBuilder) (*models.Receipt, *models.Issue, error) {
	var receipt *models.Receipt
	var issue *models.Issue

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, prior, err := lockIssue(tx, issueID)
		if err != nil {
			return err
		}

		expectedVersion := locked.Version
		built, err := build(locked, prior)
		if err != nil {
			return err
		}
		receipt = built

		if err := tx.Omit(clause.Associations).Create(receipt).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.Invalid("receipt_no", "%s is already in use", receipt.ReceiptNo)
			}
			return fmt.Errorf("inserting receipt: %w", err)
		}
		if err := saveIssue(tx, locked, expectedVersion, totalsColumns(locked)); err != nil {
			return err
		}
		if err := tx.Create(ledger.ReceiptEntry(receipt)).Error; err != nil {
			return fmt.Errorf("appending stock register entry: %w", err)
		}
		issue = locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return receipt, issue, nil
}

// GetReceipt fetches a receipt with its issue and karigar.
func (s *LedgerStore) GetReceipt(ctx context.Context, id uint) (*models.Receipt, error) {
	var receipt models.Receipt
	err := s.db.WithContext(ctx).
		Preload("Issue").
		Preload("Karigar").
		First(&receipt, id).Error
	if err != nil {
		return nil, notFound(err, "receipt", id)
	}
	return &receipt, nil
}

// ReviseIssue applies revise to the locked issue and saves it under the version check.
// When the karigar, date or weights change, the original register entry is reversed and
// the corrected one appended.
func (s *LedgerStore) ReviseIssue(ctx context.Context, issueID uint, revise IssueReviser) (*models.Issue, error) {
	var issue *models.Issue

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, receipts, err := lockIssue(tx, issueID)
		if err != nil {
			return err
		}
		before := *locked
		if err := revise(locked, receipts); err != nil {
			return err
		}

		columns := totalsColumns(locked)
		columns["issue_date"] = locked.IssueDate
		columns["karigar_id"] = locked.KarigarID
		columns["process_id"] = locked.ProcessID
		columns["design_id"] = locked.DesignID
		columns["pieces"] = locked.Pieces
		columns["gross_weight"] = locked.GrossWeight
		columns["stone_weight"] = locked.StoneWeight
		columns["net_weight"] = locked.NetWeight
		columns["remarks"] = locked.Remarks
		if err := saveIssue(tx, locked, before.Version, columns); err != nil {
			return err
		}

		if err := correctEntry(tx, ledger.IssueEntry(&before), ledger.IssueEntry(locked)); err != nil {
			return err
		}
		issue = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// DeleteIssue removes an issue once check accepts it and reverses its register entry.
func (s *LedgerStore) DeleteIssue(ctx context.Context, issueID uint, check IssueReviser) (*models.Issue, error) {
	var issue *models.Issue

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, receipts, err := lockIssue(tx, issueID)
		if err != nil {
			return err
		}
		if err := check(locked, receipts); err != nil {
			return err
		}

		result := tx.Where("id = ? AND version = ?", locked.ID, locked.Version).Delete(&models.Issue{})
		if result.Error != nil {
			return fmt.Errorf("deleting issue %d: %w", locked.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return &apperrors.ConcurrentModificationError{Entity: "issue", ID: locked.ID}
		}
		if err := tx.Create(ledger.Reverse(ledger.IssueEntry(locked))).Error; err != nil {
			return fmt.Errorf("reversing stock register entry: %w", err)
		}
		issue = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// ReviseReceipt corrects a receipt under its issue's row lock. revise sees the issue's
// other receipts so the balance check covers the changed receipt set; the receipt, the
// issue totals and the register correction are written together.
func (s *LedgerStore) ReviseReceipt(ctx context.Context, receiptID uint, revise ReceiptReviser) (*models.Receipt, *models.Issue, error) {
	var receipt *models.Receipt
	var issue *models.Issue

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, existing, others, err := lockReceipt(tx, receiptID)
		if err != nil {
			return err
		}

		expectedVersion := locked.Version
		revised, err := revise(locked, others, existing)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Receipt{}).Where("id = ?", existing.ID).Updates(map[string]any{
			"receipt_date":     revised.ReceiptDate,
			"pieces":           revised.Pieces,
			"gross_weight":     revised.GrossWeight,
			"stone_weight":     revised.StoneWeight,
			"wastage_weight":   revised.WastageWeight,
			"net_weight":       revised.NetWeight,
			"override_applied": revised.OverrideApplied,
			"overage":          revised.Overage,
			"remarks":          revised.Remarks,
			"updated_at":       time.Now(),
		}).Error
		if err != nil {
			return fmt.Errorf("updating receipt %d: %w", existing.ID, err)
		}
		if err := saveIssue(tx, locked, expectedVersion, totalsColumns(locked)); err != nil {
			return err
		}
		if err := correctEntry(tx, ledger.ReceiptEntry(existing), ledger.ReceiptEntry(revised)); err != nil {
			return err
		}
		receipt, issue = revised, locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return receipt, issue, nil
}

// DeleteReceipt removes a receipt under its issue's row lock. settle recomputes the issue
// from the receipts that remain; its register entry is reversed.
func (s *LedgerStore) DeleteReceipt(ctx context.Context, receiptID uint, settle IssueReviser) (*models.Receipt, *models.Issue, error) {
	var receipt *models.Receipt
	var issue *models.Issue

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, existing, others, err := lockReceipt(tx, receiptID)
		if err != nil {
			return err
		}

		expectedVersion := locked.Version
		if err := settle(locked, others); err != nil {
			return err
		}

		if err := tx.Delete(&models.Receipt{}, existing.ID).Error; err != nil {
			return fmt.Errorf("deleting receipt %d: %w", existing.ID, err)
		}
		if err := saveIssue(tx, locked, expectedVersion, totalsColumns(locked)); err != nil {
			return err
		}
		if err := tx.Create(ledger.Reverse(ledger.ReceiptEntry(existing))).Error; err != nil {
			return fmt.Errorf("reversing stock register entry: %w", err)
		}
		receipt, issue = existing, locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return receipt, issue, nil
}

// lockIssue locks the issue row and reads its receipts in recording order.
func lockIssue(tx *gorm.DB, issueID uint) (*models.Issue, []models.Receipt, error) {
	var issue models.Issue
	if err := tx.Clauses(lockForUpdate()).First(&issue, issueID).Error; err != nil {
		return nil, nil, notFound(err, "issue", issueID)
	}

	var receipts []models.Receipt
	if err := tx.Where("issue_id = ?", issueID).Order("id ASC").Find(&receipts).Error; err != nil {
		return nil, nil, fmt.Errorf("reading receipts of issue %d: %w", issueID, err)
	}
	return &issue, receipts, nil
}

// lockReceipt locks the issue a receipt belongs to and splits the issue's receipts into
// the one asked for and the others.
func lockReceipt(tx *gorm.DB, receiptID uint) (*models.Issue, *models.Receipt, []models.Receipt, error) {
	var ref models.Receipt
	if err := tx.Select("id", "issue_id").First(&ref, receiptID).Error; err != nil {
		return nil, nil, nil, notFound(err, "receipt", receiptID)
	}

	issue, receipts, err := lockIssue(tx, ref.IssueID)
	if err != nil {
		return nil, nil, nil, err
	}

	var existing *models.Receipt
	others := make([]models.Receipt, 0, len(receipts))
	for i := range receipts {
		if receipts[i].ID == receiptID {
			existing = &receipts[i]
			continue
		}
		others = append(others, receipts[i])
	}
	// deleted between the lookup and the lock
	if existing == nil {
		return nil, nil, nil, &apperrors.NotFoundError{Entity: "receipt", ID: receiptID}
	}
	return issue, existing, others, nil
}

// saveIssue writes columns while the stored version is still expected, then advances it.
func saveIssue(tx *gorm.DB, issue *models.Issue, expected uint, columns map[string]any) error {
	columns["version"] = expected + 1
	columns["updated_at"] = time.Now()

	result := tx.Model(&models.Issue{}).
		Where("id = ? AND version = ?", issue.ID, expected).
		Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("updating issue %d: %w", issue.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &apperrors.ConcurrentModificationError{Entity: "issue", ID: issue.ID}
	}
	issue.Version = expected + 1
	return nil
}

func totalsColumns(issue *models.Issue) map[string]any {
	return map[string]any{
		"received_weight": issue.ReceivedWeight,
		"received_pieces": issue.ReceivedPieces,
		"status":          issue.Status,
	}
}

// correctEntry appends a reversal of before and the corrected entry when the movement
// changed. Unchanged movements leave the register alone.
func correctEntry(tx *gorm.DB, before, after *models.StockRegisterEntry) error {
	if ledger.SameMovement(before, after) {
		return nil
	}
	if err := tx.Create(ledger.Reverse(before)).Error; err != nil {
		return fmt.Errorf("reversing stock register entry: %w", err)
	}
	if err := tx.Create(after).Error; err != nil {
		return fmt.Errorf("appending stock register entry: %w", err)
	}
	return nil
}

// RegisterOpening returns the balance carried into f.From. It is zero without a From bound.
func (s *LedgerStore) RegisterOpening(ctx context.Context, f RegisterFilter) (gross, net decimal.Decimal, err error) {
	if f.From == nil {
		return decimal.Zero, decimal.Zero, nil
	}

	q := s.db.WithContext(ctx).Model(&models.StockRegisterEntry{}).Where("transaction_date < ?", *f.From)
	if f.KarigarID != 0 {
		q = q.Where("karigar_id = ?", f.KarigarID)
	}

	var earlier []models.StockRegisterEntry
	if err := q.Order("transaction_date ASC, id ASC").Find(&earlier).Error; err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("reading opening balance: %w", err)
	}
	ledger.RunningBalances(earlier, decimal.Zero, decimal.Zero)
	if n := len(earlier); n > 0 {
		return earlier[n-1].BalanceGross, earlier[n-1].BalanceNet, nil
	}
	return decimal.Zero, decimal.Zero, nil
}

// StockRegister lists register entries in chronological order with running balances.
// Entries before f.From are folded into the opening balance.
func (s *LedgerStore) StockRegister(ctx context.Context, f RegisterFilter) ([]models.StockRegisterEntry, error) {
	openingGross, openingNet, err := s.RegisterOpening(ctx, f)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.StockRegisterEntry{})
	if f.KarigarID != 0 {
		q = q.Where("karigar_id = ?", f.KarigarID)
	}
	if f.From != nil {
		q = q.Where("transaction_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("transaction_date <= ?", *f.To)
	}

	var entries []models.StockRegisterEntry
	if err := q.Order("transaction_date ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	ledger.RunningBalances(entries, openingGross, openingNet)
	return entries, nil
}
