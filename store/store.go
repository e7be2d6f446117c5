// Package store persists orders, the material ledger and master data with GORM.
//
// Every write that must be atomic runs inside one transaction. Orders and issues are
// saved with an optimistic version check; receipts additionally lock the issue row
// while the balance is recomputed.
package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Page selects a window of a listing. Page is 1-based.
type Page struct {
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize applies the default and maximum page size
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	p = p.Normalize()
	return q.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}

// lockForUpdate is ignored by sqlite, which serializes writers anyway.
func lockForUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// notFound converts gorm's missing-record error into the domain error.
func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &apperrors.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

// isUniqueViolation works for both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
