package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Coder is implemented by every error kind the order and ledger core returns.
// The code is stable and is what the HTTP layer reports to clients.
type Coder interface {
	error
	Code() string
}

// ValidationError represents a malformed or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Code() string { return "VALIDATION_ERROR" }

// Invalid is a shorthand for building a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IllegalTransitionError represents a status change the transition graph does not allow.
// Allowed lists the statuses that are reachable from From.
type IllegalTransitionError struct {
	From    string
	To      string
	Allowed []string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s (allowed: %s)", e.From, e.To, strings.Join(e.Allowed, ", "))
}

func (e *IllegalTransitionError) Code() string { return "ILLEGAL_TRANSITION" }

// InvalidStateError represents an operation the entity's current status does not permit,
// such as changing a terminal order or deleting an issue that has receipts.
type InvalidStateError struct {
	Entity string // order when empty
	Status string
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("order is %s and can no longer change status", e.Status)
	}
	entity := e.Entity
	if entity == "" {
		entity = "order"
	}
	return fmt.Sprintf("%s is %s: %s", entity, e.Status, e.Reason)
}

func (e *InvalidStateError) Code() string { return "INVALID_STATE" }

// BalanceExceededError represents a receipt that would return more weight than was issued.
type BalanceExceededError struct {
	IssueNo  string
	Issued   decimal.Decimal
	Received decimal.Decimal
	Overage  decimal.Decimal
}

func (e *BalanceExceededError) Error() string {
	return fmt.Sprintf("receipt exceeds balance of issue %s by %s (issued %s, received %s)",
		e.IssueNo, e.Overage.String(), e.Issued.String(), e.Received.String())
}

func (e *BalanceExceededError) Code() string { return "BALANCE_EXCEEDED" }

// ConcurrentModificationError represents an optimistic check that failed because the
// stored entity changed after the caller read it.
type ConcurrentModificationError struct {
	Entity   string
	ID       uint
	Expected string
	Actual   string
}

func (e *ConcurrentModificationError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("%s %d was modified concurrently", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %d was modified concurrently: expected %s, found %s", e.Entity, e.ID, e.Expected, e.Actual)
}

func (e *ConcurrentModificationError) Code() string { return "CONCURRENT_MODIFICATION" }

// SequenceExhaustedError represents a daily document number sequence that ran out.
type SequenceExhaustedError struct {
	Prefix string
	Day    string
	Max    int
}

func (e *SequenceExhaustedError) Error() string {
	return fmt.Sprintf("%s sequence for %s exhausted after %d numbers", e.Prefix, e.Day, e.Max)
}

func (e *SequenceExhaustedError) Code() string { return "SEQUENCE_EXHAUSTED" }

// NotFoundError represents a lookup of a record that does not exist.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Code() string { return strings.ToUpper(e.Entity) + "_NOT_FOUND" }

// CodeOf returns the code of the first Coder in err's chain, or INTERNAL_ERROR.
func CodeOf(err error) string {
	var coder Coder
	if errors.As(err, &coder) {
		return coder.Code()
	}
	return "INTERNAL_ERROR"
}

// IsConcurrentModification reports whether err carries a ConcurrentModificationError.
func IsConcurrentModification(err error) bool {
	var target *ConcurrentModificationError
	return errors.As(err, &target)
}
