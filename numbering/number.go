// Package numbering formats the document numbers used for orders, issues and receipts.
//
// Numbers have the shape PREFIX-YYYYMMDD-NNN where NNN is a three digit sequence that
// restarts every calendar day. Allocating the sequence value is the job of a
// SequenceSource; this package only defines the format and its limits.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
)

const (
	PrefixOrder   = "ORD"
	PrefixIssue   = "ISS"
	PrefixReceipt = "RCP"

	// MaxDailySequence is the largest sequence value that fits in three digits.
	MaxDailySequence = 999

	dayLayout = "20060102"
)

// SequenceSource allocates per-day sequence values. Every call must return a value
// that was never returned before for the same prefix and day.
type SequenceSource interface {
	NextSequence(ctx context.Context, prefix string, day time.Time) (int, error)
}

// DayKey returns the calendar day part of a number for t.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// Format builds the number for seq on day.
func Format(prefix string, day time.Time, seq int) (string, error) {
	if seq < 1 {
		return "", apperrors.Invalid("sequence", "must be positive, got %d", seq)
	}
	if seq > MaxDailySequence {
		return "", &apperrors.SequenceExhaustedError{Prefix: prefix, Day: DayKey(day), Max: MaxDailySequence}
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, DayKey(day), seq), nil
}

// Generate allocates the next sequence value from src and formats it.
func Generate(ctx context.Context, src SequenceSource, prefix string, day time.Time) (string, error) {
	seq, err := src.NextSequence(ctx, prefix, day)
	if err != nil {
		return "", fmt.Errorf("allocating %s sequence: %w", prefix, err)
	}
	return Format(prefix, day, seq)
}

// Parse splits a number into its day and sequence, checking it carries prefix.
func Parse(prefix, number string) (time.Time, int, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] != prefix {
		return time.Time{}, 0, apperrors.Invalid("number", "%q does not match %s-YYYYMMDD-NNN", number, prefix)
	}

	day, err := time.Parse(dayLayout, parts[1])
	if err != nil {
		return time.Time{}, 0, apperrors.Invalid("number", "%q has an invalid date", number)
	}

	if len(parts[2]) != 3 || strings.IndexFunc(parts[2], func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return time.Time{}, 0, apperrors.Invalid("number", "%q must end in three digits", number)
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return time.Time{}, 0, apperrors.Invalid("number", "%q has an invalid sequence", number)
	}

	return day, seq, nil
}
