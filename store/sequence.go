package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/numbering"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceCounter allocates daily document sequence values from the sequences table.
type SequenceCounter struct {
	db *gorm.DB
}

// NewSequenceCounter creates a counter backed by db
func NewSequenceCounter(db *gorm.DB) *SequenceCounter {
	return &SequenceCounter{db: db}
}

// NextSequence increments and returns the counter for prefix on day. The upsert holds
// the row lock until commit so concurrent callers never see the same value.
func (s *SequenceCounter) NextSequence(ctx context.Context, prefix string, day time.Time) (int, error) {
	key := numbering.DayKey(day)
	var value int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := models.Sequence{Prefix: prefix, Day: key, Value: 1}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "prefix"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      gorm.Expr("sequences.value + 1"),
				"updated_at": time.Now(),
			}),
		}).Create(&seq).Error; err != nil {
			return err
		}

		var stored models.Sequence
		if err := tx.Where("prefix = ? AND day = ?", prefix, key).First(&stored).Error; err != nil {
			return err
		}
		value = stored.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing %s sequence for %s: %w", prefix, key, err)
	}
	return value, nil
}

// PeekSequence returns the value NextSequence would hand out next, without allocating it.
func (s *SequenceCounter) PeekSequence(ctx context.Context, prefix string, day time.Time) (int, error) {
	var stored models.Sequence
	err := s.db.WithContext(ctx).Where("prefix = ? AND day = ?", prefix, numbering.DayKey(day)).First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return stored.Value + 1, nil
}
