package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// loseVersionRace makes the next `times` versioned updates of table miss their row by
// bumping the stored version inside the same transaction, just before the update runs.
// It returns a pointer to the number of updates it interfered with.
func loseVersionRace(t *testing.T, db *gorm.DB, table string, times int) *int {
	t.Helper()
	fired := new(int)
	err := db.Callback().Update().Before("gorm:update").Register("test:lose_race_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table || *fired >= times {
			return
		}
		*fired++
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, "UPDATE "+table+" SET version = version + 1"); err != nil {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, err)
	return fired
}
