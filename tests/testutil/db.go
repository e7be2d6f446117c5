package testutil

import (
	"testing"

	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a fresh in-memory SQLite database with every model migrated.
// The pool is capped at one connection because each new connection to ":memory:"
// would see an empty database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")
	return db
}

// SeedKarigar inserts a karigar with the given code and active flag.
func SeedKarigar(t *testing.T, db *gorm.DB, code string, active bool) models.Karigar {
	t.Helper()

	k := models.Karigar{Code: code, Name: "Karigar " + code, Active: active}
	require.NoError(t, db.Create(&k).Error)
	return k
}

// SeedProcess inserts a process with the given name and active flag.
func SeedProcess(t *testing.T, db *gorm.DB, name string, active bool) models.Process {
	t.Helper()

	p := models.Process{Name: name, Active: active}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// SeedUser inserts a staff profile.
func SeedUser(t *testing.T, db *gorm.DB, auth0ID, name, role string) models.User {
	t.Helper()

	u := models.User{Auth0ID: auth0ID, Name: name, Email: auth0ID + "@example.com", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}
