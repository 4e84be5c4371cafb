package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/birokt/smittevern/internal/database"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: database.NowUTC,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&database.Profile{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, profiles ...database.Profile) {
	t.Helper()
	for i := range profiles {
		require.NoError(t, db.Create(&profiles[i]).Error)
	}
}

func TestDirectory_LookupProfile(t *testing.T) {
	db := setupDB(t)
	seed(t, db, database.Profile{UserID: "u1", FullName: "Kari Birøkter", Email: "kari@example.no", Phone: "12345678"})
	dir := NewDirectory(db, nil, 0, nil)

	p, err := dir.LookupProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Kari Birøkter", p.FullName)
	assert.Equal(t, "12345678", p.Phone)

	_, err = dir.LookupProfile(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	_, err = dir.LookupProfile(context.Background(), "")
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestDirectory_ActiveApiaryOwners(t *testing.T) {
	db := setupDB(t)
	seed(t, db,
		database.Profile{UserID: "reporter", HasActiveApiary: true},
		database.Profile{UserID: "b", HasActiveApiary: true},
		database.Profile{UserID: "a", HasActiveApiary: true},
		database.Profile{UserID: "inactive", HasActiveApiary: false},
	)
	dir := NewDirectory(db, nil, 0, nil)

	ids, err := dir.ActiveApiaryOwners(context.Background(), "reporter")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	all, err := dir.ActiveApiaryOwners(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type failingDirectory struct{}

func (failingDirectory) LookupProfile(context.Context, string) (*database.Profile, error) {
	return nil, errors.New("profile store unavailable")
}

func TestDisplayName_FallsBackToUnknown(t *testing.T) {
	db := setupDB(t)
	seed(t, db, database.Profile{UserID: "u1", FullName: "Kari"}, database.Profile{UserID: "u2"})
	dir := NewDirectory(db, nil, 0, nil)

	assert.Equal(t, "Kari", DisplayName(context.Background(), dir, "u1"))
	assert.Equal(t, UnknownName, DisplayName(context.Background(), dir, "u2"))
	assert.Equal(t, UnknownName, DisplayName(context.Background(), dir, "missing"))
	assert.Equal(t, UnknownName, DisplayName(context.Background(), failingDirectory{}, "u1"))
	assert.Equal(t, UnknownName, DisplayName(context.Background(), nil, "u1"))
}
