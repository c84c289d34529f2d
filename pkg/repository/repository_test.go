package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tradesettle/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type jobSite struct {
	ID        int64 `gorm:"primaryKey"`
	Code      string
	StateCode string
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&jobSite{}))
	return db
}

func TestStoreFindAndCount(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := repository.ProvideStore[jobSite](db)

	for i, code := range []string{"DAL-02", "AUS-01", "ABQ-01"} {
		state := "TX"
		if code == "ABQ-01" {
			state = "NM"
		}
		require.NoError(t, store.Create(ctx, &jobSite{ID: int64(i + 1), Code: code, StateCode: state}))
	}

	texas, err := store.Find(ctx, &jobSite{StateCode: "TX"}, repository.OrderBy("code"))
	require.NoError(t, err)
	require.Len(t, texas, 2)
	assert.Equal(t, "AUS-01", texas[0].Code)

	count, err := store.Count(ctx, &jobSite{StateCode: "NM"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	filtered, err := store.Find(ctx, &jobSite{}, repository.Where("id IN ?", []int64{1, 3}))
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestStoreFindOneMissing(t *testing.T) {
	db := setupTestDB(t)
	store := repository.ProvideStore[jobSite](db)

	found, err := store.FindOne(context.Background(), &jobSite{ID: 99})
	require.NoError(t, err)
	assert.Nil(t, found)
}
