package migration

import (
	"testing"

	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRunAndSeed(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Run(db))
	require.NoError(t, Run(db))

	assert.True(t, db.Migrator().HasTable(&repository.BanRecord{}))
	assert.True(t, db.Migrator().HasIndex(&repository.BanRecord{}, "idx_bans_member_id"))

	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var groups, members int64
	db.Model(&domain.Group{}).Count(&groups)
	db.Model(&domain.Member{}).Count(&members)
	assert.Equal(t, int64(3), groups)
	assert.Equal(t, int64(5), members)
}
