// internal/services/setup_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// An in-memory database lives and dies with its connection, so the pool
	// must stay at one connection or tables vanish mid-test.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.IPAsset{},
		&models.License{},
		&models.Transaction{},
		&models.AuditLog{},
		&models.Notification{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, role models.SystemRole) *models.User {
	t.Helper()

	user := &models.User{
		Nickname: "测试用户",
		Email:    "user-" + uuid.NewString() + "@star-engine.test",
		Role:     role,
	}
	require.NoError(t, user.SetPassword("test-password-1"))
	require.NoError(t, db.Create(user).Error)

	return user
}

func createTestAsset(t *testing.T, db *gorm.DB, creator *models.User, status models.AssetWorkflowStatus) *models.IPAsset {
	t.Helper()

	asset := &models.IPAsset{
		Title:          "测试国画",
		Type:           models.AssetTypeImage,
		Status:         status,
		CreatorID:      creator.ID,
		OriginalURL:    "https://example.test/originals/painting.jpg",
		CopyrightOwner: models.CopyrightOwnerCreator,
	}
	require.NoError(t, db.Create(asset).Error)

	return asset
}
