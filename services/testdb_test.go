package services

import (
	"testing"

	"worklink_backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.MessageLike{},
		&models.Presence{},
		&models.Notification{},
		&models.Device{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		FullName: username,
		Role:     "user",
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func strptr(s string) *string {
	return &s
}
