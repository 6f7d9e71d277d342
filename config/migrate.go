package config

import (
	"log"
	"worklink_backend/models"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	// Migrate the schema
	err := db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.MessageLike{},
		&models.Presence{},
		&models.Notification{},
		&models.Device{},
		&models.Category{},
		&models.JobPost{},
		&models.Proposal{},
	)

	if err != nil {
		log.Printf("Failed to migrate database schema: %v", err)
		return err
	}

	log.Println("Database migrations completed successfully...")

	return nil
}

func ResetAndMigrate(db *gorm.DB) error {
	// Drop all tables
	tables := []interface{}{
		&models.User{},
		&models.Follow{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.MessageLike{},
		&models.Presence{},
		&models.Notification{},
		&models.Device{},
		&models.Category{},
		&models.JobPost{},
		&models.Proposal{},
	}

	if err := db.Migrator().DropTable(tables...); err != nil {
		log.Printf("Failed to drop tables: %v", err)
		return err
	}

	log.Println("All tables dropped successfully.")

	if err := db.AutoMigrate(tables...); err != nil {
		log.Printf("Failed to auto migrate: %v", err)
		return err
	}

	SeedCategories(db)
	SeedUsers(db)

	log.Println("Database reset and migration completed successfully.")
	return nil
}
