package config

import (
	"log"
	"worklink_backend/models"
	"worklink_backend/utils"

	"gorm.io/gorm"
)

func SeedCategories(db *gorm.DB) {
	categories := []models.Category{
		{Name: "Engineering", Slug: "engineering"},
		{Name: "Design", Slug: "design"},
		{Name: "Marketing", Slug: "marketing"},
		{Name: "Sales", Slug: "sales"},
		{Name: "Operations", Slug: "operations"},
	}

	for _, category := range categories {
		var existing models.Category
		if err := db.Where("slug = ?", category.Slug).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := db.Create(&category).Error; err != nil {
				log.Printf("Failed to seed category %s: %v", category.Name, err)
			}
		}
	}
}

func SeedUsers(db *gorm.DB) {
	log.Println("Seeding users...")

	password, _ := utils.HashPassword("password123")

	users := []models.User{
		{
			Username: "candidate1",
			Email:    "candidate1@example.com",
			Password: password,
			FullName: "Candidate One",
			Role:     "user",
			IsActive: true,
		},
		{
			Username: "recruiter1",
			Email:    "recruiter1@example.com",
			Password: password,
			FullName: "Recruiter One",
			Role:     "recruiter",
			IsActive: true,
		},
	}

	for _, user := range users {
		var existingUser models.User
		if err := db.Where("email = ?", user.Email).First(&existingUser).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := db.Create(&user).Error; err != nil {
					log.Printf("Failed to seed user %s: %v", user.Username, err)
				} else {
					log.Printf("User seeded: %s (ID: %d)", user.Username, user.ID)
				}
			}
		} else {
			log.Printf("User already exists: %s", user.Username)
		}
	}

	log.Println("Seeding complete.")
}
