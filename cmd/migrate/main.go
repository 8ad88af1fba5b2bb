// Schema migration for the abstracts database
// cmd/migrate/main.go
package main

import (
	"flag"
	"log"
	"strings"

	"conference-abstracts-api/config"
	"conference-abstracts-api/controllers"
	"conference-abstracts-api/models"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	hashPasswords := flag.Bool("hash-passwords", false, "bcrypt any plaintext passwords left in users")
	flag.Parse()

	config.InitLogging()
	config.InitDB()

	if err := config.DB.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.FileUpload{},
		&models.AbstractSubmission{},
		&models.ReviewerAssignment{},
		&models.AbstractReview{},
		&models.AbstractStatusHistory{},
		&models.AbstractConfig{},
		&models.RoundRobinCursor{},
		&models.ReviewerProfile{},
		&models.Notification{},
	); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}
	log.Println("Schema migration completed")

	if *hashPasswords {
		migratePasswords()
	}
}

func migratePasswords() {
	var users []models.User
	if err := config.DB.Find(&users).Error; err != nil {
		log.Fatal("Failed to fetch users:", err)
	}

	for _, user := range users {
		// Skip if already hashed (bcrypt hashes start with $2)
		if strings.HasPrefix(user.Password, "$2") || user.Password == "" {
			continue
		}

		hashed, err := controllers.HashPassword(user.Password)
		if err != nil {
			log.Printf("Failed to hash password for user %s: %v\n", user.Email, err)
			continue
		}

		if err := config.DB.Model(&user).Update("password", hashed).Error; err != nil {
			log.Printf("Failed to update password for user %s: %v\n", user.Email, err)
			continue
		}

		log.Printf("Hashed password for user %s\n", user.Email)
	}

	log.Println("Password migration completed!")
}
