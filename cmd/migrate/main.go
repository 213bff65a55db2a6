package main

import (
	"log"
	"os"

	"ai-networking-be/internal/model"
	"ai-networking-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	if err := db.AutoMigrate(&model.Contact{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// Dedupe lookups compare lower-cased values.
	log.Println("Step 3: Creating lookup indexes...")
	indexSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_contacts_user_email_lower ON contacts (user_id, LOWER(email)) WHERE deleted_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_user_name_lower ON contacts (user_id, LOWER(name)) WHERE deleted_at IS NULL;`,
	}
	for _, sql := range indexSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to create index: %v", err)
		}
	}

	log.Println("Migration completed successfully")
}
