package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-books/internal/book"
	"github.com/noah-isme/backend-books/internal/db"
)

func main() {
	migrateFirst := flag.Bool("migrate", true, "apply pending migrations before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if *migrateFirst {
		version, err := db.Migrate(dbURL)
		if err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
		log.Printf("Schema at version %d", version)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, dbURL, "books-seeder")
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	defer pool.Close()

	created, skipped, err := seedBooks(ctx, book.NewPGStore(pool), sampleBooks())
	if err != nil {
		log.Fatalf("Failed to seed books: %v", err)
	}
	log.Printf("Seeding completed: %d created, %d already present", created, skipped)
}
