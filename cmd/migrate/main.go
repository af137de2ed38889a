package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"chatvault/config"
	"chatvault/internal/domain/file"
	"chatvault/internal/domain/message"
	"chatvault/internal/domain/outbox"
	"chatvault/internal/domain/room"
	"chatvault/internal/domain/user"
	"chatvault/pkg/database"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var tables = []any{
	&user.User{},
	&room.Room{},
	&room.Participant{},
	&message.Message{},
	&file.File{},
	&outbox.OutboxEvent{},
}

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg := config.LoadConfig()
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch cmd {
	case "up":
		if err := db.AutoMigrate(tables...); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("migrations applied")
	case "status":
		for _, t := range tables {
			fmt.Printf("%-30T exists=%v\n", t, db.Migrator().HasTable(t))
		}
	case "seed":
		if err := seed(db); err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
		fmt.Println("seed data created")
	default:
		fmt.Fprintf(os.Stderr, "usage: migrate [up|status|seed]\n")
		os.Exit(2)
	}
}

// seed creates a demo user and a room for local development.
func seed(db *gorm.DB) error {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	demo := user.User{
		ID:           uuid.New(),
		Email:        "demo@example.com",
		Username:     "demo",
		PasswordHash: string(hash),
		DisplayName:  "Demo User",
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.WithContext(ctx).FirstOrCreate(&demo, user.User{Email: demo.Email}).Error; err != nil {
		return err
	}

	general := room.Room{
		ID:        uuid.New(),
		Name:      "general",
		Topic:     sql.NullString{String: "Anything goes", Valid: true},
		CreatedBy: demo.ID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.WithContext(ctx).FirstOrCreate(&general, room.Room{Name: general.Name}).Error; err != nil {
		return err
	}

	member := room.Participant{
		RoomID:   general.ID,
		UserID:   demo.ID,
		Role:     "owner",
		JoinedAt: time.Now(),
	}
	return db.WithContext(ctx).FirstOrCreate(&member, room.Participant{RoomID: general.ID, UserID: demo.ID}).Error
}
