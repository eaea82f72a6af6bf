package database

import (
	"fmt"
	"log"
	"time"

	"taskchat/config"
	"taskchat/internal/domain/chat"
	"taskchat/internal/domain/conversation"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	var err error
	// TranslateError maps unique-violation errors to gorm.ErrDuplicatedKey,
	// which the repositories rely on for idempotent-insert races.
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatalf("Failed to get generic database object: %v", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
}

// Migrate applies the schema for the chat core tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&conversation.Conversation{},
		&conversation.Collaborator{},
		&chat.Message{},
		&chat.MessageReaction{},
		&chat.ReadState{},
	)
}

// HealthCheck pings the underlying connection pool.
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
