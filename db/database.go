package db

import (
	"database/sql"
	"fmt"

	"CadenzaFM/config"
	"CadenzaFM/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to the database", logger.String("host", cfg.DBHost), logger.String("name", cfg.DBName))
	return nil
}

// InitDB initializes the database schema, creating tables if they
// don't exist.
func InitDB() error {
	if err := createTracksTable(); err != nil {
		return err
	}
	logger.Info("database schema initialized")
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255),
		album VARCHAR(255),
		track_number INT DEFAULT 0,
		audio_url VARCHAR(767) NOT NULL,
		cover_art_url VARCHAR(767),
		lyrics_url VARCHAR(767),
		duration DOUBLE DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT uq_audio_url UNIQUE (audio_url)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	return nil
}
