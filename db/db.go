package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"mars-scraper/logger"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection. An empty connStr is built from
// the DB_* environment variables.
func NewDB(connStr string) (*DB, error) {
	if connStr == "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "mars_scraper")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "mars_scraper")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS requests (
			id SERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			telegram_message_id INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'created',
			report_id UUID,
			sheet_name VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT valid_status CHECK (status IN ('created', 'in_progress', 'done', 'failed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create requests table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY,
			request_id INTEGER REFERENCES requests(id) ON DELETE SET NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			success_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS task_results (
			id SERIAL PRIMARY KEY,
			report_id UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			task VARCHAR(32) NOT NULL,
			success BOOLEAN NOT NULL,
			visited_at TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL,
			CONSTRAINT unique_report_task UNIQUE (report_id, task)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create task_results table: %w", err)
	}

	// Create indexes
	_, err = db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status)`)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("failed to create index on requests.status")
	}

	_, err = db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_reports_finished_at ON reports(finished_at)`)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("failed to create index on reports.finished_at")
	}

	logger.Log.Info().Msg("database schema initialized")
	return nil
}
