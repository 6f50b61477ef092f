package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mars-scraper/models"
)

// Request statuses
const (
	StatusCreated    = "created"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Request represents a queued scraping run asked for from Telegram
type Request struct {
	ID                int
	ChatID            int64
	TelegramMessageID int
	Status            string // "created", "in_progress", "done", "failed"
	ReportID          sql.NullString
	SheetName         sql.NullString
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const requestColumns = `id, chat_id, telegram_message_id, status, report_id, sheet_name, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.ChatID, &req.TelegramMessageID, &req.Status,
		&req.ReportID, &req.SheetName, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateRequest queues a new scraping run
func (db *DB) CreateRequest(chatID int64, telegramMessageID int) (*Request, error) {
	req, err := scanRequest(db.conn.QueryRow(`
		INSERT INTO requests (chat_id, telegram_message_id, status)
		VALUES ($1, $2, 'created')
		RETURNING `+requestColumns,
		chatID, telegramMessageID))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// ClaimNextRequest marks the oldest created request as in progress and
// returns it. It returns nil when the queue is empty.
func (db *DB) ClaimNextRequest() (*Request, error) {
	req, err := scanRequest(db.conn.QueryRow(`
		UPDATE requests
		SET status = 'in_progress', updated_at = CURRENT_TIMESTAMP
		WHERE id = (
			SELECT id FROM requests
			WHERE status = 'created'
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + requestColumns))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim request: %w", err)
	}
	return req, nil
}

// GetRequestByID retrieves a request by ID
func (db *DB) GetRequestByID(requestID int) (*Request, error) {
	req, err := scanRequest(db.conn.QueryRow(`
		SELECT `+requestColumns+`
		FROM requests
		WHERE id = $1
	`, requestID))
	if err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateRequestStatus updates the status of a request
func (db *DB) UpdateRequestStatus(requestID int, status string) error {
	_, err := db.conn.Exec(`
		UPDATE requests
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, status, requestID)
	return err
}

// UpdateRequestSheetName updates the sheet name for a request
func (db *DB) UpdateRequestSheetName(requestID int, sheetName string) error {
	_, err := db.conn.Exec(`
		UPDATE requests
		SET sheet_name = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, sheetName, requestID)
	return err
}

// SaveReport stores a report with one row per task result. requestID is
// zero for runs not started from a request.
func (db *DB) SaveReport(report *models.Report, requestID int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var reqID sql.NullInt64
	if requestID > 0 {
		reqID = sql.NullInt64{Int64: int64(requestID), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO reports (id, request_id, started_at, finished_at, success_count)
		VALUES ($1, $2, $3, $4, $5)
	`, report.RunID, reqID, report.StartedAt, report.FinishedAt, report.SuccessCount())
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", report.RunID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO task_results (report_id, position, task, success, visited_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, res := range report.Results {
		payload, err := json.Marshal(res.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", res.Task, err)
		}
		// jsonb takes text; a []byte would be sent as bytea
		_, err = stmt.Exec(report.RunID, i, string(res.Task), res.Success, res.VisitedAt, string(payload))
		if err != nil {
			return fmt.Errorf("failed to insert task result (report=%s, task=%s): %w", report.RunID, res.Task, err)
		}
	}

	if reqID.Valid {
		_, err = tx.Exec(`
			UPDATE requests
			SET report_id = $1, updated_at = CURRENT_TIMESTAMP
			WHERE id = $2
		`, report.RunID, requestID)
		if err != nil {
			return fmt.Errorf("failed to link report to request: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetLatestReport rebuilds the most recently finished report. It returns
// nil when nothing has been stored yet.
func (db *DB) GetLatestReport() (*models.Report, error) {
	var runID string
	err := db.conn.QueryRow(`
		SELECT id FROM reports
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest report: %w", err)
	}
	return db.GetReport(runID)
}

// GetReport rebuilds a stored report by run ID
func (db *DB) GetReport(runID string) (*models.Report, error) {
	var startedAt, finishedAt time.Time
	err := db.conn.QueryRow(`
		SELECT started_at, finished_at FROM reports WHERE id = $1
	`, runID).Scan(&startedAt, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", runID, err)
	}

	report := models.NewReport(runID, startedAt)
	report.FinishedAt = finishedAt

	rows, err := db.conn.Query(`
		SELECT task, success, visited_at, payload
		FROM task_results
		WHERE report_id = $1
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			task    string
			res     models.TaskResult
			payload []byte
		)
		if err := rows.Scan(&task, &res.Success, &res.VisitedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan task result: %w", err)
		}
		res.Task = models.TaskName(task)
		res.Payload, err = models.DecodePayload(res.Task, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", task, err)
		}
		report.Add(res)
	}
	return report, rows.Err()
}
