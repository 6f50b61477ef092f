package scheduler

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mars-scraper/db"
	"mars-scraper/logger"
	"mars-scraper/models"
	"mars-scraper/sheets"
)

// Store is the part of the database the scheduler works with
type Store interface {
	ClaimNextRequest() (*db.Request, error)
	UpdateRequestStatus(requestID int, status string) error
	UpdateRequestSheetName(requestID int, sheetName string) error
	SaveReport(report *models.Report, requestID int) error
}

// Runner performs one scraping run
type Runner interface {
	Run(ctx context.Context) (*models.Report, error)
}

// Exporter writes a report to a new spreadsheet tab
type Exporter interface {
	CreateSheetAndWriteReport(ctx context.Context, sheetName string, report *models.Report) (string, int64, error)
}

// Sender delivers Telegram messages
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Scheduler processes queued scraping requests one at a time
type Scheduler struct {
	store          Store
	runner         Runner
	bot            Sender
	writer         Exporter
	spreadsheetURL string
	interval       time.Duration
	now            func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a new scheduler. writer may be nil, in which case
// reports are only stored.
func NewScheduler(store Store, runner Runner, bot Sender, writer Exporter, spreadsheetURL string, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:          store,
		runner:         runner,
		bot:            bot,
		writer:         writer,
		spreadsheetURL: spreadsheetURL,
		interval:       interval,
		now:            time.Now,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler and waits for the request in progress to finish
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
	logger.Log.Info().Msg("scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.processNextRequest(s.ctx)
		}
	}
}

// processNextRequest claims the oldest created request and runs it
func (s *Scheduler) processNextRequest(ctx context.Context) {
	req, err := s.store.ClaimNextRequest()
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to get next request")
		return
	}
	if req == nil {
		return
	}

	log := logger.Log.With().Int("request_id", req.ID).Int64("chat_id", req.ChatID).Logger()
	log.Info().Msg("processing request")

	s.sendStatusUpdate(req, "🔄 Processing request... Starting scraping...")

	report, err := s.runner.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scraping failed")
		s.handleRequestError(req, err)
		return
	}

	if err := s.store.SaveReport(report, req.ID); err != nil {
		log.Error().Err(err).Msg("failed to save report")
		s.handleRequestError(req, err)
		return
	}

	var sheetURL string
	if s.writer != nil {
		createdSheetName, sheetID, err := s.writer.CreateSheetAndWriteReport(ctx, sheets.SheetName(req.ID, report), report)
		if err != nil {
			log.Error().Err(err).Msg("failed to write to Google Sheets")
			s.handleRequestError(req, err)
			return
		}
		if err := s.store.UpdateRequestSheetName(req.ID, createdSheetName); err != nil {
			log.Warn().Err(err).Msg("failed to update sheet name")
		}
		sheetURL = s.createSheetURL(sheetID)
	}

	if err := s.store.UpdateRequestStatus(req.ID, db.StatusDone); err != nil {
		log.Error().Err(err).Msg("failed to update request status to done")
		return
	}

	text := "✅ Scraping finished!\n\n" + models.FormatSummary(report, s.now())
	if sheetURL != "" {
		text += "\nView spreadsheet: " + sheetURL
	}
	s.sendStatusUpdate(req, text)
	log.Info().Str("run_id", report.RunID).Int("succeeded", report.SuccessCount()).Msg("request done")
}

// handleRequestError handles errors during request processing
func (s *Scheduler) handleRequestError(req *db.Request, err error) {
	if updateErr := s.store.UpdateRequestStatus(req.ID, db.StatusFailed); updateErr != nil {
		logger.Log.Error().Err(updateErr).Int("request_id", req.ID).Msg("failed to update request status to failed")
	}

	s.sendStatusUpdate(req, fmt.Sprintf("❌ Error processing request: %v", err))
}

// createSheetURL creates a URL that opens a specific sheet in the spreadsheet
func (s *Scheduler) createSheetURL(sheetID int64) string {
	spreadsheetID := sheets.ExtractSpreadsheetID(s.spreadsheetURL)
	if spreadsheetID == "" {
		return s.spreadsheetURL
	}

	// Format: https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit#gid=SHEET_ID
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", spreadsheetID, sheetID)
}

// sendStatusUpdate replies to the message that queued the request
func (s *Scheduler) sendStatusUpdate(req *db.Request, text string) {
	SendText(s.bot, req.ChatID, req.TelegramMessageID, text)
}
