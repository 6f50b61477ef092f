package main

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"mars-scraper/config"
	"mars-scraper/db"
	"mars-scraper/logger"
	"mars-scraper/models"
	"mars-scraper/scheduler"
	"mars-scraper/sheets"
)

const helpText = "Commands:\n" +
	"/start - Start the bot\n" +
	"/scrape - Queue a new Mars scrape\n" +
	"/latest - Show the latest report\n" +
	"/help - Show this help"

func init() {
	rootCmd.AddCommand(botCmd)
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Runs the Telegram bot and the request scheduler.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
		}

		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("failed to initialize bot: %w", err)
		}
		logger.Log.Info().Str("account", bot.Self.UserName).Msg("Authorized")

		database, err := db.NewDB(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.Close()

		s, err := newScraper(cfg)
		if err != nil {
			return err
		}

		var exporter scheduler.Exporter
		if spreadsheetID := sheets.ExtractSpreadsheetID(cfg.Sheets.SpreadsheetURL); spreadsheetID != "" {
			writer, err := sheets.NewWriter(ctx, spreadsheetID, cfg.Sheets.CredentialsPath)
			if err != nil {
				return fmt.Errorf("failed to initialize Google Sheets writer: %w", err)
			}
			exporter = writer
			logger.Log.Info().Str("spreadsheet", spreadsheetID).Msg("Google Sheets export enabled")
		} else {
			logger.Log.Info().Msg("No spreadsheet configured, reports stay in Postgres only")
		}

		sched := scheduler.NewScheduler(database, s, bot, exporter, cfg.Sheets.SpreadsheetURL, cfg.Telegram.PollInterval)
		sched.Start()
		defer sched.Stop()

		updateConfig := tgbotapi.NewUpdate(0)
		updateConfig.Timeout = 60
		updateConfig.Offset = -1
		updates := bot.GetUpdatesChan(updateConfig)
		defer bot.StopReceivingUpdates()

		h := &botHandler{cfg: cfg, bot: bot, store: database}
		for {
			select {
			case <-ctx.Done():
				logger.Log.Info().Msg("Shutting down bot")
				return nil
			case update, ok := <-updates:
				if !ok {
					return nil
				}
				if update.Message != nil {
					h.handleMessage(update.Message)
				}
			}
		}
	},
}

// requestStore is the part of the database the bot commands use
type requestStore interface {
	CreateRequest(chatID int64, telegramMessageID int) (*db.Request, error)
	GetLatestReport() (*models.Report, error)
}

type botHandler struct {
	cfg   *config.Config
	bot   scheduler.Sender
	store requestStore
	now   func() time.Time
}

func (h *botHandler) reply(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := h.bot.Send(msg)
	if err != nil {
		logger.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
	return sent, err
}

func (h *botHandler) handleMessage(m *tgbotapi.Message) {
	chatID := m.Chat.ID

	if !h.cfg.IsAllowedChat(chatID) {
		logger.Log.Warn().Int64("chat_id", chatID).Msg("Unauthorized chat attempted to use bot")
		h.reply(chatID, "Sorry, you are not authorized to use this bot.")
		return
	}

	if !m.IsCommand() {
		h.reply(chatID, "Use /scrape to collect the latest Mars data or /help for commands.")
		return
	}

	switch m.Command() {
	case "start":
		h.reply(chatID, "Welcome! Send /scrape to collect the latest Mars news, images, weather, facts and hemispheres.")
		if h.cfg.Sheets.SpreadsheetURL != "" {
			h.reply(chatID, fmt.Sprintf("📊 Spreadsheet: %s", h.cfg.Sheets.SpreadsheetURL))
		}
	case "help":
		h.reply(chatID, helpText)
	case "scrape":
		h.queueScrape(chatID)
	case "latest":
		h.sendLatest(chatID, m.MessageID)
	default:
		h.reply(chatID, "Unknown command. Use /help for available commands.")
	}
}

func (h *botHandler) queueScrape(chatID int64) {
	sent, err := h.reply(chatID, "📝 Request received! It has been queued and will be processed shortly.")
	if err != nil {
		return
	}

	req, err := h.store.CreateRequest(chatID, sent.MessageID)
	if err != nil {
		logger.Log.Error().Err(err).Int64("chat_id", chatID).Msg("Error creating request")
		h.bot.Send(tgbotapi.NewEditMessageText(chatID, sent.MessageID, fmt.Sprintf("❌ Error: Failed to create request: %v", err)))
		return
	}
	logger.Log.Info().Int("request_id", req.ID).Int64("chat_id", chatID).Msg("Created request")
}

func (h *botHandler) sendLatest(chatID int64, replyTo int) {
	report, err := h.store.GetLatestReport()
	if err != nil {
		logger.Log.Error().Err(err).Msg("Error loading latest report")
		h.reply(chatID, fmt.Sprintf("❌ Error loading latest report: %v", err))
		return
	}
	if report == nil {
		h.reply(chatID, "No reports yet. Use /scrape to run one.")
		return
	}

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	scheduler.SendText(h.bot, chatID, replyTo, models.FormatSummary(report, now()))
}
