package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mars-scraper/config"
	"mars-scraper/db"
	"mars-scraper/models"
)

type fakeSender struct {
	sent   []tgbotapi.Chattable
	nextID int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: 100 + f.nextID}, nil
}

func (f *fakeSender) texts() []string {
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeRequestStore struct {
	created   []int
	createErr error
	latest    *models.Report
}

func (f *fakeRequestStore) CreateRequest(chatID int64, telegramMessageID int) (*db.Request, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, telegramMessageID)
	return &db.Request{ID: len(f.created), ChatID: chatID, TelegramMessageID: telegramMessageID, Status: db.StatusCreated}, nil
}

func (f *fakeRequestStore) GetLatestReport() (*models.Report, error) {
	return f.latest, nil
}

func command(chatID int64, text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		MessageID: 5,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func newHandler(store *fakeRequestStore) (*botHandler, *fakeSender) {
	cfg := config.Defaults()
	cfg.Telegram.AllowedChatIDs = []int64{42}
	sender := &fakeSender{}
	return &botHandler{
		cfg:   cfg,
		bot:   sender,
		store: store,
		now:   func() time.Time { return time.Date(2026, 5, 4, 10, 5, 0, 0, time.UTC) },
	}, sender
}

func TestHandleMessageRejectsUnknownChat(t *testing.T) {
	store := &fakeRequestStore{}
	h, sender := newHandler(store)

	h.handleMessage(command(7, "/scrape"))

	assert.Empty(t, store.created)
	require.Len(t, sender.texts(), 1)
	assert.Contains(t, sender.texts()[0], "not authorized")
}

func TestHandleScrapeQueuesRequest(t *testing.T) {
	store := &fakeRequestStore{}
	h, sender := newHandler(store)

	h.handleMessage(command(42, "/scrape"))

	require.Equal(t, []int{101}, store.created)
	assert.Contains(t, sender.texts()[0], "queued")
}

func TestHandleScrapeReportsCreateFailure(t *testing.T) {
	store := &fakeRequestStore{createErr: errors.New("db down")}
	h, sender := newHandler(store)

	h.handleMessage(command(42, "/scrape"))

	texts := sender.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "db down")
}

func TestHandleLatest(t *testing.T) {
	t.Run("no reports", func(t *testing.T) {
		h, sender := newHandler(&fakeRequestStore{})
		h.handleMessage(command(42, "/latest"))
		assert.Equal(t, []string{"No reports yet. Use /scrape to run one."}, sender.texts())
	})

	t.Run("summary", func(t *testing.T) {
		now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
		report := models.NewReport("abcdef123456", now)
		report.Add(models.TaskResult{Task: models.TaskWeather, Success: true, VisitedAt: now, Payload: models.WeatherPayload{TweetText: "Sol 1000"}})
		report.FinishedAt = now

		h, sender := newHandler(&fakeRequestStore{latest: report})
		h.handleMessage(command(42, "/latest"))

		require.Len(t, sender.sent, 1)
		msg := sender.sent[0].(tgbotapi.MessageConfig)
		assert.Equal(t, 5, msg.ReplyToMessageID)
		assert.Contains(t, msg.Text, "abcdef12")
		assert.Contains(t, msg.Text, "Sol 1000")
		assert.Contains(t, msg.Text, "5 minutes ago")
	})
}

func TestHandleOtherMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  *tgbotapi.Message
		want string
	}{
		{"help", command(42, "/help"), "/latest - Show the latest report"},
		{"unknown command", command(42, "/moons"), "Unknown command"},
		{"plain text", &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}, Text: "hello"}, "Use /scrape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sender := newHandler(&fakeRequestStore{})
			h.handleMessage(tt.msg)
			require.NotEmpty(t, sender.texts())
			assert.Contains(t, sender.texts()[0], tt.want)
		})
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("MARS_SCRAPER_CONFIG", "")
	t.Setenv("DATABASE_URL", "postgres://env")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.Database.URL)
	assert.Equal(t, config.Defaults().Tasks, cfg.Tasks)
}

func TestCLISheetName(t *testing.T) {
	r := models.NewReport("run", time.Now())
	r.FinishedAt = time.Date(2026, 5, 4, 10, 1, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "CLI_20260504_090100", cliSheetName(r))
}
