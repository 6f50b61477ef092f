package scheduler

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mars-scraper/logger"
)

// MaxMessageLength is Telegram's limit for one text message
const MaxMessageLength = 4096

// SendText sends text to a chat, split across messages when it is too long.
// The first part replies to replyTo when it is non-zero.
func SendText(bot Sender, chatID int64, replyTo int, text string) {
	for i, part := range SplitMessage(text, MaxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if i == 0 && replyTo != 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := bot.Send(msg); err != nil {
			logger.Log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
			return
		}
	}
}

// SplitMessage splits a message into chunks of at most maxLen bytes,
// preferring line boundaries
func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	lines := strings.Split(text, "\n")
	var current strings.Builder

	for _, line := range lines {
		if current.Len()+len(line)+1 > maxLen {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			// If a single line is too long, split it on a rune boundary
			for len(line) >= maxLen {
				cut := maxLen
				for cut > 0 && cut < len(line) && !utf8.RuneStart(line[cut]) {
					cut--
				}
				if cut == 0 {
					cut = maxLen
				}
				parts = append(parts, line[:cut])
				line = line[cut:]
			}
		}
		current.WriteString(line)
		current.WriteString("\n")
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
