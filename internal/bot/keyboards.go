package bot

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"telelingo/internal/domain"
)

const (
	languageKeyboardRowSize        = 3
	languageKeyboardCallbackPrefix = "lang_"

	detectCallback    = "detect"
	translateCallback = "translate"
	summarizeCallback = "summarize"
	languageCallback  = "lang"
)

func (b *Bot) sendMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard *models.InlineKeyboardMarkup,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   normalizedText,
		// See https://core.telegram.org/bots/api#markdownv2-style.
		ParseMode:          models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.sender.SendMessage(ctx, params)
	return err
}

// sendMessagesWithKeyboard sends messages in order, attaching the keyboard
// to the last one only.
func (b *Bot) sendMessagesWithKeyboard(
	ctx context.Context,
	chatID int64,
	messages []string,
	keyboard *models.InlineKeyboardMarkup,
) error {
	for i, message := range messages {
		var markup *models.InlineKeyboardMarkup
		if i == len(messages)-1 {
			markup = keyboard
		}

		if err := b.sendMessageWithKeyboard(ctx, chatID, message, markup); err != nil {
			return err
		}
	}

	return nil
}

func getActionKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🔎 Detect language", CallbackData: detectCallback},
				{Text: "🌐 Translate", CallbackData: translateCallback},
			},
			{
				{Text: "📝 Summarize", CallbackData: summarizeCallback},
				{Text: "🗣 Target language", CallbackData: languageCallback},
			},
		},
	}
}

func getLanguageKeyboard() *models.InlineKeyboardMarkup {
	var keyboard [][]models.InlineKeyboardButton

	for i := 0; i < len(domain.TargetLanguages); i += languageKeyboardRowSize {
		var row []models.InlineKeyboardButton

		for j := i; j < i+languageKeyboardRowSize && j < len(domain.TargetLanguages); j++ {
			lang := domain.TargetLanguages[j]
			row = append(row, models.InlineKeyboardButton{
				Text:         lang.Name,
				CallbackData: languageKeyboardCallbackPrefix + lang.Code,
			})
		}

		keyboard = append(keyboard, row)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
