package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot/models"

	"telelingo/internal/controller"
)

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID

	return b.withSpinner(ctx, chatID, func() error {
		text := strings.TrimSpace(message.Text)

		switch {
		case text == "":
			return nil
		case command(text, "/start"), command(text, "/help"), command(text, "/menu"):
			return b.handleStartCommand(ctx, chatID)
		case command(text, "/lang"):
			return b.handleLanguageCommand(ctx, text, chatID)
		case command(text, "/detect"):
			return b.handleDetectCommand(ctx, chatID)
		case command(text, "/translate"):
			return b.handleTranslateCommand(ctx, chatID)
		case command(text, "/summarize"):
			return b.handleSummarizeCommand(ctx, chatID)
		default:
			return b.handleText(ctx, chatID, message.Text)
		}
	})
}

// handleText stores text as the chat text and offers the actions.
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) error {
	length, err := b.controller.SetText(chatID, text)
	if err != nil {
		if errors.Is(err, controller.ErrInputTooLong) {
			b.log.DebugContext(ctx, "Text is too long",
				"chatID", chatID,
				"length", length)
		}

		return b.sendError(ctx, chatID, err, nil)
	}

	target := b.controller.State(chatID).TargetLanguage

	return b.sendMessageWithKeyboard(ctx, chatID, formatTextSaved(length, target), b.actionKeyboard)
}

// command reports whether text is the command name, optionally addressed
// to the bot ("/detect@telelingo_bot") or followed by arguments.
func command(text, name string) bool {
	head, _, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(head, "@")

	return head == name
}
