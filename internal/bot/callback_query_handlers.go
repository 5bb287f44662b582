package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) error {
	chatID := callbackChatID(callback)
	if chatID == 0 {
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return errors.New("callback query has no chat")
		})
	}

	return b.withSpinner(ctx, chatID, func() error {
		data := strings.TrimSpace(callback.Data)

		switch data {
		case detectCallback:
			return b.withEmptyCallbackAnswer(ctx, callback, func() error {
				return b.handleDetectCommand(ctx, chatID)
			})
		case translateCallback:
			return b.withEmptyCallbackAnswer(ctx, callback, func() error {
				return b.handleTranslateCommand(ctx, chatID)
			})
		case summarizeCallback:
			return b.withEmptyCallbackAnswer(ctx, callback, func() error {
				return b.handleSummarizeCommand(ctx, chatID)
			})
		case languageCallback:
			return b.withEmptyCallbackAnswer(ctx, callback, func() error {
				return b.sendLanguageMenu(ctx, chatID)
			})
		}

		if code, ok := strings.CutPrefix(data, languageKeyboardCallbackPrefix); ok {
			return b.handleLanguageQuery(ctx, code, chatID, callback)
		}

		return nil
	})
}

func (b *Bot) handleLanguageQuery(
	ctx context.Context,
	code string,
	chatID int64,
	callback *models.CallbackQuery,
) error {
	lang, err := b.controller.SetTargetLanguage(chatID, code)
	if err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("set target language: %w", err))
	}

	if _, err = b.client.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            "✅ " + lang.Name,
	}); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return b.sendTargetLanguageSet(ctx, chatID, lang)
}

// withEmptyCallbackAnswer stops the button spinner before running fn.
func (b *Bot) withEmptyCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if _, err := b.client.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	}); err != nil {
		errs = append(errs, fmt.Errorf("answer callback query: %w", err))
	}

	if err := fn(); err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) errorCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	err error,
) error {
	if _, sendErr := b.client.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            "❌ Failed.",
	}); sendErr != nil {
		return errors.Join(err, fmt.Errorf("answer callback query: %w", sendErr))
	}

	return err
}
