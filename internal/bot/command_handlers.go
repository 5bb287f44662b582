package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"telelingo/internal/domain"
	"telelingo/internal/markdown"
)

const welcomeText = `🤖 *Welcome to Telelingo\!*

I'm your language assistant\. Send me a text \(up to 5000 characters\) and then:

– Detect its language with /detect
– Translate it with /translate
– Summarize it with /summarize \(at least 150 words, or a single link to an article or feed\)
– Choose the target language with /lang

Current target language is *%s*\.`

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64) error {
	target := b.controller.State(chatID).TargetLanguage

	return b.sendMessageWithKeyboard(
		ctx,
		chatID,
		fmt.Sprintf(welcomeText, markdown.EscapeV2(domain.LanguageName(target))),
		b.actionKeyboard,
	)
}

// handleLanguageCommand sets the target language from "/lang <code>" or
// shows the language menu.
func (b *Bot) handleLanguageCommand(ctx context.Context, text string, chatID int64) error {
	_, code, _ := strings.Cut(text, " ")
	code = strings.TrimSpace(code)

	if code == "" {
		return b.sendLanguageMenu(ctx, chatID)
	}

	return b.setTargetLanguage(ctx, chatID, code)
}

func (b *Bot) sendLanguageMenu(ctx context.Context, chatID int64) error {
	target := b.controller.State(chatID).TargetLanguage

	return b.sendMessageWithKeyboard(
		ctx,
		chatID,
		fmt.Sprintf("🗣 Current target language is *%s*\\. Choose another one:",
			markdown.EscapeV2(domain.LanguageName(target))),
		b.languageKeyboard,
	)
}

func (b *Bot) setTargetLanguage(ctx context.Context, chatID int64, code string) error {
	lang, err := b.controller.SetTargetLanguage(chatID, code)
	if err != nil {
		return b.sendError(ctx, chatID, err, b.languageKeyboard)
	}

	return b.sendTargetLanguageSet(ctx, chatID, lang)
}

func (b *Bot) sendTargetLanguageSet(ctx context.Context, chatID int64, lang domain.Language) error {
	return b.sendMessageWithKeyboard(
		ctx,
		chatID,
		fmt.Sprintf("✅ Target language is *%s*\\.", markdown.EscapeV2(lang.Name)),
		b.actionKeyboard,
	)
}

func (b *Bot) handleDetectCommand(ctx context.Context, chatID int64) error {
	results, err := b.controller.Detect(ctx, chatID)
	if err != nil {
		return b.sendError(ctx, chatID, err, b.actionKeyboard)
	}

	return b.sendMessageWithKeyboard(ctx, chatID, formatDetection(results), b.actionKeyboard)
}

func (b *Bot) handleTranslateCommand(ctx context.Context, chatID int64) error {
	translation, err := b.controller.Translate(ctx, chatID)
	if err != nil {
		return b.sendError(ctx, chatID, err, b.actionKeyboard)
	}

	return b.sendMessagesWithKeyboard(ctx, chatID, formatTranslation(translation), b.actionKeyboard)
}

func (b *Bot) handleSummarizeCommand(ctx context.Context, chatID int64) error {
	summary, err := b.controller.Summarize(ctx, chatID)
	if err != nil {
		return b.sendError(ctx, chatID, err, b.actionKeyboard)
	}

	return b.sendMessagesWithKeyboard(ctx, chatID, formatSummary(summary), b.actionKeyboard)
}

// sendError replies with a message explaining err. Errors that are not the
// user's doing are returned for logging.
func (b *Bot) sendError(
	ctx context.Context,
	chatID int64,
	err error,
	keyboard *models.InlineKeyboardMarkup,
) error {
	text, failure := userError(err)

	var errs []error
	if failure {
		errs = append(errs, err)
	}

	if sendErr := b.sendMessageWithKeyboard(ctx, chatID, text, keyboard); sendErr != nil {
		errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
	}

	return errors.Join(errs...)
}
