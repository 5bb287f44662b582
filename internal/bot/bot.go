package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"telelingo/internal/controller"
	"telelingo/internal/ratelimiter"
)

const updateProcessingTimeout = 3 * time.Minute

// client is the part of the Telegram API the bot talks to directly.
type client interface {
	ratelimiter.Sender
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type Bot struct {
	api              *bot.Bot
	client           client
	sender           ratelimiter.Sender
	rateLimiter      *ratelimiter.RateLimiter
	controller       *controller.Controller
	allowedUsers     []int64
	actionKeyboard   *models.InlineKeyboardMarkup
	languageKeyboard *models.InlineKeyboardMarkup
	log              *slog.Logger
}

func New(
	token string,
	ctrl *controller.Controller,
	allowedUsers []int64,
	log *slog.Logger,
	opts ...bot.Option,
) (*Bot, error) {
	b := newBot(nil, ctrl, allowedUsers, log)

	opts = append([]bot.Option{
		bot.WithDefaultHandler(b.handleUpdate),
		bot.WithMiddlewares(b.withRequestID),
		bot.WithErrorsHandler(func(err error) {
			log.Error("Telegram API error",
				"error", err)
		}),
	}, opts...)

	api, err := bot.New(strings.TrimSpace(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.api = api
	b.client = api
	b.rateLimiter = ratelimiter.New(api, log)
	b.sender = b.rateLimiter

	return b, nil
}

func newBot(
	c client,
	ctrl *controller.Controller,
	allowedUsers []int64,
	log *slog.Logger,
) *Bot {
	return &Bot{
		client:           c,
		sender:           c,
		controller:       ctrl,
		allowedUsers:     allowedUsers,
		actionKeyboard:   getActionKeyboard(),
		languageKeyboard: getLanguageKeyboard(),
		log:              log,
	}
}

// Start polls Telegram for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.InfoContext(ctx, "Bot is started")

	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

type requestIDKey struct{}

func (b *Bot) withRequestID(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, api *bot.Bot, update *models.Update) {
		requestID := uuid.NewString()

		b.log.DebugContext(ctx, "Update is received",
			"requestID", requestID,
			"updateID", update.ID)

		next(context.WithValue(ctx, requestIDKey{}, requestID), api, update)
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := update.Message
		chatID := message.Chat.ID

		var userID int64
		var username string
		if message.From != nil {
			userID = message.From.ID
			username = message.From.Username
		}

		if !b.userAllowed(userID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"requestID", requestID(ctx),
				"userID", userID,
				"chatID", chatID,
				"username", username,
				"chatType", message.Chat.Type)

			return
		}

		if err := b.handleMessage(updateCtx, message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"requestID", requestID(ctx),
				"chatID", chatID,
				"userID", userID,
				"chatType", message.Chat.Type,
				"messageID", message.ID)
		}

	case update.CallbackQuery != nil:
		callback := update.CallbackQuery
		chatID := callbackChatID(callback)

		if !b.userAllowed(callback.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"requestID", requestID(ctx),
				"userID", callback.From.ID,
				"chatID", chatID,
				"username", callback.From.Username,
				"data", callback.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, callback); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"requestID", requestID(ctx),
				"chatID", chatID,
				"userID", callback.From.ID,
				"data", callback.Data)
		}
	}
}

// userAllowed reports whether userID may use the bot. An empty list allows
// everyone.
func (b *Bot) userAllowed(userID int64) bool {
	if len(b.allowedUsers) == 0 {
		return true
	}

	return slices.Contains(b.allowedUsers, userID)
}

func callbackChatID(cb *models.CallbackQuery) int64 {
	switch {
	case cb == nil:
		return 0
	case cb.Message.Message != nil:
		return cb.Message.Message.Chat.ID
	case cb.Message.InaccessibleMessage != nil:
		return cb.Message.InaccessibleMessage.Chat.ID
	default:
		return 0
	}
}
