package ratelimiter

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
	queueSize       = 1000
)

// Sender is the part of the Telegram client the limiter needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

type request struct {
	ctx      context.Context
	params   *bot.SendMessageParams
	response chan response
}

type response struct {
	message *models.Message
	err     error
}

// RateLimiter keeps Telegram's per-chat pace. Messages to one chat are sent
// in order; a chat waiting for its delay does not hold back other chats.
type RateLimiter struct {
	sender   Sender
	queue    chan request
	lastSent map[int64]time.Time
	pending  map[int64][]request
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	log      *slog.Logger
}

func New(sender Sender, log *slog.Logger) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	rl := &RateLimiter{
		sender:   sender,
		queue:    make(chan request, queueSize),
		lastSent: make(map[int64]time.Time),
		pending:  make(map[int64][]request),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}

	go rl.processQueue()

	return rl
}

func (rl *RateLimiter) SendMessage(
	ctx context.Context,
	params *bot.SendMessageParams,
) (*models.Message, error) {
	req := request{
		ctx:      ctx,
		params:   params,
		response: make(chan response, 1),
	}

	select {
	case rl.queue <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-rl.ctx.Done():
		return nil, rl.ctx.Err()
	}

	select {
	case resp := <-req.response:
		return resp.message, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-rl.ctx.Done():
		return nil, rl.ctx.Err()
	}
}

// SendChatAction is not queued: chat actions do not count towards the limits.
func (rl *RateLimiter) SendChatAction(
	ctx context.Context,
	params *bot.SendChatActionParams,
) (bool, error) {
	return rl.sender.SendChatAction(ctx, params)
}

func (rl *RateLimiter) Stop() {
	rl.cancel()
}

func (rl *RateLimiter) processQueue() {
	for {
		select {
		case req := <-rl.queue:
			rl.dispatch(req)
		case <-rl.ctx.Done():
			for {
				select {
				case req := <-rl.queue:
					req.response <- response{
						err: rl.ctx.Err(),
					}
				default:
					return
				}
			}
		}
	}
}

// dispatch appends req to its chat's pending list and starts the chat's
// worker when none is running.
func (rl *RateLimiter) dispatch(req request) {
	chatID := getChatID(req.params.ChatID)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	requests, running := rl.pending[chatID]
	rl.pending[chatID] = append(requests, req)

	if !running {
		go rl.processChat(chatID)
	}
}

// processChat sends the chat's pending requests one by one and exits when
// the list is empty.
func (rl *RateLimiter) processChat(chatID int64) {
	for {
		rl.mu.Lock()
		requests := rl.pending[chatID]
		if len(requests) == 0 {
			delete(rl.pending, chatID)
			rl.mu.Unlock()

			return
		}

		req := requests[0]
		rl.pending[chatID] = requests[1:]
		rl.mu.Unlock()

		rl.handleRequest(req)
	}
}

func (rl *RateLimiter) handleRequest(req request) {
	if err := rl.ctx.Err(); err != nil {
		req.response <- response{err: err}

		return
	}
	if err := req.ctx.Err(); err != nil {
		req.response <- response{err: err}

		return
	}

	chatID := getChatID(req.params.ChatID)

	rl.mu.Lock()
	lastSent, exists := rl.lastSent[chatID]
	rl.mu.Unlock()

	if exists {
		delay := getDelay(chatID, lastSent)

		if delay > 0 {
			rl.log.DebugContext(req.ctx, "Rate limiting message",
				"chatID", chatID,
				"delay", delay,
				"queueLen", len(rl.queue))

			select {
			case <-time.After(delay):
			case <-req.ctx.Done():
				req.response <- response{
					err: req.ctx.Err(),
				}

				return
			case <-rl.ctx.Done():
				req.response <- response{
					err: rl.ctx.Err(),
				}

				return
			}
		}
	}

	message, err := rl.sender.SendMessage(req.ctx, req.params)

	rl.mu.Lock()
	rl.lastSent[chatID] = time.Now()
	rl.mu.Unlock()

	req.response <- response{
		message: message,
		err:     err,
	}
}

func getChatID(chatID any) int64 {
	switch id := chatID.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case string:
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func getDelay(
	chatID int64,
	lastSent time.Time,
) time.Duration {
	elapsed := time.Since(lastSent)
	rate := getRate(chatID)

	return max(rate-elapsed, 0)
}

func getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatRate
	}
	return privateChatRate
}
