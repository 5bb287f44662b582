// Package controller sequences adapter calls for a chat: it keeps the text
// and language choices per chat, enforces input limits and refuses
// overlapping runs of the same operation.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"telelingo/internal/adapter"
	"telelingo/internal/domain"
	"telelingo/internal/source"
)

const (
	MaxInputLength  = 5000
	MinSummaryWords = 150

	DefaultTargetLanguage = "es"
)

var (
	ErrBusy                = errors.New("operation is already in progress")
	ErrEmptyInput          = errors.New("input is empty")
	ErrInputTooLong        = errors.New("input is too long")
	ErrTooShortToSummarize = errors.New("input is too short to summarize")
	ErrUnsupportedLanguage = errors.New("language is not supported")
	ErrUndetectedLanguage  = errors.New("could not detect input language")
	ErrDetectionFailed     = errors.New("language detection failed")
	ErrSummarizationFailed = errors.New("summarization failed")
	ErrTranslationFailed   = errors.New("translation failed")
	ErrSourceFailed        = errors.New("link could not be read")
)

type Operation string

const (
	OperationDetect    Operation = "detect"
	OperationTranslate Operation = "translate"
	OperationSummarize Operation = "summarize"
)

type Detector interface {
	Detect(ctx context.Context, text string) adapter.Result[[]domain.DetectionResult]
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) adapter.Result[string]
}

type SourceResolver interface {
	Resolve(ctx context.Context, rawURL string) (source.Document, error)
}

// ChatState is a snapshot of what a chat is working on.
type ChatState struct {
	Text             string
	Revision         uint64
	DetectedLanguage string
	TargetLanguage   string
}

type Translation struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
}

type Summary struct {
	Text      string
	SourceURL string
	Title     string
	Words     int
}

type Controller struct {
	detector      Detector
	translator    Translator
	summarizer    Summarizer
	resolver      SourceResolver
	defaultTarget string
	guard         *inflightGuard

	mu    sync.Mutex
	chats map[int64]*ChatState

	log *slog.Logger
}

type Option func(*Controller)

// WithSourceResolver enables summarizing a single link.
func WithSourceResolver(resolver SourceResolver) Option {
	return func(c *Controller) {
		c.resolver = resolver
	}
}

// WithDefaultTargetLanguage sets the target for chats that did not pick one.
// Unsupported codes are ignored.
func WithDefaultTargetLanguage(code string) Option {
	return func(c *Controller) {
		if lang, ok := domain.LookupTargetLanguage(code); ok {
			c.defaultTarget = lang.Code
		}
	}
}

func New(
	detector Detector,
	translator Translator,
	summarizer Summarizer,
	log *slog.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		detector:      detector,
		translator:    translator,
		summarizer:    summarizer,
		defaultTarget: DefaultTargetLanguage,
		guard:         newInflightGuard(),
		chats:         make(map[int64]*ChatState),
		log:           log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetText replaces the chat text and returns its length in characters.
// A new text forgets the previously detected language.
func (c *Controller) SetText(chatID int64, text string) (int, error) {
	length := utf8.RuneCountInString(text)

	if strings.TrimSpace(text) == "" {
		return length, ErrEmptyInput
	}
	if length > MaxInputLength {
		return length, fmt.Errorf("%w: %d/%d characters", ErrInputTooLong, length, MaxInputLength)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.stateLocked(chatID)
	state.Text = text
	state.Revision++
	state.DetectedLanguage = ""

	return length, nil
}

func (c *Controller) SetTargetLanguage(chatID int64, code string) (domain.Language, error) {
	lang, ok := domain.LookupTargetLanguage(code)
	if !ok {
		return domain.Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stateLocked(chatID).TargetLanguage = lang.Code

	return lang, nil
}

func (c *Controller) State(chatID int64) ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return *c.stateLocked(chatID)
}

// Detect detects the language of the chat text and remembers the top guess.
func (c *Controller) Detect(ctx context.Context, chatID int64) ([]domain.DetectionResult, error) {
	release, ok := c.guard.acquire(chatID, OperationDetect)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	state := c.State(chatID)
	if strings.TrimSpace(state.Text) == "" {
		return nil, ErrEmptyInput
	}

	res := c.detector.Detect(ctx, state.Text)
	results, ok := res.Get()
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, res.Err)
	}

	if len(results) > 0 {
		c.rememberDetection(chatID, state.Revision, results[0].Language)
	}

	return results, nil
}

// Translate translates the chat text to the chat target language, detecting
// the source language first when it is not known yet.
func (c *Controller) Translate(ctx context.Context, chatID int64) (Translation, error) {
	release, ok := c.guard.acquire(chatID, OperationTranslate)
	if !ok {
		return Translation{}, ErrBusy
	}
	defer release()

	state := c.State(chatID)
	if strings.TrimSpace(state.Text) == "" {
		return Translation{}, ErrEmptyInput
	}

	sourceLanguage := state.DetectedLanguage
	if sourceLanguage == "" {
		res := c.detector.Detect(ctx, state.Text)

		results, detected := res.Get()
		if !detected || len(results) == 0 {
			c.log.WarnContext(ctx, "Could not detect input language",
				"chatID", chatID,
				"status", res.Status,
				"error", res.Err)

			return Translation{}, ErrUndetectedLanguage
		}

		sourceLanguage = results[0].Language
		c.rememberDetection(chatID, state.Revision, sourceLanguage)
	}

	translated, err := c.translator.Translate(ctx, state.Text, sourceLanguage, state.TargetLanguage)
	if err != nil {
		return Translation{}, fmt.Errorf("%w: %w", ErrTranslationFailed, err)
	}

	return Translation{
		Text:           translated,
		SourceLanguage: sourceLanguage,
		TargetLanguage: state.TargetLanguage,
	}, nil
}

// Summarize summarizes the chat text. A text that is a single link is
// replaced by the text found behind it when a resolver is configured.
func (c *Controller) Summarize(ctx context.Context, chatID int64) (Summary, error) {
	release, ok := c.guard.acquire(chatID, OperationSummarize)
	if !ok {
		return Summary{}, ErrBusy
	}
	defer release()

	state := c.State(chatID)
	if strings.TrimSpace(state.Text) == "" {
		return Summary{}, ErrEmptyInput
	}

	summary := Summary{}
	text := state.Text

	if rawURL, isURL := source.SingleURL(text); isURL && c.resolver != nil {
		doc, err := c.resolver.Resolve(ctx, rawURL)
		if err != nil {
			return Summary{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
		}

		text = doc.Text
		summary.SourceURL = doc.URL
		summary.Title = doc.Title
	}

	summary.Words = CountWords(text)
	if summary.Words < MinSummaryWords {
		return summary, fmt.Errorf("%w: %d/%d words", ErrTooShortToSummarize, summary.Words, MinSummaryWords)
	}

	res := c.summarizer.Summarize(ctx, text)
	summarized, ok := res.Get()
	if !ok {
		return summary, fmt.Errorf("%w: %w", ErrSummarizationFailed, res.Err)
	}

	summary.Text = summarized

	return summary, nil
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// rememberDetection stores language unless the chat text changed meanwhile.
func (c *Controller) rememberDetection(chatID int64, revision uint64, language string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.stateLocked(chatID)
	if state.Revision != revision {
		return
	}

	state.DetectedLanguage = language
}

func (c *Controller) stateLocked(chatID int64) *ChatState {
	state, ok := c.chats[chatID]
	if !ok {
		state = &ChatState{TargetLanguage: c.defaultTarget}
		c.chats[chatID] = state
	}

	return state
}

type inflightKey struct {
	chatID    int64
	operation Operation
}

type inflightGuard struct {
	mu      sync.Mutex
	running map[inflightKey]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{running: make(map[inflightKey]struct{})}
}

// acquire marks the operation as running for the chat. It fails when the
// operation is already running there.
func (g *inflightGuard) acquire(chatID int64, operation Operation) (func(), bool) {
	key := inflightKey{chatID: chatID, operation: operation}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.running[key]; ok {
		return nil, false
	}
	g.running[key] = struct{}{}

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()

		delete(g.running, key)
	}, true
}
