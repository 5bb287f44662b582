package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"telelingo/internal/adapter"
	"telelingo/internal/capability"
	"telelingo/internal/capability/capabilitytest"
	"telelingo/internal/controller"
	"telelingo/internal/domain"
)

const (
	testChatID = int64(42)
	testUserID = int64(7)
)

type fakeClient struct {
	mu       sync.Mutex
	messages []*bot.SendMessageParams
	answers  []*bot.AnswerCallbackQueryParams
}

func (c *fakeClient) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, params)

	return &models.Message{ID: len(c.messages), Text: params.Text}, nil
}

func (c *fakeClient) SendChatAction(context.Context, *bot.SendChatActionParams) (bool, error) {
	return true, nil
}

func (c *fakeClient) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.answers = append(c.answers, params)

	return true, nil
}

func (c *fakeClient) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	texts := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		texts = append(texts, m.Text)
	}

	return texts
}

func (c *fakeClient) lastMessage(t *testing.T) *bot.SendMessageParams {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.messages) == 0 {
		t.Fatalf("expected a message to be sent")
	}

	return c.messages[len(c.messages)-1]
}

func newTestBot(allowedUsers ...int64) (*Bot, *fakeClient) {
	gw := capability.NewGateway(capability.Registry{
		DetectorFactory: &capabilitytest.Detector{
			Languages: []string{"en", "fr"},
			Results:   []capability.Detection{{Language: "fr", Confidence: 0.98}},
		},
		TranslatorFactory: &capabilitytest.Translator{},
		SummarizerFactory: &capabilitytest.Summarizer{Summary: "Short."},
	}, slog.Default())

	ctrl := controller.New(
		adapter.NewDetection(gw, slog.Default()),
		adapter.NewTranslation(gw, slog.Default()),
		adapter.NewSummarization(gw, slog.Default()),
		slog.Default(),
	)

	c := &fakeClient{}

	return newBot(c, ctrl, allowedUsers, slog.Default()), c
}

func textUpdate(text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Chat: models.Chat{ID: testChatID},
			From: &models.User{ID: testUserID, Username: "user"},
			Text: text,
		},
	}
}

func callbackUpdate(data string) *models.Update {
	return &models.Update{
		ID: 2,
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback",
			From: models.User{ID: testUserID},
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 11, Chat: models.Chat{ID: testChatID}},
			},
			Data: data,
		},
	}
}

func TestTextIsSaved(t *testing.T) {
	b, c := newTestBot()

	b.handleUpdate(context.Background(), nil, textUpdate("Bonjour le monde"))

	if got := b.controller.State(testChatID).Text; got != "Bonjour le monde" {
		t.Fatalf("expected text to be saved, got %q", got)
	}

	msg := c.lastMessage(t)
	if !strings.Contains(msg.Text, "16/5000 characters") {
		t.Fatalf("expected character count, got %q", msg.Text)
	}
	if msg.ReplyMarkup != b.actionKeyboard {
		t.Fatalf("expected action keyboard")
	}
	if msg.ParseMode != models.ParseModeMarkdown {
		t.Fatalf("expected MarkdownV2, got %q", msg.ParseMode)
	}
}

func TestTooLongTextIsRejected(t *testing.T) {
	b, c := newTestBot()

	b.handleUpdate(context.Background(), nil, textUpdate(strings.Repeat("a", controller.MaxInputLength+1)))

	msg := c.lastMessage(t)
	if !strings.Contains(msg.Text, "Input is too long: 5001/5000 characters") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
	if b.controller.State(testChatID).Text != "" {
		t.Fatalf("expected text not to be saved")
	}
}

func TestNotAllowedUserIsIgnored(t *testing.T) {
	b, c := newTestBot(1)

	b.handleUpdate(context.Background(), nil, textUpdate("Hello"))

	if texts := c.texts(); len(texts) != 0 {
		t.Fatalf("expected no replies, got %v", texts)
	}
}

func TestDetectCommand(t *testing.T) {
	b, c := newTestBot()
	ctx := context.Background()

	b.handleUpdate(ctx, nil, textUpdate("/detect"))
	if msg := c.lastMessage(t); !strings.Contains(msg.Text, "Send me some text first") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}

	b.handleUpdate(ctx, nil, textUpdate("Bonjour le monde"))
	b.handleUpdate(ctx, nil, textUpdate("/detect@telelingo_bot"))

	msg := c.lastMessage(t)
	if !strings.Contains(msg.Text, `– French \(fr\): 98\.0%`) {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestTranslateCallback(t *testing.T) {
	b, c := newTestBot()
	ctx := context.Background()

	b.handleUpdate(ctx, nil, textUpdate("Bonjour le monde"))
	b.handleUpdate(ctx, nil, callbackUpdate(translateCallback))

	msg := c.lastMessage(t)
	want := "🌐 *French → Spanish*\n\n\\[fr\\-\\>es\\] Bonjour le monde"
	if msg.Text != want {
		t.Fatalf("unexpected reply:\n%q\nwant\n%q", msg.Text, want)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.answers) != 1 || c.answers[0].CallbackQueryID != "callback" {
		t.Fatalf("expected callback to be answered, got %v", c.answers)
	}
}

func TestLanguageCallback(t *testing.T) {
	b, c := newTestBot()

	b.handleUpdate(context.Background(), nil, callbackUpdate(languageKeyboardCallbackPrefix+"pt"))

	if got := b.controller.State(testChatID).TargetLanguage; got != "pt" {
		t.Fatalf("expected pt, got %q", got)
	}

	if msg := c.lastMessage(t); !strings.Contains(msg.Text, "*Portuguese*") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.answers) != 1 || c.answers[0].Text != "✅ Portuguese" {
		t.Fatalf("unexpected answers: %v", c.answers)
	}
}

func TestUnsupportedLanguageCallback(t *testing.T) {
	b, c := newTestBot()

	b.handleUpdate(context.Background(), nil, callbackUpdate(languageKeyboardCallbackPrefix+"xx"))

	if got := b.controller.State(testChatID).TargetLanguage; got != controller.DefaultTargetLanguage {
		t.Fatalf("expected default target, got %q", got)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.answers) != 1 || c.answers[0].Text != "❌ Failed." {
		t.Fatalf("unexpected answers: %v", c.answers)
	}
}

func TestLanguageCommand(t *testing.T) {
	b, c := newTestBot()
	ctx := context.Background()

	b.handleUpdate(ctx, nil, textUpdate("/lang"))
	if msg := c.lastMessage(t); msg.ReplyMarkup != b.languageKeyboard {
		t.Fatalf("expected language keyboard")
	}

	b.handleUpdate(ctx, nil, textUpdate("/lang TR"))
	if got := b.controller.State(testChatID).TargetLanguage; got != "tr" {
		t.Fatalf("expected tr, got %q", got)
	}

	b.handleUpdate(ctx, nil, textUpdate("/lang de"))
	if msg := c.lastMessage(t); !strings.Contains(msg.Text, "not supported") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestSummarizeTooShort(t *testing.T) {
	b, c := newTestBot()
	ctx := context.Background()

	b.handleUpdate(ctx, nil, textUpdate("Just a few words here"))
	b.handleUpdate(ctx, nil, textUpdate("/summarize"))

	msg := c.lastMessage(t)
	if !strings.Contains(msg.Text, "Input is too short to summarize: 5/150 words") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		text string
		name string
		want bool
	}{
		{"/lang", "/lang", true},
		{"/lang fr", "/lang", true},
		{"/lang@telelingo_bot fr", "/lang", true},
		{"/language", "/lang", false},
		{"lang", "/lang", false},
	}

	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			if got := command(test.text, test.name); got != test.want {
				t.Errorf("Expected %v, got %v", test.want, got)
			}
		})
	}
}

func TestSplitMessage(t *testing.T) {
	body := strings.Repeat("Line of text.\n", 600)

	messages := splitMessage("*Header*", body)
	if len(messages) < 2 {
		t.Fatalf("expected several messages, got %d", len(messages))
	}

	if !strings.HasPrefix(messages[0], "*Header*\n\n") {
		t.Fatalf("unexpected first message start: %q", messages[0][:20])
	}

	for i, message := range messages {
		if len(message) > telegramMessageMaxLength {
			t.Fatalf("message %d is too long: %d", i, len(message))
		}
		if i > 0 && !strings.HasPrefix(message, "*Header*"+continueSuffix) {
			t.Fatalf("expected continuation header in message %d", i)
		}
	}
}

func TestSplitMessageLongLine(t *testing.T) {
	messages := splitMessage("*H*", strings.Repeat(".", 5000))

	total := 0
	for _, message := range messages {
		if len(message) > telegramMessageMaxLength {
			t.Fatalf("message is too long: %d", len(message))
		}
		if strings.HasSuffix(strings.TrimSuffix(message, `\.`), `\`) {
			t.Fatalf("escape sequence is split")
		}
		total += strings.Count(message, `\.`)
	}

	if total != 5000 {
		t.Fatalf("expected every character to be kept, got %d", total)
	}
}

func TestFormatDetectionWithoutResults(t *testing.T) {
	if got := formatDetection(nil); !strings.Contains(got, "No language is recognized") {
		t.Fatalf("unexpected text: %q", got)
	}

	got := formatDetection([]domain.DetectionResult{{Language: "de", Confidence: 0.5}})
	if !strings.Contains(got, `– de \(de\): 50\.0%`) {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestCallbackChatID(t *testing.T) {
	inaccessible := &models.CallbackQuery{
		Message: models.MaybeInaccessibleMessage{
			InaccessibleMessage: &models.InaccessibleMessage{Chat: models.Chat{ID: 5}},
		},
	}

	if got := callbackChatID(inaccessible); got != 5 {
		t.Fatalf("Expected 5, got %d", got)
	}

	if got := callbackChatID(&models.CallbackQuery{}); got != 0 {
		t.Fatalf("Expected 0, got %d", got)
	}
}

func TestFormatSummaryWithLongTitle(t *testing.T) {
	summary := controller.Summary{
		Text:      strings.Repeat("Summary line.\n", 400),
		SourceURL: "https://example.com/article",
		Title:     strings.Repeat("Very long title. ", 500),
	}

	messages := formatSummary(summary)

	for i, message := range messages {
		if len(message) > telegramMessageMaxLength {
			t.Fatalf("message %d is too long: %d", i, len(message))
		}
	}
	if !strings.Contains(messages[0], "…](https://example.com/article)") {
		t.Fatalf("expected truncated title link, got %q", messages[0][:200])
	}
	if total := strings.Count(strings.Join(messages, ""), `Summary line\.`); total != 400 {
		t.Fatalf("expected every line to be kept, got %d", total)
	}
}

func TestFormatSummaryWithLongURL(t *testing.T) {
	summary := controller.Summary{
		Text:      "Short summary.",
		SourceURL: "https://example.com/" + strings.Repeat("a", 5000),
		Title:     "Title",
	}

	messages := formatSummary(summary)

	if len(messages) != 1 || !strings.HasPrefix(messages[0], "📝 *Summary*\n\n") {
		t.Fatalf("expected plain header, got %q", messages)
	}
}
