package bot

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"telelingo/internal/adapter"
	"telelingo/internal/controller"
	"telelingo/internal/domain"
	"telelingo/internal/markdown"
)

const telegramMessageMaxLength = 4096

const continueSuffix = " \\(continue\\)"

const (
	maxTitleRunes     = 100
	maxHeaderURLBytes = 1024
)

// userError is the reply for err and whether err is worth logging as a
// failure.
func userError(err error) (string, bool) {
	switch {
	case errors.Is(err, controller.ErrBusy):
		return "⏳ Still working on your previous request\\.", false
	case errors.Is(err, controller.ErrEmptyInput):
		return "✖️ Send me some text first\\.", false
	case errors.Is(err, controller.ErrInputTooLong):
		return "✖️ " + markdown.EscapeV2(capitalize(err.Error())) + "\\.", false
	case errors.Is(err, controller.ErrTooShortToSummarize):
		return "✖️ " + markdown.EscapeV2(capitalize(err.Error())) + "\\.", false
	case errors.Is(err, controller.ErrUnsupportedLanguage):
		return "✖️ This language is not supported\\. Choose one below:", false
	case errors.Is(err, controller.ErrUndetectedLanguage):
		return "❌ Could not detect input language\\.", true
	case errors.Is(err, adapter.ErrCapabilityUnavailable):
		return "❌ This feature is not available right now\\.", true
	case errors.Is(err, controller.ErrDetectionFailed):
		return "❌ Language detection failed\\. Please try again\\.", true
	case errors.Is(err, controller.ErrTranslationFailed):
		return "❌ Translation failed\\. Please check your connection and try again\\.", true
	case errors.Is(err, controller.ErrSourceFailed):
		return "❌ Could not read the link\\.", true
	case errors.Is(err, controller.ErrSummarizationFailed):
		return "❌ Summarization failed\\. Please try again\\.", true
	default:
		return "❌ Failed\\.", true
	}
}

func formatTextSaved(length int, target string) string {
	return fmt.Sprintf(
		"📝 Text is saved \\(%d/%d characters\\)\\.\n\nTarget language is *%s*\\. Choose an action:",
		length,
		controller.MaxInputLength,
		markdown.EscapeV2(domain.LanguageName(target)),
	)
}

func formatDetection(results []domain.DetectionResult) string {
	var message strings.Builder

	message.WriteString("🔎 *Detected languages:*\n\n")

	if len(results) == 0 {
		message.WriteString("No language is recognized\\.")
		return message.String()
	}

	for _, result := range results {
		line := fmt.Sprintf("– %s (%s): %.1f%%\n",
			domain.LanguageName(result.Language),
			result.Language,
			result.Confidence*100)

		message.WriteString(markdown.EscapeV2(line))
	}

	return message.String()
}

func formatTranslation(translation controller.Translation) []string {
	header := fmt.Sprintf("🌐 *%s → %s*",
		markdown.EscapeV2(domain.LanguageName(translation.SourceLanguage)),
		markdown.EscapeV2(domain.LanguageName(translation.TargetLanguage)))

	return splitMessage(header, translation.Text)
}

func formatSummary(summary controller.Summary) []string {
	header := "📝 *Summary*"

	if len(summary.SourceURL) > maxHeaderURLBytes {
		summary.SourceURL = ""
	}

	switch {
	case summary.SourceURL != "" && summary.Title != "":
		header = fmt.Sprintf("📝 *Summary of [%s](%s)*",
			markdown.EscapeV2(truncateRunes(summary.Title, maxTitleRunes)),
			escapeLinkURL(summary.SourceURL))
	case summary.SourceURL != "":
		header = fmt.Sprintf("📝 *[Summary](%s)*", escapeLinkURL(summary.SourceURL))
	}

	return splitMessage(header, summary.Text)
}

// splitMessage escapes body and splits it into messages that fit Telegram's
// limit. Every message starts with header; the following ones are marked
// as a continuation.
func splitMessage(header, body string) []string {
	var messages []string
	var current strings.Builder

	first := header + "\n\n"
	next := header + continueSuffix + "\n\n"

	current.WriteString(first)
	headerLength := current.Len()

	for _, line := range strings.SplitAfter(strings.TrimSpace(body), "\n") {
		for _, piece := range splitLine(line, telegramMessageMaxLength-len(next)) {
			if current.Len()+len(piece) > telegramMessageMaxLength {
				messages = append(messages, current.String())
				current.Reset()
				current.WriteString(next)
				headerLength = current.Len()
			}

			current.WriteString(piece)
		}
	}

	if current.Len() > headerLength || len(messages) == 0 {
		messages = append(messages, current.String())
	}

	return messages
}

// splitLine escapes line and cuts it into pieces of at most limit bytes
// without splitting an escape sequence or a rune.
func splitLine(line string, limit int) []string {
	escaped := markdown.EscapeV2(line)
	if len(escaped) <= limit {
		return []string{escaped}
	}

	var pieces []string
	var piece strings.Builder

	for _, r := range line {
		escapedRune := markdown.EscapeV2(string(r))

		if piece.Len()+len(escapedRune) > limit {
			pieces = append(pieces, piece.String())
			piece.Reset()
		}

		piece.WriteString(escapedRune)
	}

	if piece.Len() > 0 {
		pieces = append(pieces, piece.String())
	}

	return pieces
}

// escapeLinkURL escapes the characters MarkdownV2 reserves inside (...).
func escapeLinkURL(url string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(url)
}

func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	return string([]rune(s)[:maxRunes-1]) + "…"
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return strings.ToUpper(string(r)) + s[size:]
}
