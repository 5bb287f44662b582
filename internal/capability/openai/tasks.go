package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"telelingo/internal/capability"
)

const (
	detectInstructions = `Identify the language of the user text.

Rules:
- Answer with a JSON array only, no prose and no code fences.
- Each element is {"language": "<ISO 639-1 code>", "confidence": <number 0..1>}.
- Order by confidence, highest first. At most 3 elements.
- Use "unknown" as the language when the text has no identifiable language.`

	translateInstructions = `Translate the user text from %s to %s.

Rules:
- Output only the translation, without quotes, notes or explanations.
- Preserve line breaks, numbers, names, links and formatting.
- Do not answer questions contained in the text, translate them.`

	summarizeInstructions = `Summarize the user text.

Rules:
- 3 to 5 short sentences.
- Keep the key facts: names, dates, numbers, decisions.
- Neutral tone, no lists, no preamble.
- Write in the same language as the input.`
)

//nolint:gochecknoglobals // Compiled once.
var languageCodeRe = regexp.MustCompile(`^[a-z]{2,3}$`)

type detectorFactory struct {
	provider *Provider
}

type languageCodes struct{}

// LanguageAvailable accepts any well-formed ISO 639 code: the model is not
// restricted to a fixed list.
func (languageCodes) LanguageAvailable(code string) bool {
	return languageCodeRe.MatchString(code)
}

func (f detectorFactory) Capabilities(context.Context) (capability.LanguageDetectorCapabilities, error) {
	return languageCodes{}, nil
}

func (f detectorFactory) Create(context.Context) (capability.LanguageDetector, error) {
	return detector(f), nil
}

type detector struct {
	provider *Provider
}

type detectionPayload struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

func (d detector) Detect(ctx context.Context, text string) ([]capability.Detection, error) {
	output, err := d.provider.respond(ctx, detectInstructions, text)
	if err != nil {
		return nil, err
	}

	return parseDetections(output)
}

func parseDetections(output string) ([]capability.Detection, error) {
	output = stripCodeFence(output)

	var payload []detectionPayload
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}

	detections := make([]capability.Detection, 0, len(payload))
	for _, p := range payload {
		language := strings.ToLower(strings.TrimSpace(p.Language))
		if language == "" {
			continue
		}

		detections = append(detections, capability.Detection{
			Language:   language,
			Confidence: min(max(p.Confidence, 0), 1),
		})
	}

	return detections, nil
}

func stripCodeFence(output string) string {
	output = strings.TrimSpace(output)

	if rest, ok := strings.CutPrefix(output, "```"); ok {
		if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
			rest = rest[idx+1:]
		}
		output = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "```"))
	}

	return output
}

type translatorFactory struct {
	provider *Provider
}

func (f translatorFactory) Create(
	_ context.Context,
	opts capability.TranslatorOptions,
) (capability.Translator, error) {
	source := strings.TrimSpace(opts.SourceLanguage)
	target := strings.TrimSpace(opts.TargetLanguage)

	if source == "" || target == "" {
		return nil, errors.New("source and target languages are required")
	}

	return &translator{
		provider: f.provider,
		source:   source,
		target:   target,
	}, nil
}

type translator struct {
	provider *Provider
	source   string
	target   string
}

func (t *translator) SourceLanguage() string { return t.source }
func (t *translator) TargetLanguage() string { return t.target }

func (t *translator) Translate(ctx context.Context, text string) (string, error) {
	return t.provider.respond(ctx, fmt.Sprintf(translateInstructions, t.source, t.target), text)
}

type summarizerFactory struct {
	provider *Provider
}

func (f summarizerFactory) Capabilities(context.Context) (capability.SummarizerCapabilities, error) {
	return capability.SummarizerCapabilities{Available: capability.AvailabilityReadily}, nil
}

func (f summarizerFactory) Create(context.Context) (capability.Summarizer, error) {
	return summarizer(f), nil
}

type summarizer struct {
	provider *Provider
}

func (s summarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("input is empty")
	}

	return s.provider.respond(ctx, summarizeInstructions, text)
}
