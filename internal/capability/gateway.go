package capability

import (
	"context"
	"log/slog"
)

// BaselineLanguage must be reported by a detector before it is used.
const BaselineLanguage = "en"

// Gateway feature-detects capabilities of a Provider. None of its methods
// fail: a missing capability or sub-feature is reported as false.
type Gateway struct {
	provider Provider
	log      *slog.Logger
}

func NewGateway(provider Provider, log *slog.Logger) *Gateway {
	if provider == nil {
		provider = Unavailable()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Gateway{
		provider: provider,
		log:      log,
	}
}

func (g *Gateway) LanguageDetector() (LanguageDetectorFactory, bool) {
	return g.provider.LanguageDetector()
}

func (g *Gateway) Translator() (TranslatorFactory, bool) {
	return g.provider.Translator()
}

func (g *Gateway) Summarizer() (SummarizerFactory, bool) {
	return g.provider.Summarizer()
}

// IsAvailable reports whether the named capability exists and, where it
// exposes an availability query, whether that query succeeds positively.
func (g *Gateway) IsAvailable(ctx context.Context, name Name) bool {
	switch name {
	case LanguageDetectorName:
		return g.LanguageAvailable(ctx, BaselineLanguage)
	case TranslatorName:
		_, ok := g.provider.Translator()
		return ok
	case SummarizerName:
		availability, ok := g.SummarizerAvailability(ctx)
		return ok && availability != AvailabilityNo
	default:
		g.log.DebugContext(ctx, "Unknown capability is requested",
			"capability", name)

		return false
	}
}

// LanguageAvailable reports whether the detector exists and supports code.
func (g *Gateway) LanguageAvailable(ctx context.Context, code string) bool {
	factory, ok := g.provider.LanguageDetector()
	if !ok {
		return false
	}

	caps, err := factory.Capabilities(ctx)
	if err != nil {
		g.log.WarnContext(ctx, "Failed to query detector capabilities",
			"error", err,
			"language", code)

		return false
	}
	if caps == nil {
		return false
	}

	return caps.LanguageAvailable(code)
}

// SummarizerAvailability returns the summarizer readiness. The second value
// is false when the summarizer is missing or cannot be queried.
func (g *Gateway) SummarizerAvailability(ctx context.Context) (Availability, bool) {
	factory, ok := g.provider.Summarizer()
	if !ok {
		return AvailabilityNo, false
	}

	caps, err := factory.Capabilities(ctx)
	if err != nil {
		g.log.WarnContext(ctx, "Failed to query summarizer capabilities",
			"error", err)

		return AvailabilityNo, false
	}

	return caps.Available, true
}

// Snapshot evaluates IsAvailable for every known capability.
func (g *Gateway) Snapshot(ctx context.Context) map[Name]bool {
	snapshot := make(map[Name]bool, len(Names))
	for _, name := range Names {
		snapshot[name] = g.IsAvailable(ctx, name)
	}
	return snapshot
}
