package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"telelingo/internal/capability"
	"telelingo/internal/domain"
	"telelingo/internal/metrics"
)

const OperationDetect = "detect"

type Detection struct {
	gateway *capability.Gateway
	log     *slog.Logger
}

func NewDetection(gateway *capability.Gateway, log *slog.Logger) *Detection {
	return &Detection{
		gateway: gateway,
		log:     log,
	}
}

// Detect returns language guesses for text, best first, without "unknown"
// entries. Failures are logged and reported as an absent Result.
func (d *Detection) Detect(ctx context.Context, text string) Result[[]domain.DetectionResult] {
	if strings.TrimSpace(text) == "" {
		return absent[[]domain.DetectionResult](StatusSkipped, ErrEmptyInput)
	}

	start := time.Now()
	res := d.detect(ctx, text)
	metrics.ObserveCall(OperationDetect, string(res.Status), len(text), time.Since(start))

	return res
}

func (d *Detection) detect(ctx context.Context, text string) Result[[]domain.DetectionResult] {
	factory, ok := d.gateway.LanguageDetector()
	if !ok {
		d.log.ErrorContext(ctx, "Language detector is not available")

		return absent[[]domain.DetectionResult](StatusUnavailable, ErrCapabilityUnavailable)
	}

	if !d.gateway.LanguageAvailable(ctx, capability.BaselineLanguage) {
		d.log.ErrorContext(ctx, "Baseline language detection is not supported",
			"language", capability.BaselineLanguage)

		return absent[[]domain.DetectionResult](StatusUnavailable, fmt.Errorf(
			"%w: baseline language %q", ErrCapabilityUnavailable, capability.BaselineLanguage))
	}

	detector, err := factory.Create(ctx)
	if err == nil && detector == nil {
		err = errors.New("no detector is returned")
	}
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to create language detector",
			"error", err)

		return absent[[]domain.DetectionResult](StatusFailed, fmt.Errorf("create detector: %w", err))
	}

	raw, err := detector.Detect(ctx, text)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to detect language",
			"error", err,
			"textLength", len(text))

		return absent[[]domain.DetectionResult](StatusFailed, fmt.Errorf("detect: %w", err))
	}

	return succeeded(normalizeDetections(raw))
}

func normalizeDetections(raw []capability.Detection) []domain.DetectionResult {
	results := make([]domain.DetectionResult, 0, len(raw))

	for _, detection := range raw {
		if detection.Language == domain.UnknownLanguage {
			continue
		}

		results = append(results, domain.DetectionResult{
			Language:   detection.Language,
			Confidence: detection.Confidence,
		})
	}

	return results
}
