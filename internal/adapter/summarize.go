package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"telelingo/internal/capability"
	"telelingo/internal/metrics"
)

const OperationSummarize = "summarize"

type Summarization struct {
	gateway *capability.Gateway
	log     *slog.Logger
}

func NewSummarization(gateway *capability.Gateway, log *slog.Logger) *Summarization {
	return &Summarization{
		gateway: gateway,
		log:     log,
	}
}

// Summarize returns a summary of text. Failures are logged and reported as
// an absent Result.
func (s *Summarization) Summarize(ctx context.Context, text string) Result[string] {
	if strings.TrimSpace(text) == "" {
		return absent[string](StatusSkipped, ErrEmptyInput)
	}

	start := time.Now()
	res := s.summarize(ctx, text)
	metrics.ObserveCall(OperationSummarize, string(res.Status), len(text), time.Since(start))

	return res
}

func (s *Summarization) summarize(ctx context.Context, text string) Result[string] {
	factory, ok := s.gateway.Summarizer()
	if !ok {
		s.log.ErrorContext(ctx, "Summarizer is not available")

		return absent[string](StatusUnavailable, ErrCapabilityUnavailable)
	}

	caps, err := factory.Capabilities(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to query summarizer capabilities",
			"error", err)

		return absent[string](StatusFailed, fmt.Errorf("query capabilities: %w", err))
	}

	// Readiness is advisory: the summarizer is created the same way in every state.
	if caps.Available != capability.AvailabilityReadily {
		s.log.InfoContext(ctx, "Summarizer is not readily available, creating anyway",
			"available", caps.Available)
	}

	summarizer, err := factory.Create(ctx)
	if err == nil && summarizer == nil {
		err = errors.New("no summarizer is returned")
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to create summarizer",
			"error", err,
			"available", caps.Available)

		return absent[string](StatusFailed, fmt.Errorf("create summarizer: %w", err))
	}

	summary, err := summarizer.Summarize(ctx, text)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to summarize",
			"error", err,
			"textLength", len(text))

		return absent[string](StatusFailed, fmt.Errorf("summarize: %w", err))
	}

	return succeeded(summary)
}
