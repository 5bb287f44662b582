// Package capability describes the language services the assistant delegates
// to. Providers expose any subset of them; callers must feature-detect before
// use and treat a missing capability as an ordinary outcome.
package capability

import (
	"context"
)

type Name string

const (
	LanguageDetectorName Name = "languageDetector"
	TranslatorName       Name = "translator"
	SummarizerName       Name = "summarizer"
)

//nolint:gochecknoglobals // Immutable list of known capabilities.
var Names = []Name{LanguageDetectorName, TranslatorName, SummarizerName}

// Availability is the readiness reported by a summarizer.
type Availability string

const (
	AvailabilityReadily       Availability = "readily"
	AvailabilityAfterDownload Availability = "after-download"
	AvailabilityNo            Availability = "no"
)

// Detection is a raw language guess as reported by a detector.
type Detection struct {
	Language   string
	Confidence float64
}

type LanguageDetectorCapabilities interface {
	LanguageAvailable(code string) bool
}

type LanguageDetector interface {
	Detect(ctx context.Context, text string) ([]Detection, error)
}

type LanguageDetectorFactory interface {
	Capabilities(ctx context.Context) (LanguageDetectorCapabilities, error)
	Create(ctx context.Context) (LanguageDetector, error)
}

type TranslatorOptions struct {
	SourceLanguage string
	TargetLanguage string
}

// Translator is a session bound to a fixed language pair.
type Translator interface {
	SourceLanguage() string
	TargetLanguage() string
	Translate(ctx context.Context, text string) (string, error)
}

type TranslatorFactory interface {
	Create(ctx context.Context, opts TranslatorOptions) (Translator, error)
}

type SummarizerCapabilities struct {
	Available Availability
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type SummarizerFactory interface {
	Capabilities(ctx context.Context) (SummarizerCapabilities, error)
	Create(ctx context.Context) (Summarizer, error)
}

// Provider is the registry of capabilities a backend offers.
type Provider interface {
	LanguageDetector() (LanguageDetectorFactory, bool)
	Translator() (TranslatorFactory, bool)
	Summarizer() (SummarizerFactory, bool)
}

// Registry is a Provider assembled from optional factories. The zero value
// exposes nothing.
type Registry struct {
	DetectorFactory   LanguageDetectorFactory
	TranslatorFactory TranslatorFactory
	SummarizerFactory SummarizerFactory
}

func (r Registry) LanguageDetector() (LanguageDetectorFactory, bool) {
	return r.DetectorFactory, r.DetectorFactory != nil
}

func (r Registry) Translator() (TranslatorFactory, bool) {
	return r.TranslatorFactory, r.TranslatorFactory != nil
}

func (r Registry) Summarizer() (SummarizerFactory, bool) {
	return r.SummarizerFactory, r.SummarizerFactory != nil
}

// Unavailable returns a provider without any capability.
func Unavailable() Provider {
	return Registry{}
}

// LanguageSet answers LanguageAvailable from a fixed list of codes.
type LanguageSet map[string]struct{}

func NewLanguageSet(codes ...string) LanguageSet {
	set := make(LanguageSet, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

func (s LanguageSet) LanguageAvailable(code string) bool {
	_, ok := s[code]
	return ok
}
