// Package capabilitytest provides in-memory capability fakes with call
// counters for deterministic tests.
package capabilitytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telelingo/internal/capability"
)

type Detector struct {
	Languages       []string
	Results         []capability.Detection
	CapabilitiesErr error
	CreateErr       error
	DetectErr       error

	mu                sync.Mutex
	capabilitiesCalls int
	createCalls       int
	detectCalls       int
}

func (d *Detector) Capabilities(context.Context) (capability.LanguageDetectorCapabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.capabilitiesCalls++

	if d.CapabilitiesErr != nil {
		return nil, d.CapabilitiesErr
	}

	return capability.NewLanguageSet(d.Languages...), nil
}

func (d *Detector) Create(context.Context) (capability.LanguageDetector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createCalls++

	if d.CreateErr != nil {
		return nil, d.CreateErr
	}

	return detectorSession{parent: d}, nil
}

// Calls returns the total number of calls made against the detector.
func (d *Detector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.capabilitiesCalls + d.createCalls + d.detectCalls
}

func (d *Detector) CreateCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.createCalls
}

func (d *Detector) DetectCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.detectCalls
}

type detectorSession struct {
	parent *Detector
}

func (s detectorSession) Detect(ctx context.Context, _ string) ([]capability.Detection, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.detectCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.parent.DetectErr != nil {
		return nil, s.parent.DetectErr
	}

	return append([]capability.Detection(nil), s.parent.Results...), nil
}

type Translator struct {
	CreateErr    error
	TranslateErr error
	// NilSession makes Create succeed without returning a session.
	NilSession bool
	// SwapPair makes Create return a session for the reversed pair.
	SwapPair bool
	// Delay is applied inside Create.
	Delay time.Duration

	mu             sync.Mutex
	created        []capability.TranslatorOptions
	translateCalls int
}

func (t *Translator) Create(
	ctx context.Context,
	opts capability.TranslatorOptions,
) (capability.Translator, error) {
	if t.Delay > 0 {
		select {
		case <-time.After(t.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.created = append(t.created, opts)

	if t.CreateErr != nil {
		return nil, t.CreateErr
	}
	if t.NilSession {
		return nil, nil
	}

	session := &translatorSession{
		parent: t,
		source: opts.SourceLanguage,
		target: opts.TargetLanguage,
	}
	if t.SwapPair {
		session.source, session.target = session.target, session.source
	}

	return session, nil
}

// CreatedSessions returns the options of every Create call, in order.
func (t *Translator) CreatedSessions() []capability.TranslatorOptions {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]capability.TranslatorOptions(nil), t.created...)
}

func (t *Translator) TranslateCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.translateCalls
}

type translatorSession struct {
	parent *Translator
	source string
	target string
}

func (s *translatorSession) SourceLanguage() string { return s.source }
func (s *translatorSession) TargetLanguage() string { return s.target }

// Translate echoes text tagged with the session pair, e.g. "[en->es] Hello".
func (s *translatorSession) Translate(ctx context.Context, text string) (string, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.translateCalls++

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.parent.TranslateErr != nil {
		return "", s.parent.TranslateErr
	}

	return fmt.Sprintf("[%s->%s] %s", s.source, s.target, text), nil
}

type Summarizer struct {
	Available       capability.Availability
	Summary         string
	CapabilitiesErr error
	CreateErr       error
	SummarizeErr    error

	mu                sync.Mutex
	capabilitiesCalls int
	createCalls       int
	summarizeCalls    int
	lastInput         string
}

func (s *Summarizer) Capabilities(context.Context) (capability.SummarizerCapabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capabilitiesCalls++

	if s.CapabilitiesErr != nil {
		return capability.SummarizerCapabilities{}, s.CapabilitiesErr
	}

	available := s.Available
	if available == "" {
		available = capability.AvailabilityReadily
	}

	return capability.SummarizerCapabilities{Available: available}, nil
}

func (s *Summarizer) Create(context.Context) (capability.Summarizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++

	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	return summarizerSession{parent: s}, nil
}

func (s *Summarizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.capabilitiesCalls + s.createCalls + s.summarizeCalls
}

func (s *Summarizer) CreateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createCalls
}

func (s *Summarizer) LastInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastInput
}

type summarizerSession struct {
	parent *Summarizer
}

func (s summarizerSession) Summarize(ctx context.Context, text string) (string, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.summarizeCalls++
	s.parent.lastInput = text

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.parent.SummarizeErr != nil {
		return "", s.parent.SummarizeErr
	}

	return s.parent.Summary, nil
}
