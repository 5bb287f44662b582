package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"telelingo/internal/capability"
)

type stubProber struct {
	snapshot map[capability.Name]bool
}

func (p stubProber) Snapshot(context.Context) map[capability.Name]bool {
	return p.snapshot
}

type stubReporter struct {
	mu       sync.Mutex
	statuses map[string]bool
}

func (r *stubReporter) SetCapability(name string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.statuses == nil {
		r.statuses = make(map[string]bool)
	}
	r.statuses[name] = available
}

type stubJanitor struct {
	mu    sync.Mutex
	calls int
}

func (j *stubJanitor) EvictIdleSessions(context.Context) int {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.calls++

	return 2
}

func TestStartProbesImmediately(t *testing.T) {
	prober := stubProber{snapshot: map[capability.Name]bool{
		capability.LanguageDetectorName: true,
		capability.TranslatorName:       true,
	}}
	first, second := &stubReporter{}, &stubReporter{}

	s := New(context.Background(), prober, &stubJanitor{}, slog.Default(), first, second)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()

	want := map[string]bool{
		"languageDetector": true,
		"translator":       true,
		"summarizer":       false,
	}

	for _, reporter := range []*stubReporter{first, second} {
		reporter.mu.Lock()
		got := reporter.statuses
		reporter.mu.Unlock()

		if len(got) != len(want) {
			t.Fatalf("Expected %v, got %v", want, got)
		}
		for name, available := range want {
			if got[name] != available {
				t.Errorf("Expected %s to be %v, got %v", name, available, got[name])
			}
		}
	}
}

func TestProbeSkippedWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reporter := &stubReporter{}
	s := New(ctx, stubProber{}, nil, slog.Default(), reporter)

	s.probeCapabilities()

	if len(reporter.statuses) != 0 {
		t.Fatalf("Expected no reports, got %v", reporter.statuses)
	}
}

func TestEvictIdleSessions(t *testing.T) {
	janitor := &stubJanitor{}
	s := New(context.Background(), stubProber{}, janitor, slog.Default())

	s.evictIdleSessions()

	if janitor.calls != 1 {
		t.Fatalf("Expected 1 call, got %d", janitor.calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s = New(ctx, stubProber{}, janitor, slog.Default())
	s.evictIdleSessions()

	if janitor.calls != 1 {
		t.Fatalf("Expected no call after context is done, got %d", janitor.calls)
	}
}
