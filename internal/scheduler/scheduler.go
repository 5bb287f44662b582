package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"telelingo/internal/capability"
)

const (
	ProbeSpec      = "@every 1m"
	JanitorSpec    = "@every 5m"
	Timezone       = "UTC"
	TimezoneOffset = 0

	probeTimeout = 30 * time.Second
)

type CapabilityProber interface {
	Snapshot(ctx context.Context) map[capability.Name]bool
}

// CapabilityReporter receives the result of every probe.
type CapabilityReporter interface {
	SetCapability(name string, available bool)
}

type SessionJanitor interface {
	EvictIdleSessions(ctx context.Context) int
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	prober    CapabilityProber
	reporters []CapabilityReporter
	janitor   SessionJanitor
	log       *slog.Logger
}

func New(
	ctx context.Context,
	prober CapabilityProber,
	janitor SessionJanitor,
	log *slog.Logger,
	reporters ...CapabilityReporter,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffset)))

	return &Scheduler{
		ctx:       ctx,
		cron:      c,
		prober:    prober,
		reporters: reporters,
		janitor:   janitor,
		log:       log,
	}
}

// Start probes capabilities right away and then on schedule.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(ProbeSpec, s.probeCapabilities); err != nil {
		return err
	}

	if s.janitor != nil {
		if _, err := s.cron.AddFunc(JanitorSpec, s.evictIdleSessions); err != nil {
			return err
		}
	}

	s.probeCapabilities()

	s.cron.Start()

	return nil
}

// Stop stops the schedule and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) probeCapabilities() {
	ctx, cancel := context.WithTimeout(s.ctx, probeTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	snapshot := s.prober.Snapshot(ctx)

	var unavailable []string
	for _, name := range capability.Names {
		available := snapshot[name]
		if !available {
			unavailable = append(unavailable, string(name))
		}

		for _, reporter := range s.reporters {
			reporter.SetCapability(string(name), available)
		}
	}

	if len(unavailable) > 0 {
		s.log.WarnContext(ctx, "Capabilities are not available",
			"capabilities", unavailable)
	}
}

func (s *Scheduler) evictIdleSessions() {
	if err := s.ctx.Err(); err != nil {
		s.log.InfoContext(s.ctx, "Scheduler context is done",
			"error", err)
		return
	}

	if evicted := s.janitor.EvictIdleSessions(s.ctx); evicted > 0 {
		s.log.InfoContext(s.ctx, "Idle translation sessions are evicted",
			"evicted", evicted)
	}
}
