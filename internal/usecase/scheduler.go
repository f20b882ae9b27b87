package usecase

import (
	"context"
	"log/slog"
	"time"

	"TodoScanner/internal/config"
	"TodoScanner/internal/ports"
)

// Scheduler drives the polling loop. Each cycle processes email, conditionally
// processes transcripts per the active tier's cadence divisor, then sleeps for
// the tier's interval. Per-cycle failures are logged and absorbed; only
// context cancellation stops the loop.
type Scheduler struct {
	pipeline    *Pipeline
	email       ports.DocumentSource
	transcripts ports.DocumentSource // nil when the transcript provider is not configured
	tiers       []config.TierConfig
	location    *time.Location
	logger      *slog.Logger
	now         func() time.Time
}

// NewScheduler wires sources and tier configuration. transcripts may be nil.
func NewScheduler(pipeline *Pipeline, email, transcripts ports.DocumentSource,
	tiers []config.TierConfig, location *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		pipeline:    pipeline,
		email:       email,
		transcripts: transcripts,
		tiers:       tiers,
		location:    location,
		logger:      logger,
		now:         time.Now,
	}
}

// Run loops until the context is cancelled. A cancellation observed between
// suspension points exits cleanly; an in-flight cycle is abandoned without a
// watermark advance because the pipeline's external calls take the context.
func (s *Scheduler) Run(ctx context.Context) error {
	lastTier := ""
	sinceTranscripts := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		tier := s.tierFor(s.now().In(s.location))

		if err := s.pipeline.ProcessSource(ctx, s.email); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("email cycle failed", "error", err)
		}

		sinceTranscripts++
		if s.transcripts != nil && sinceTranscripts >= tier.TranscriptEvery {
			sinceTranscripts = 0
			if err := s.pipeline.ProcessSource(ctx, s.transcripts); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("transcript cycle failed", "error", err)
			}
		}

		if tier.Name != lastTier {
			s.logger.Info("interval tier active", "tier", tier.Name, "interval", tier.Interval())
			lastTier = tier.Name
		}

		timer := time.NewTimer(tier.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// tierFor selects the first tier whose hour band contains t's wall-clock
// hour. StartHour > EndHour means the band wraps midnight. The last tier acts
// as catch-all when nothing matches.
func (s *Scheduler) tierFor(t time.Time) config.TierConfig {
	hour := t.Hour()

	for _, tier := range s.tiers {
		if tierContains(tier, hour) {
			return tier
		}
	}
	return s.tiers[len(s.tiers)-1]
}

func tierContains(tier config.TierConfig, hour int) bool {
	if tier.StartHour <= tier.EndHour {
		return hour >= tier.StartHour && hour < tier.EndHour
	}
	// Wrapping band, e.g. 21-5.
	return hour >= tier.StartHour || hour < tier.EndHour
}
