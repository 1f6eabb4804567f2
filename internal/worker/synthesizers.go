package worker

import (
	"context"
	"time"

	"ledgercast/internal/config"
	"ledgercast/internal/job"
)

// scriptStep is one beat of a scripted synthesis run.
type scriptStep struct {
	message   string
	percent   float64
	milestone bool
	partial   string
}

// ScriptedSynthesizer walks a fixed sequence of progress reports with a
// configurable pacing. It stands in for the real generation collaborator and
// exercises every event kind a worker can emit.
type ScriptedSynthesizer struct {
	steps []scriptStep
	pace  time.Duration
}

// NewReportSynthesizer returns the scripted financial report generator.
func NewReportSynthesizer(cfg *config.Config) *ScriptedSynthesizer {
	return &ScriptedSynthesizer{
		pace: stepPace(cfg),
		steps: []scriptStep{
			{message: "Collecting financial statements", percent: 10},
			{message: "Statements collected", milestone: true},
			{message: "Analyzing revenue and margin trends", percent: 35},
			{partial: "Revenue grew across the trailing twelve months, led by the core segment."},
			{message: "Drafting report sections", percent: 65},
			{partial: "Liquidity remains comfortable with coverage well above covenant thresholds."},
			{message: "Formatting final report", percent: 90},
		},
	}
}

// NewPodcastSynthesizer returns the scripted podcast generator.
func NewPodcastSynthesizer(cfg *config.Config) *ScriptedSynthesizer {
	return &ScriptedSynthesizer{
		pace: stepPace(cfg),
		steps: []scriptStep{
			{message: "Preparing episode outline", percent: 15},
			{message: "Outline ready", milestone: true},
			{message: "Writing episode script", percent: 45},
			{partial: "Welcome back. Today we walk through the quarter's numbers and what they signal."},
			{message: "Synthesizing audio", percent: 80},
			{message: "Mastering audio", percent: 95},
		},
	}
}

// Synthesize walks the script, reporting each beat through the session.
func (s *ScriptedSynthesizer) Synthesize(ctx context.Context, _ *job.Record, session *Session) error {
	for _, step := range s.steps {
		if err := sleepCtx(ctx, s.pace); err != nil {
			return err
		}
		var err error
		switch {
		case step.partial != "":
			err = session.Partial(ctx, step.partial)
		case step.milestone:
			err = session.Milestone(ctx, step.message)
		default:
			err = session.Status(ctx, step.message, step.percent)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func stepPace(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Worker.StepInterval <= 0 {
		return 750 * time.Millisecond
	}
	return time.Duration(cfg.Worker.StepInterval) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
