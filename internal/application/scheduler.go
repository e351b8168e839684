package application

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/robfig/cron/v3"
)

// Scheduler runs evaluation batches on a cron schedule. A batch that is
// still running when the next trigger fires suppresses that trigger, so
// two batches never overlap; the single-orchestrator assumption behind
// the discovery set difference depends on this.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	run     func(ctx context.Context) error
	running atomic.Bool
}

// NewScheduler creates a scheduler that invokes run per the cron spec
// (standard five-field syntax, or descriptors like "@every 1h").
func NewScheduler(spec string, run func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		spec: spec,
		run:  run,
	}
}

// Start registers the schedule and begins triggering batches. It returns
// an error only for an invalid cron spec.
func (s *Scheduler) Start(ctx context.Context) error {
	log := clog.FromContext(ctx)

	_, err := s.cron.AddFunc(s.spec, func() {
		if !s.running.CompareAndSwap(false, true) {
			log.Warnf("previous evaluation batch still running, skipping trigger")
			return
		}
		defer s.running.Store(false)

		if err := s.run(ctx); err != nil {
			log.Errorf("evaluation batch failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Infof("scheduler started with spec %q", s.spec)
	return nil
}

// Stop halts triggering and waits for an in-flight batch's cron slot to
// drain.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
