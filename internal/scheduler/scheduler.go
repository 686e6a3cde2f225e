// Package scheduler drives the warehouse pipeline on a fixed interval.
// Runs need no overlap coordination: every dimension upsert and fact
// append is guarded by a natural-key constraint, so overlapping runs
// converge instead of duplicating rows.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/revlake/revlake/internal/clock"
	pipelinedomain "github.com/revlake/revlake/internal/pipeline/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

// Config controls the run interval and the per-run timeout.
type Config struct {
	RunInterval time.Duration
	RunTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		RunTimeout:  30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Pipeline pipelinedomain.Service
	Config   Config `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	pipeline pipelinedomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Pipeline == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		pipeline: p.Pipeline,
	}, nil
}

// RunOnce executes a single pipeline run under the configured timeout.
// A panic inside the run is recovered and surfaced as an error so the
// ticker loop keeps going.
func (s *Scheduler) RunOnce(parent context.Context) (err error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline run panicked: %v", r)
		}
	}()

	start := s.clock.Now()
	report, err := s.pipeline.Run(ctx)
	if err != nil {
		s.log.Error("scheduled run failed",
			zap.String("run_id", report.RunID),
			zap.Duration("elapsed", s.clock.Now().Sub(start)),
			zap.Error(err),
		)
		return err
	}

	s.log.Info("scheduled run finished",
		zap.String("run_id", report.RunID),
		zap.Duration("duration", report.Duration),
		zap.Int("facts_appended", report.Subscriptions.Appended),
		zap.Int("usage_inserted", report.Usage.Inserted),
	)
	return nil
}

// RunForever runs the pipeline immediately, then on every tick until
// the context is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
