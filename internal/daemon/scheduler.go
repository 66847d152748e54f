package daemon

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/subdex/subdex/internal/subdexlog"
)

// SweepConfig configures the periodic truncate/checkpoint sweep.
type SweepConfig struct {
	// Interval between truncate_deleted/truncate_modified passes.
	Interval time.Duration
	// CheckpointInterval between full Close+reopen cycles; zero disables
	// periodic checkpointing and relies solely on process-exit Close.
	CheckpointInterval time.Duration
}

// Scheduler drives the daemon's periodic jobs with gocron, the same
// NewScheduler/NewJob(DurationJob, NewTask) shape used for periodic
// retention and compression jobs elsewhere in the corpus.
type Scheduler struct {
	s   gocron.Scheduler
	h   *Handle
	log subdexlog.Logger
}

func NewScheduler(h *Handle, log subdexlog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{s: s, h: h, log: log}, nil
}

// Start registers the sweep/checkpoint jobs and begins running them.
func (sch *Scheduler) Start(ctx context.Context, cfg SweepConfig) error {
	if cfg.Interval > 0 {
		if _, err := sch.s.NewJob(
			gocron.DurationJob(cfg.Interval),
			gocron.NewTask(func() {
				if err := sch.h.TruncateDeleted(ctx); err != nil {
					sch.log.Log(ctx, subdexlog.LevelVerbose, "truncate_deleted: %v", err)
				}
				if err := sch.h.TruncateModified(ctx); err != nil {
					sch.log.Log(ctx, subdexlog.LevelVerbose, "truncate_modified: %v", err)
				}
			}),
		); err != nil {
			return err
		}
	}

	if cfg.CheckpointInterval > 0 {
		if _, err := sch.s.NewJob(
			gocron.DurationJob(cfg.CheckpointInterval),
			gocron.NewTask(func() {
				if err := sch.h.Checkpoint(ctx); err != nil {
					sch.log.Log(ctx, subdexlog.LevelCritical, "checkpoint failed: %v", err)
				}
			}),
		); err != nil {
			return err
		}
	}

	sch.s.Start()
	return nil
}

// Shutdown stops the scheduler, waiting for any in-flight job.
func (sch *Scheduler) Shutdown() error {
	return sch.s.Shutdown()
}
