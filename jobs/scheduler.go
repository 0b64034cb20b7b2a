// Package jobs owns the background scheduler and the tasks running on it.
package jobs

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Scheduler wraps a gocron scheduler. Built in main and handed to jobs
// that want to register themselves.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	stopOnce  sync.Once
	stopErr   error
}

func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("scheduler job panicked",
						slog.String("job_id", jobID.String()),
						slog.String("job_name", jobName),
						slog.Any("panic", recoverData))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduler: %w", err)
	}
	return &Scheduler{scheduler: sched, logger: logger}, nil
}

// AddCronJob registers a cron task. Singleton mode: a run that overruns
// its interval delays the next run instead of overlapping it.
func (s *Scheduler) AddCronJob(name, cronExpr string, task func()) (gocron.Job, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register job %s: %w", name, err)
	}
	s.logger.Info("scheduler job registered",
		slog.String("job_name", name), slog.String("cron", cronExpr))
	return job, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting")
	s.scheduler.Start()
}

// Shutdown stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Shutdown() error {
	s.stopOnce.Do(func() {
		s.logger.Info("scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}
