package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"examprep/app/config"
	"examprep/app/service/queue"
	"examprep/app/util/mylog"

	"github.com/samber/do"
)

// Service runs queued session jobs on a fixed pool of workers.
type Service struct {
	workers  int
	queueSvc *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewWith(do.MustInvoke[*queue.Service](di), cfg.Session.Workers), nil
}

func NewWith(queueSvc *queue.Service, workers int) *Service {
	if workers <= 0 {
		workers = 1
	}

	return &Service{
		workers:  workers,
		queueSvc: queueSvc,
	}
}

// Run blocks until the queue is shut down and every accepted job has finished.
// Jobs keep receiving ctx after it is cancelled so they can fail fast and
// release their sessions.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := range s.workers {
		wg.Go(func() {
			s.work(ctx, i)
		})
	}

	wg.Wait()

	slog.Info("All workers stopped")
}

func (s *Service) work(ctx context.Context, worker int) {
	for job := range s.queueSvc.Channel() {
		start := time.Now()
		s.runJob(ctx, job)

		slog.Info("Processed job",
			"job", job.Name,
			"session", job.Session,
			"worker", worker,
			"duration", time.Since(start))
	}
}

func (s *Service) runJob(ctx context.Context, job queue.Job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Job panicked",
				"job", job.Name,
				"session", job.Session,
				"panic", r,
				mylog.AlertKey, true)
		}
	}()

	job.Run(ctx)
}
