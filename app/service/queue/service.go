package queue

import (
	"context"
	"log/slog"
	"sync"

	"examprep/app/config"
	"examprep/app/util/mylog"

	"github.com/samber/do"
)

const defaultBufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

// Job is an accepted session operation waiting for a worker.
type Job struct {
	Name    string
	Session string
	Run     func(ctx context.Context)
}

type Service struct {
	mu     sync.RWMutex
	closed bool
	queue  chan Job
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewWithSize(cfg.Session.QueueSize), nil
}

func NewWithSize(size int) *Service {
	if size <= 0 {
		size = defaultBufferSize
	}

	return &Service{
		queue: make(chan Job, size),
	}
}

// Add enqueues job without blocking. It reports false when the queue is full
// or already shut down.
func (s *Service) Add(job Job) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.queue <- job:
		return true
	default:
		slog.Warn("Job queue is full",
			"job", job.Name,
			"session", job.Session,
			mylog.AlertKey, true)
		return false
	}
}

func (s *Service) Channel() <-chan Job {
	return s.queue
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.queue)
	}

	return nil
}
