package session

import (
	"context"
	"log/slog"
	"time"

	"examprep/app/config"
	"examprep/app/service/examgen"
	"examprep/app/service/ingest"
	"examprep/app/service/qa"
	"examprep/app/service/queue"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/samber/do"
)

type Options struct {
	TTL           time.Duration
	MaxTranscript int
}

// Service keeps live sessions. A session expires after TTL without access.
type Service struct {
	appCtx   context.Context
	opts     Options
	sessions *cache.Cache
	queueSvc *queue.Service

	ingester Ingester
	answerer Answerer
	examiner ExamGenerator
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewWith(
		do.MustInvoke[context.Context](di),
		Options{
			TTL:           cfg.Session.TTL,
			MaxTranscript: cfg.Session.MaxTranscript,
		},
		do.MustInvoke[*queue.Service](di),
		do.MustInvoke[*ingest.Service](di),
		do.MustInvoke[*qa.Service](di),
		do.MustInvoke[*examgen.Service](di),
	), nil
}

func NewWith(
	appCtx context.Context,
	opts Options,
	queueSvc *queue.Service,
	ingester Ingester,
	answerer Answerer,
	examiner ExamGenerator,
) *Service {
	sessions := cache.New(opts.TTL, opts.TTL/2)
	sessions.OnEvicted(func(id string, _ interface{}) {
		slog.Debug("Session expired", "session", id)
	})

	return &Service{
		appCtx:   appCtx,
		opts:     opts,
		sessions: sessions,
		queueSvc: queueSvc,
		ingester: ingester,
		answerer: answerer,
		examiner: examiner,
	}
}

func (s *Service) Create() *Session {
	sess := newSession(uuid.NewString(), s.opts.MaxTranscript, s.ingester, s.answerer, s.examiner)
	s.sessions.SetDefault(sess.ID(), sess)

	slog.Info("Session created", "session", sess.ID())

	return sess
}

// Get returns a live session and extends its lifetime.
func (s *Service) Get(id string) (*Session, error) {
	value, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess := value.(*Session)
	s.sessions.SetDefault(id, sess)

	return sess, nil
}

func (s *Service) Delete(id string) error {
	if _, ok := s.sessions.Get(id); !ok {
		return ErrSessionNotFound
	}

	s.sessions.Delete(id)

	return nil
}

func (s *Service) Count() int {
	return s.sessions.ItemCount()
}

// Submit runs an accepted task on the worker pool. When the queue cannot take
// it the task runs on its own goroutine so its busy flag is still released.
func (s *Service) Submit(name string, sess *Session, task Task) {
	job := queue.Job{
		Name:    name,
		Session: sess.ID(),
		Run:     task,
	}

	if s.queueSvc.Add(job) {
		return
	}

	go task(s.appCtx)
}
