package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"examprep/app/service/document"
	"examprep/app/service/ingest"
)

type Ingester interface {
	Process(ctx context.Context, sessionID string, f ingest.File) (document.Document, error)
}

type Answerer interface {
	Answer(ctx context.Context, documentText, question string) (string, error)
}

type ExamGenerator interface {
	Generate(ctx context.Context, slides, exams []string) (string, error)
}

// Task is the suspending half of an accepted operation. It always releases
// the busy flag it was accepted under.
type Task func(ctx context.Context)

// Session owns one user's conversation. All state transitions happen under mu;
// model calls run outside of it.
type Session struct {
	id         string
	ingester   Ingester
	answerer   Answerer
	examiner   ExamGenerator
	transcript transcript

	mu            sync.Mutex
	state         State
	version       uint64
	changed       chan struct{}
	notifications []Notification
}

func newSession(id string, maxTranscript int, ingester Ingester, answerer Answerer, examiner ExamGenerator) *Session {
	s := &Session{
		id:         id,
		ingester:   ingester,
		answerer:   answerer,
		examiner:   examiner,
		transcript: transcript{limit: maxTranscript},
		changed:    make(chan struct{}),
	}
	s.state.Transcript = s.transcript.seed()

	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:      s.id,
		Version: s.version,
		State:   s.state.clone(),
	}
}

// WaitChange blocks until the state version differs from version or ctx ends.
func (s *Session) WaitChange(ctx context.Context, version uint64) (Snapshot, error) {
	for {
		s.mu.Lock()
		if s.version != version {
			snapshot := s.snapshotLocked()
			s.mu.Unlock()
			return snapshot, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// TakeNotifications drains pending notifications.
func (s *Session) TakeNotifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.notifications
	s.notifications = nil

	return result
}

func (s *Session) SetPendingQuestion(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.PendingQuestion = text
	s.touch()
}

// ClearChat resets the transcript to the greeting and forgets the last upload
// name. Ingested material stays available. Refused with ErrBusy while a reply
// is in flight.
func (s *Session) ClearChat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busyLocked() {
		return ErrBusy
	}

	s.state.Transcript = s.transcript.seed()
	s.state.LastUploadedName = ""
	s.touch()

	return nil
}

// Reset drops the transcript and all ingested material. Like ClearChat it is
// refused while a reply is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busyLocked() {
		return ErrBusy
	}

	s.state.Transcript = s.transcript.seed()
	s.state.Corpus = document.Corpus{}
	s.state.Documents = nil
	s.state.LastUploadedText = ""
	s.state.LastUploadedName = ""
	s.state.PendingQuestion = ""
	s.touch()

	return nil
}

func (s *Session) busyLocked() bool {
	return s.state.Answering || s.state.GeneratingExam
}

// touch must be called with mu held after every state change.
func (s *Session) touch() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) notifyLocked(level Level, text string) {
	s.notifications = append(s.notifications, Notification{Level: level, Text: text})
}

func (s *Session) notify(level Level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifyLocked(level, text)
}

func (s *Session) say(text string) {
	s.state.Transcript = s.transcript.add(s.state.Transcript, RoleAssistant, text)
}

// guard runs fn and turns a panic into an error.
func guard(fn func() (string, error)) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn()
}

func errorReply(err error) string {
	return fmt.Sprintf("An error occurred: %v", err)
}

func normalizeQuestion(text string) string {
	return strings.TrimSpace(text)
}

func logger(id string) *slog.Logger {
	return slog.With("session", id)
}
