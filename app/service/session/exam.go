package session

import (
	"context"

	"examprep/app/service/document"
	"examprep/app/service/examgen"
)

// Exam accepts an exam generation request. Without both slides and exams it
// explains what is missing and returns ErrCorpusIncomplete.
func (s *Session) Exam() (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busyLocked() {
		return nil, ErrBusy
	}

	if !s.state.Corpus.Complete() {
		s.say(examgen.MissingMaterialReply)
		s.touch()
		return nil, ErrCorpusIncomplete
	}

	s.state.GeneratingExam = true
	s.touch()

	corpus := s.state.Corpus.Clone()

	return func(ctx context.Context) {
		s.exam(ctx, corpus)
	}, nil
}

// GenerateExam generates an exam and waits for it.
func (s *Session) GenerateExam(ctx context.Context) error {
	task, err := s.Exam()
	if err != nil {
		return err
	}

	task(ctx)

	return nil
}

func (s *Session) exam(ctx context.Context, corpus document.Corpus) {
	exam, err := guard(func() (string, error) {
		return s.examiner.Generate(ctx, corpus.Slides, corpus.Exams)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logger(s.id).Error("Failed to generate exam", "error", err)
		exam = errorReply(err)
	}

	s.say(exam)
	s.state.GeneratingExam = false
	s.touch()
}
