package session

import "context"

// Ask accepts a question: it records it and marks the session as answering.
// The returned task produces the reply.
func (s *Session) Ask(question string) (Task, error) {
	question = normalizeQuestion(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busyLocked() {
		return nil, ErrBusy
	}

	s.state.Transcript = s.transcript.add(s.state.Transcript, RoleUser, question)
	s.state.PendingQuestion = ""
	s.state.Answering = true
	s.touch()

	return func(ctx context.Context) {
		s.answer(ctx, question)
	}, nil
}

// Answer asks a question and waits for the reply.
func (s *Session) Answer(ctx context.Context, question string) error {
	task, err := s.Ask(question)
	if err != nil {
		return err
	}

	task(ctx)

	return nil
}

func (s *Session) answer(ctx context.Context, question string) {
	s.mu.Lock()
	documentText := s.state.LastUploadedText
	s.mu.Unlock()

	reply, err := guard(func() (string, error) {
		return s.answerer.Answer(ctx, documentText, question)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logger(s.id).Error("Failed to answer question", "error", err)
		reply = errorReply(err)
	}

	s.say(reply)
	s.state.Answering = false
	s.touch()
}
