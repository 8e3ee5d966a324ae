package api

import (
	"context"
	"errors"
	"time"

	"examprep/app/service/session"

	"github.com/gofiber/fiber/v2"
)

const maxPollWait = 30 * time.Second

type questionRequest struct {
	Question string `json:"question" form:"question"`
}

func (s *Server) lookup(c *fiber.Ctx) (*session.Session, error) {
	return s.sessionSvc.Get(c.Params("id"))
}

func (s *Server) createSession(c *fiber.Ctx) error {
	return respond(c, s.sessionSvc.Create(), fiber.StatusCreated)
}

// getSession returns the session state. With ?after=<version> it waits up to
// maxPollWait for a newer version.
func (s *Server) getSession(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	if after := c.QueryInt("after", -1); after >= 0 {
		ctx, cancel := context.WithTimeout(c.UserContext(), maxPollWait)
		defer cancel()

		_, _ = sess.WaitChange(ctx, uint64(after))
	}

	return respond(c, sess, fiber.StatusOK)
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	if err := s.sessionSvc.Delete(c.Params("id")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) uploadToSession(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	files, err := formFiles(c, "files")
	if err != nil {
		return err
	}

	err = sess.Upload(c.UserContext(), files)
	switch {
	case errors.Is(err, session.ErrNoFiles):
		return respond(c, sess, fiber.StatusBadRequest)
	case errors.Is(err, session.ErrUploadInProgress):
		return respond(c, sess, fiber.StatusConflict)
	case err != nil:
		return err
	}

	return respond(c, sess, fiber.StatusOK)
}

// askQuestion records the question and answers it on the worker pool. With
// ?wait=true the reply is part of the response.
func (s *Server) askQuestion(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	var req questionRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	task, err := sess.Ask(req.Question)
	if err != nil {
		return err
	}

	return s.run(c, sess, "answer", task)
}

func (s *Server) requestExam(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	task, err := sess.Exam()
	switch {
	case errors.Is(err, session.ErrCorpusIncomplete):
		return respond(c, sess, fiber.StatusOK)
	case err != nil:
		return err
	}

	return s.run(c, sess, "exam", task)
}

func (s *Server) run(c *fiber.Ctx, sess *session.Session, name string, task session.Task) error {
	if c.QueryBool("wait") {
		task(c.UserContext())
		return respond(c, sess, fiber.StatusOK)
	}

	s.sessionSvc.Submit(name, sess, task)

	return respond(c, sess, fiber.StatusAccepted)
}

func (s *Server) saveDraft(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	var req questionRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sess.SetPendingQuestion(req.Question)

	return respond(c, sess, fiber.StatusOK)
}

func (s *Server) clearChat(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	if err = sess.ClearChat(); err != nil {
		return err
	}

	return respond(c, sess, fiber.StatusOK)
}

func (s *Server) resetSession(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	if err = sess.Reset(); err != nil {
		return err
	}

	return respond(c, sess, fiber.StatusOK)
}
