package api

import (
	"examprep/app/service/session"

	"github.com/gofiber/fiber/v2"
)

type sessionView struct {
	ID            string                 `json:"id"`
	Version       uint64                 `json:"version"`
	State         session.State          `json:"state"`
	SlideCount    int                    `json:"slide_count"`
	ExamCount     int                    `json:"exam_count"`
	Notifications []session.Notification `json:"notifications"`
}

func newSessionView(snapshot session.Snapshot, notifications []session.Notification) sessionView {
	if notifications == nil {
		notifications = []session.Notification{}
	}

	return sessionView{
		ID:            snapshot.ID,
		Version:       snapshot.Version,
		State:         snapshot.State,
		SlideCount:    len(snapshot.Corpus.Slides),
		ExamCount:     len(snapshot.Corpus.Exams),
		Notifications: notifications,
	}
}

// respond writes the current session state and drains its notifications.
func respond(c *fiber.Ctx, sess *session.Session, status int) error {
	return c.Status(status).JSON(newSessionView(sess.Snapshot(), sess.TakeNotifications()))
}
