package api

import (
	"errors"
	"log/slog"

	"examprep/app/client/llm"
	"examprep/app/service/session"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
)

func statusOf(err error) int {
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, session.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrEmptyQuestion),
		errors.Is(err, session.ErrNoFiles),
		errors.Is(err, session.ErrCorpusIncomplete):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrUploadInProgress):
		return fiber.StatusConflict
	case errors.Is(err, llm.ErrUnconfigured):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every error as {"error": message}. Internal errors only
// expose their public oops message.
func errorHandler(c *fiber.Ctx, err error) error {
	code := statusOf(err)
	message := err.Error()

	if code == fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err)

		message = "internal server error"
		if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Public() != "" {
			message = oopsErr.Public()
		}
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
