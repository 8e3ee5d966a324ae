package session

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoFiles          = errors.New("no file selected")
	ErrUploadInProgress = errors.New("another upload is in progress")
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrBusy             = errors.New("another answer or exam is in progress")
	ErrCorpusIncomplete = errors.New("slides and previous exams are both required")
	ErrUploadFailed     = errors.New("upload failed")
)
