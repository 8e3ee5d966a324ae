package session

import (
	"context"
	"fmt"

	"examprep/app/service/document"
	"examprep/app/service/ingest"
	"examprep/app/util/mylog"
)

// Upload ingests files one by one. Each successfully staged file is routed
// into the corpus and becomes the current document. Per-file failures are
// reported as notifications and do not abort the batch.
func (s *Session) Upload(ctx context.Context, files []ingest.File) (err error) {
	if len(files) == 0 {
		s.notify(LevelWarning, "No file selected. Please choose a PDF to upload.")
		return ErrNoFiles
	}

	s.mu.Lock()
	if s.state.Uploading {
		s.notifyLocked(LevelWarning, "Another upload is in progress, please wait.")
		s.mu.Unlock()
		return ErrUploadInProgress
	}
	s.state.Uploading = true
	s.touch()
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger(s.id).Error("Upload panicked", "panic", r, mylog.AlertKey, true)
			s.notify(LevelError, "Upload failed. Please try again.")
			err = ErrUploadFailed
		}

		s.mu.Lock()
		s.state.Uploading = false
		s.touch()
		s.mu.Unlock()
	}()

	for _, f := range files {
		doc, processErr := s.ingester.Process(ctx, s.id, f)
		if processErr != nil {
			logger(s.id).Error("Upload failed", "file", f.Name, "error", processErr)
			s.notify(LevelError, fmt.Sprintf("Failed to upload %s. Please try again.", f.Name))
			continue
		}

		s.accept(doc)
	}

	return nil
}

func (s *Session) accept(doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	routed := s.state.Corpus.Add(doc)
	s.state.Documents = append(s.state.Documents, doc)
	s.state.LastUploadedText = doc.Text
	s.state.LastUploadedName = doc.Name
	s.say(uploadReply(doc))
	s.touch()

	if routed {
		s.notifyLocked(LevelSuccess, fmt.Sprintf("Uploaded %s as %s.", doc.Name, kindLabel(doc.Kind)))
	} else {
		s.notifyLocked(LevelWarning, fmt.Sprintf("Uploaded %s, but could not tell whether it is slides or an exam.", doc.Name))
	}

	logger(s.id).Info("Document accepted",
		"file", doc.Name,
		"kind", doc.Kind,
		"routed", routed,
		"slides", len(s.state.Corpus.Slides),
		"exams", len(s.state.Corpus.Exams))
}

func uploadReply(doc document.Document) string {
	return fmt.Sprintf("Successfully uploaded %s. What would you like to know about it?", doc.Name)
}

func kindLabel(kind document.Kind) string {
	switch kind {
	case document.KindSlide:
		return "lecture slides"
	case document.KindTest:
		return "a previous exam"
	default:
		return "an unknown document"
	}
}
