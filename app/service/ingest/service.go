package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"examprep/app/client/blob"
	"examprep/app/client/extract"
	"examprep/app/service/classifier"
	"examprep/app/service/document"

	"github.com/samber/do"
)

type File struct {
	Name string
	Data []byte
}

type Stager interface {
	Stage(ctx context.Context, sessionID, filename string, data []byte) (string, error)
}

type Extractor interface {
	Text(ctx context.Context, data []byte, filename string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) (document.Kind, error)
}

// Service performs the blocking part of an upload: staging, extraction and
// classification. Routing into a session is left to the caller.
type Service struct {
	stager     Stager
	extractor  Extractor
	classifier Classifier
}

func New(di *do.Injector) (*Service, error) {
	return NewWith(
		do.MustInvoke[blob.Stager](di),
		do.MustInvoke[*extract.Extractor](di),
		do.MustInvoke[*classifier.Service](di),
	), nil
}

func NewWith(stager Stager, extractor Extractor, classifier Classifier) *Service {
	return &Service{
		stager:     stager,
		extractor:  extractor,
		classifier: classifier,
	}
}

// Process stages the file and analyzes it. Only a staging failure is an error;
// extraction and classification failures degrade the document instead.
func (s *Service) Process(ctx context.Context, sessionID string, f File) (document.Document, error) {
	location, err := s.Stage(ctx, sessionID, f)
	if err != nil {
		return document.Document{}, err
	}

	doc := s.Analyze(ctx, f)
	doc.Location = location

	return doc, nil
}

// Stage stores the raw file and returns its location.
func (s *Service) Stage(ctx context.Context, sessionID string, f File) (string, error) {
	location, err := s.stager.Stage(ctx, sessionID, f.Name, f.Data)
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", f.Name, err)
	}

	return location, nil
}

// Analyze extracts and classifies a file without staging it.
func (s *Service) Analyze(ctx context.Context, f File) document.Document {
	doc := document.Document{
		Name: f.Name,
		Text: s.Text(ctx, f),
		Kind: document.KindUnknown,
	}

	if doc.Text == "" {
		return doc
	}

	kind, err := s.classifier.Classify(ctx, classifier.Truncate(doc.Text, classifier.MaxInputChars))
	if err != nil {
		slog.Warn("Classification failed, document left unrouted",
			"file", f.Name,
			"error", err)
		return doc
	}

	doc.Kind = kind

	slog.Info("Document classified",
		"file", f.Name,
		"kind", kind,
		"chars", len(doc.Text))

	return doc
}

// Text extracts text from supported files; failures yield an empty string.
func (s *Service) Text(ctx context.Context, f File) string {
	if !extract.Supported(f.Name) {
		slog.Debug("Skipping extraction for unsupported file", "file", f.Name)
		return ""
	}

	text, err := s.extractor.Text(ctx, f.Data, f.Name)
	if err != nil {
		slog.Error("Text extraction failed", "file", f.Name, "error", err)
		return ""
	}

	return text
}
