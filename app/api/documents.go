package api

import (
	"bufio"
	"context"
	"errors"
	"iter"
	"log/slog"

	"examprep/app/client/llm"
	"examprep/app/service/document"
	"examprep/app/service/ingest"

	"github.com/elliotchance/pie/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

const extractConcurrency = 4

func (s *Server) uploadDocuments(c *fiber.Ctx) error {
	files, err := formFiles(c, "files")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files uploaded")
	}

	uploaded := make([]string, 0, len(files))
	for _, f := range files {
		if _, err = s.ingestSvc.Stage(c.UserContext(), "", f); err != nil {
			return oops.
				In("api").
				Public("failed to store uploaded file").
				Wrap(err)
		}
		uploaded = append(uploaded, f.Name)
	}

	return c.JSON(fiber.Map{"uploaded_files": uploaded})
}

// generateExam streams a practice exam as plain text. Material comes from the
// explicit "slides" and "tests" fields or from "files", which are classified.
func (s *Server) generateExam(c *fiber.Ctx) error {
	slides, err := formFiles(c, "slides")
	if err != nil {
		return err
	}
	tests, err := formFiles(c, "tests")
	if err != nil {
		return err
	}
	mixed, err := formFiles(c, "files")
	if err != nil {
		return err
	}

	if len(slides)+len(tests)+len(mixed) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files uploaded")
	}

	if !s.examSvc.Configured() {
		return streamText(c, func(yield func(string) bool) {
			yield(llm.ErrorChunk(llm.ErrUnconfigured))
		})
	}

	corpus := s.buildCorpus(c.UserContext(), slides, tests, mixed)

	slog.Info("Streaming exam",
		"slides", len(corpus.Slides),
		"exams", len(corpus.Exams))

	// the stream outlives the request context
	return streamText(c, s.examSvc.Stream(s.appCtx, corpus.Slides, corpus.Exams))
}

func streamText(c *fiber.Ctx, chunks iter.Seq[string]) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for chunk := range chunks {
			if _, err := w.WriteString(chunk); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				slog.Debug("Exam stream closed by client", "error", err)
				return
			}
		}
	})

	return nil
}

func (s *Server) generateQuestions(c *fiber.Ctx) error {
	tests, err := formFiles(c, "tests")
	if err != nil {
		return err
	}
	slides, err := formFiles(c, "slides")
	if err != nil {
		return err
	}

	if len(tests) == 0 || len(slides) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "both tests and slides files are required")
	}

	docs := s.extractAll(c.UserContext(), []ingest.File{tests[0], slides[0]}, false)

	questions, err := s.examSvc.Questions(c.UserContext(), docs[0].Text, docs[1].Text, c.FormValue("prompt"))
	switch {
	case errors.Is(err, llm.ErrUnconfigured):
		return err
	case errors.Is(err, llm.ErrEmptyResponse):
		questions = "Failed to generate questions."
	case err != nil:
		return oops.
			In("api").
			Public("failed to generate questions").
			Wrap(err)
	}

	return c.JSON(fiber.Map{"questions": questions})
}

// buildCorpus routes explicit slides and tests directly. Mixed files are
// classified; when that does not yield both kinds the first mixed file is
// taken as the example exam and the rest as slides.
func (s *Server) buildCorpus(ctx context.Context, slides, tests, mixed []ingest.File) document.Corpus {
	var explicit document.Corpus

	for _, doc := range s.extractAll(ctx, slides, false) {
		doc.Kind = document.KindSlide
		addText(&explicit, doc)
	}
	for _, doc := range s.extractAll(ctx, tests, false) {
		doc.Kind = document.KindTest
		addText(&explicit, doc)
	}

	docs := s.extractAll(ctx, mixed, true)

	corpus := explicit.Clone()
	for _, doc := range docs {
		addText(&corpus, doc)
	}
	if corpus.Complete() {
		return corpus
	}

	corpus = explicit.Clone()
	withText := pie.Filter(docs, func(doc document.Document) bool {
		return doc.Text != ""
	})
	for i, doc := range withText {
		doc.Kind = document.KindSlide
		if i == 0 {
			doc.Kind = document.KindTest
		}
		corpus.Add(doc)
	}

	return corpus
}

func addText(corpus *document.Corpus, doc document.Document) {
	if doc.Text == "" {
		return
	}
	corpus.Add(doc)
}

// extractAll extracts files concurrently, keeping input order. With classify
// set each document is also classified.
func (s *Server) extractAll(ctx context.Context, files []ingest.File, classify bool) []document.Document {
	docs := make([]document.Document, len(files))

	var group errgroup.Group
	group.SetLimit(extractConcurrency)

	for i, f := range files {
		group.Go(func() error {
			if classify {
				docs[i] = s.ingestSvc.Analyze(ctx, f)
			} else {
				docs[i] = document.Document{Name: f.Name, Text: s.ingestSvc.Text(ctx, f)}
			}
			return nil
		})
	}

	_ = group.Wait()

	return docs
}
