package examgen

import (
	"context"
	_ "embed"
	"fmt"
	"iter"
	"strings"

	"examprep/app/client/llm"

	"github.com/samber/do"
)

var (
	//go:embed system_prompt.txt
	systemPrompt string
	//go:embed user_prompt.txt
	userPromptTemplate string
	//go:embed questions_prompt.txt
	questionsPromptTemplate string
)

// MissingMaterialReply is shown when the corpus lacks slides or exams.
const MissingMaterialReply = "To generate a practice exam, please upload at least one set of lecture slides and at least one previous exam first."

const temperature = 0.3

type Service struct {
	completer llm.Completer
}

func New(di *do.Injector) (*Service, error) {
	return NewWithCompleter(do.MustInvoke[*llm.Client](di)), nil
}

func NewWithCompleter(completer llm.Completer) *Service {
	return &Service{completer: completer}
}

// Configured reports whether the model behind the service can be called.
func (s *Service) Configured() bool {
	if c, ok := s.completer.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

func (s *Service) Generate(ctx context.Context, slides, exams []string) (string, error) {
	return s.completer.Complete(ctx, Messages(slides, exams), llm.Options{
		Temperature: temperature,
	})
}

// Stream generates the exam chunk by chunk. Missing material yields a single
// instruction chunk without calling the model.
func (s *Service) Stream(ctx context.Context, slides, exams []string) iter.Seq[string] {
	if len(slides) == 0 || len(exams) == 0 {
		return func(yield func(string) bool) {
			yield(MissingMaterialReply)
		}
	}

	return s.completer.CompleteStream(ctx, Messages(slides, exams), llm.Options{
		Temperature: temperature,
	})
}

// Questions drafts new questions from one test and one slide deck. A non-blank
// prompt replaces the built-in instruction entirely.
func (s *Service) Questions(ctx context.Context, tests, slides, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = strings.NewReplacer(
			"{tests}", tests,
			"{slides}", slides,
		).Replace(questionsPromptTemplate)
	}

	return s.completer.Complete(ctx, []llm.Message{llm.User(prompt)}, llm.Options{
		Temperature: temperature,
	})
}

func Messages(slides, exams []string) []llm.Message {
	user := strings.NewReplacer(
		"{slides}", concat("Slides", slides),
		"{exams}", concat("Exam", exams),
	).Replace(userPromptTemplate)

	return []llm.Message{
		llm.System(systemPrompt),
		llm.User(user),
	}
}

func concat(label string, texts []string) string {
	var builder strings.Builder

	for i, text := range texts {
		builder.WriteString(fmt.Sprintf("--- %s %d ---\n%s\n", label, i+1, text))
	}

	return builder.String()
}
