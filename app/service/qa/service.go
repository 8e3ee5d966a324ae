package qa

import (
	"context"
	_ "embed"
	"strings"

	"examprep/app/client/llm"

	"github.com/samber/do"
)

//go:embed system_prompt.txt
var systemPromptTemplate string

// NoDocumentReply is returned when there is nothing to ground an answer on.
const NoDocumentReply = "Please upload a PDF first."

const temperature = 0.2

type Service struct {
	completer llm.Completer
}

func New(di *do.Injector) (*Service, error) {
	return NewWithCompleter(do.MustInvoke[*llm.Client](di)), nil
}

func NewWithCompleter(completer llm.Completer) *Service {
	return &Service{completer: completer}
}

// Answer replies to question using only documentText.
func (s *Service) Answer(ctx context.Context, documentText, question string) (string, error) {
	if documentText == "" {
		return NoDocumentReply, nil
	}

	return s.completer.Complete(ctx, Messages(documentText, question), llm.Options{
		Temperature: temperature,
	})
}

func Messages(documentText, question string) []llm.Message {
	return []llm.Message{
		llm.System(strings.ReplaceAll(systemPromptTemplate, "{document}", documentText)),
		llm.User(question),
	}
}
