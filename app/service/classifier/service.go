package classifier

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"examprep/app/client/llm"
	"examprep/app/service/document"

	"github.com/samber/do"
)

//go:embed classify_prompt.txt
var classifyPromptTemplate string

const (
	// MaxInputChars bounds the text sent for classification.
	MaxInputChars = 8000
	temperature   = 0
	maxTokens     = 5
)

type Service struct {
	completer llm.Completer
}

func New(di *do.Injector) (*Service, error) {
	return NewWithCompleter(do.MustInvoke[*llm.Client](di)), nil
}

func NewWithCompleter(completer llm.Completer) *Service {
	return &Service{completer: completer}
}

// Classify labels text as slide, test or unknown. Provider errors are returned
// unchanged in meaning; the caller decides the fallback.
func (s *Service) Classify(ctx context.Context, text string) (document.Kind, error) {
	prompt := strings.ReplaceAll(classifyPromptTemplate, "{document}", Truncate(text, MaxInputChars))

	reply, err := s.completer.Complete(ctx, []llm.Message{llm.User(prompt)}, llm.Options{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return document.KindUnknown, fmt.Errorf("classification failed: %w", err)
	}

	return document.ParseKind(reply), nil
}

// Truncate returns at most limit characters of text without splitting runes.
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}
