package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/tmc/langchaingo/llms"
)

var (
	ErrUnconfigured  = errors.New("LLM client is not configured: set MISTRAL_API_KEY")
	ErrEmptyResponse = errors.New("no chat completion found")
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) chatType() llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Options tune a single completion. Zero Model means the client default.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completer is the model collaborator used by the engines.
//
// CompleteStream never fails: errors are delivered as a final text chunk
// so that a streamed response can always be closed cleanly.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
	CompleteStream(ctx context.Context, messages []Message, opts Options) iter.Seq[string]
}

// ErrorChunk renders err as the terminal chunk of a stream.
func ErrorChunk(err error) string {
	if errors.Is(err, ErrUnconfigured) {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("An error occurred while communicating with the model: %v", err)
}
