package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"examprep/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const streamBuffer = 16

var _ Completer = (*Client)(nil)

type Client struct {
	model llms.Model
	name  string
}

func New(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if !cfg.LLM.Configured() {
		slog.Warn("LLM token is not set, question answering and exam generation are disabled",
			"base_url", cfg.LLM.BaseURL)
		return NewWithModel(nil, cfg.LLM.Model), nil
	}

	model, err := openai.New(
		openai.WithToken(cfg.LLM.Token),
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithModel(cfg.LLM.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
		openai.WithCallback(LogCallbackHandler{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	return NewWithModel(model, cfg.LLM.Model), nil
}

// NewWithModel wraps an existing model. A nil model yields an unconfigured client.
func NewWithModel(model llms.Model, name string) *Client {
	return &Client{
		model: model,
		name:  name,
	}
}

func (c *Client) Configured() bool {
	return c.model != nil
}

func (c *Client) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if c.model == nil {
		return "", ErrUnconfigured
	}

	resp, err := c.model.GenerateContent(ctx, toContent(messages), c.callOptions(opts)...)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (c *Client) CompleteStream(ctx context.Context, messages []Message, opts Options) iter.Seq[string] {
	return func(yield func(string) bool) {
		if c.model == nil {
			yield(ErrorChunk(ErrUnconfigured))
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		chunks := make(chan string, streamBuffer)
		done := make(chan error, 1)

		forward := func(streamCtx context.Context, chunk []byte) error {
			select {
			case chunks <- string(chunk):
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		}

		go func() {
			defer close(chunks)
			callOpts := append(c.callOptions(opts), llms.WithStreamingFunc(forward))
			_, err := c.model.GenerateContent(ctx, toContent(messages), callOpts...)
			done <- err
		}()

		for chunk := range chunks {
			if chunk == "" {
				continue
			}
			if !yield(chunk) {
				cancel()
				for range chunks {
				}
				return
			}
		}

		if err := <-done; err != nil {
			slog.Error("Streaming completion failed", "model", c.name, "error", err)
			yield(ErrorChunk(err))
		}
	}
}

func (c *Client) callOptions(opts Options) []llms.CallOption {
	callOpts := []llms.CallOption{
		llms.WithTemperature(opts.Temperature),
	}
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}
	// Mistral only understands max_tokens
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts,
			llms.WithMaxTokens(opts.MaxTokens),
			openai.WithLegacyMaxTokensField())
	}
	return callOpts
}

func toContent(messages []Message) []llms.MessageContent {
	return pie.Map(messages, func(m Message) llms.MessageContent {
		return llms.TextParts(m.Role.chatType(), m.Content)
	})
}
