// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"iter"
	"slices"
	"sync"

	"examprep/app/client/llm"
)

type Call struct {
	Messages []llm.Message
	Options  llm.Options
}

var _ llm.Completer = (*Fake)(nil)

type Fake struct {
	// Reply computes the answer of a call. Nil replies "ok".
	Reply func(call Call) (string, error)
	// Chunks, when set, are streamed instead of the reply.
	Chunks []string
	// Gate, when set, blocks every call until it is closed.
	Gate chan struct{}

	mu    sync.Mutex
	calls []Call
}

// Replies answers calls in order, repeating the last reply.
func Replies(replies ...string) func(Call) (string, error) {
	var (
		mu sync.Mutex
		i  int
	)
	return func(Call) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		reply := replies[min(i, len(replies)-1)]
		i++
		return reply, nil
	}
}

// Fail answers every call with err.
func Fail(err error) func(Call) (string, error) {
	return func(Call) (string, error) {
		return "", err
	}
}

func (f *Fake) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	call := f.record(messages, opts)

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.Reply == nil {
		return "ok", nil
	}
	return f.Reply(call)
}

func (f *Fake) CompleteStream(ctx context.Context, messages []llm.Message, opts llm.Options) iter.Seq[string] {
	return func(yield func(string) bool) {
		if f.Chunks != nil {
			f.record(messages, opts)
			for _, chunk := range f.Chunks {
				if !yield(chunk) {
					return
				}
			}
			return
		}

		reply, err := f.Complete(ctx, messages, opts)
		if err != nil {
			yield(llm.ErrorChunk(err))
			return
		}
		yield(reply)
	}
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *Fake) record(messages []llm.Message, opts llm.Options) Call {
	call := Call{Messages: slices.Clone(messages), Options: opts}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	return call
}
