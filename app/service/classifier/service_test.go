package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"examprep/app/client/llm"
	"examprep/app/client/llm/llmtest"
	"examprep/app/service/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMapsReply(t *testing.T) {
	tests := []struct {
		reply string
		want  document.Kind
	}{
		{"slide", document.KindSlide},
		{" Test\n", document.KindTest},
		{"It is a test.", document.KindUnknown},
		{"", document.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			fake := &llmtest.Fake{Reply: llmtest.Replies(tt.reply)}

			got, err := NewWithCompleter(fake).Classify(context.Background(), "Lecture 1: Gradient descent")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIsDeterministicAndTruncated(t *testing.T) {
	fake := &llmtest.Fake{Reply: llmtest.Replies("slide")}
	text := strings.Repeat("a", MaxInputChars) + "TAIL"

	_, err := NewWithCompleter(fake).Classify(context.Background(), text)
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Zero(t, calls[0].Options.Temperature)
	require.Len(t, calls[0].Messages, 1)
	assert.Equal(t, llm.RoleUser, calls[0].Messages[0].Role)
	assert.NotContains(t, calls[0].Messages[0].Content, "TAIL")
	assert.Contains(t, calls[0].Messages[0].Content, strings.Repeat("a", MaxInputChars))
}

func TestClassifyPropagatesErrors(t *testing.T) {
	boom := errors.New("provider down")
	fake := &llmtest.Fake{Reply: llmtest.Fail(boom)}

	kind, err := NewWithCompleter(fake).Classify(context.Background(), "text")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, document.KindUnknown, kind)
}

func TestTruncateKeepsRunes(t *testing.T) {
	text := strings.Repeat("é", 10)

	got := Truncate(text, 4)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 4, utf8.RuneCountInString(got))
	assert.Equal(t, "short", Truncate("short", 8000))
}
