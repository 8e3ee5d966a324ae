package mylog

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsAlert(t *testing.T) {
	warn := slog.NewRecord(time.Now(), slog.LevelWarn, "Job queue is full", 0)
	assert.False(t, isAlert(context.Background(), warn))

	warn.AddAttrs(slog.String("job", "answer"), slog.Bool(AlertKey, true))
	assert.True(t, isAlert(context.Background(), warn))

	failure := slog.NewRecord(time.Now(), slog.LevelError, "Request failed", 0)
	assert.True(t, isAlert(context.Background(), failure))
}
