package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures every record it is asked to handle.
type recordingHandler struct {
	level    slog.Level
	err      error
	messages []string
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	h.messages = append(h.messages, record.Message)
	return h.err
}

func (h *recordingHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(_ string) slog.Handler      { return h }

func TestMultiHandlerRespectsPerSinkLevels(t *testing.T) {
	stdout := &recordingHandler{level: slog.LevelInfo}
	persistent := &recordingHandler{level: slog.LevelError}
	logger := slog.New(NewMultiHandler(stdout, persistent))

	logger.Info("info only")
	logger.Error("error everywhere")

	assert.Equal(t, []string{"info only", "error everywhere"}, stdout.messages)
	assert.Equal(t, []string{"error everywhere"}, persistent.messages)
}

func TestMultiHandlerFailingSinkDoesNotStarveOthers(t *testing.T) {
	sinkErr := errors.New("sink down")
	broken := &recordingHandler{level: slog.LevelInfo, err: sinkErr}
	healthy := &recordingHandler{level: slog.LevelInfo}
	handler := NewMultiHandler(broken, healthy)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0)
	err := handler.Handle(context.Background(), record)

	require.ErrorIs(t, err, sinkErr)
	assert.Equal(t, []string{"still delivered"}, healthy.messages)
}
