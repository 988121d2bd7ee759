package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Sender delivers a composed message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger  *slog.Logger
	counter atomic.Uint64
}

// NewLogSender constructs a sender for development environments.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send composes the message and logs it.
func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	raw, err := Compose(msg)
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("log-%d", s.counter.Add(1))
	s.logger.InfoContext(ctx, "email not delivered; logging only",
		"message_id", id,
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
		"bytes", len(raw),
	)
	s.logger.DebugContext(ctx, "email body", "message_id", id, "raw", string(raw))
	return id, nil
}
