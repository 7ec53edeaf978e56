// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package mail

import (
	"context"
	"log/slog"
)

// LogSender records messages in the log instead of delivering them. Only
// the envelope is logged; bodies can carry reset links.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message envelope.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail delivery suppressed",
		"to", msg.To.Email,
		"subject", msg.Subject,
		"html_bytes", len(msg.HTML),
		"text_bytes", len(msg.Text))
	return nil
}
