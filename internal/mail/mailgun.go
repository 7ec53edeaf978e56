// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package mail

import (
	"context"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunSender delivers messages through the Mailgun HTTP API.
type MailgunSender struct {
	mg *mailgun.MailgunImpl
}

// NewMailgunSender creates a MailgunSender. An empty APIBase uses Mailgun's
// default US endpoint.
func NewMailgunSender(cfg MailgunConfig) *MailgunSender {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	return &MailgunSender{mg: mg}
}

// Send queues msg with Mailgun.
func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.mg.NewMessage(msg.From.String(), msg.Subject, msg.Text, msg.To.String())
	m.SetHtml(msg.HTML)

	if _, _, err := s.mg.Send(ctx, m); err != nil {
		return sendError(ProviderMailgun, msg, err)
	}
	return nil
}
