// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package mail

import (
	"context"
	"net/http"

	"github.com/samber/oops"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridSender delivers messages through the SendGrid v3 API.
type SendGridSender struct {
	apiKey string
	host   string
}

// NewSendGridSender creates a SendGridSender. An empty Host uses
// https://api.sendgrid.com.
func NewSendGridSender(cfg SendGridConfig) *SendGridSender {
	return &SendGridSender{apiKey: cfg.APIKey, host: cfg.Host}
}

// Send posts msg to SendGrid. Any non-2xx response is an error.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(msg.From.Name, msg.From.Email)
	to := sgmail.NewEmail(msg.To.Name, msg.To.Email)
	body := sgmail.GetRequestBody(sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML))

	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = http.MethodPost
	request.Body = body

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return sendError(ProviderSendGrid, msg, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return sendError(ProviderSendGrid, msg, oops.
			With("status", resp.StatusCode).
			With("body", resp.Body).
			Errorf("sendgrid rejected message with status %d", resp.StatusCode))
	}
	return nil
}
