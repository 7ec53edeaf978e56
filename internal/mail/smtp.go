// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// SMTPSender delivers messages over SMTP, upgrading to STARTTLS when the
// server offers it and authenticating when credentials are configured.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers msg. The context bounds the dial and the whole SMTP session.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	body, err := buildMIME(msg)
	if err != nil {
		return sendError(ProviderSMTP, msg, err)
	}
	if err := s.deliver(ctx, msg, body); err != nil {
		return sendError(ProviderSMTP, msg, err)
	}
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, msg Message, body []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return oops.With("addr", addr).Wrapf(err, "dial smtp server")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return oops.Wrapf(err, "smtp handshake")
	}
	defer client.Close() //nolint:errcheck // Quit reports the meaningful error

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return oops.Wrapf(err, "starttls")
		}
	}
	if s.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return oops.Wrapf(err, "smtp auth")
			}
		}
	}

	if err := client.Mail(msg.From.Email); err != nil {
		return oops.Wrapf(err, "smtp MAIL FROM")
	}
	if err := client.Rcpt(msg.To.Email); err != nil {
		return oops.Wrapf(err, "smtp RCPT TO")
	}
	w, err := client.Data()
	if err != nil {
		return oops.Wrapf(err, "smtp DATA")
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return oops.Wrapf(err, "write message")
	}
	if err := w.Close(); err != nil {
		return oops.Wrapf(err, "finish message")
	}
	return client.Quit()
}

// buildMIME encodes msg as a multipart/alternative RFC 5322 message.
func buildMIME(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []struct{ key, value string }{
		{"From", msg.From.String()},
		{"To", msg.To.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", time.Now().UTC().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary())},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}
	buf.WriteString("\r\n")

	parts := []struct{ contentType, content string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, oops.Wrapf(err, "create mime part")
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, oops.Wrapf(err, "encode mime part")
		}
		if err := qp.Close(); err != nil {
			return nil, oops.Wrapf(err, "encode mime part")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, oops.Wrapf(err, "close mime body")
	}
	return buf.Bytes(), nil
}
