// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package mail renders account notifications and delivers them through a
// configurable provider (SMTP, Mailgun, SendGrid, or a logging sink).
package mail

import (
	"context"
	"log/slog"
	"net/mail"

	"github.com/samber/oops"
)

// Provider names accepted in Config.Provider.
const (
	ProviderSMTP     = "smtp"
	ProviderMailgun  = "mailgun"
	ProviderSendGrid = "sendgrid"
	ProviderLog      = "log"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name  string
	Email string
}

// String formats the address for a message header.
func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Message is a rendered email with HTML and plain-text alternatives.
type Message struct {
	From    Address
	To      Address
	Subject string
	HTML    string
	Text    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// MailgunConfig configures MailgunSender.
type MailgunConfig struct {
	Domain  string `koanf:"domain"`
	APIKey  string `koanf:"api_key"`
	APIBase string `koanf:"api_base"`
}

// SendGridConfig configures SendGridSender.
type SendGridConfig struct {
	APIKey string `koanf:"api_key"`
	Host   string `koanf:"host"`
}

// Config selects and configures a mail provider.
type Config struct {
	Provider string         `koanf:"provider"`
	From     string         `koanf:"from"`
	FromName string         `koanf:"from_name"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Mailgun  MailgunConfig  `koanf:"mailgun"`
	SendGrid SendGridConfig `koanf:"sendgrid"`
}

// FromAddress returns the configured sender mailbox.
func (c Config) FromAddress() Address {
	return Address{Name: c.FromName, Email: c.From}
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	if _, err := mail.ParseAddress(c.From); err != nil {
		return configError(c.Provider, "from", "invalid sender address %q", c.From)
	}

	switch c.Provider {
	case ProviderSMTP:
		if c.SMTP.Host == "" {
			return configError(c.Provider, "smtp.host", "smtp host is required")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return configError(c.Provider, "smtp.port", "smtp port %d out of range", c.SMTP.Port)
		}
	case ProviderMailgun:
		if c.Mailgun.Domain == "" || c.Mailgun.APIKey == "" {
			return configError(c.Provider, "mailgun", "mailgun domain and api key are required")
		}
	case ProviderSendGrid:
		if c.SendGrid.APIKey == "" {
			return configError(c.Provider, "sendgrid.api_key", "sendgrid api key is required")
		}
	case ProviderLog:
	default:
		return configError(c.Provider, "provider", "unknown mail provider %q", c.Provider)
	}
	return nil
}

func configError(provider, field, format string, args ...any) error {
	return oops.Code("MAIL_CONFIG_INVALID").
		With("provider", provider).
		With("field", field).
		Errorf(format, args...)
}

// NewSender builds the Sender selected by cfg.Provider.
func NewSender(cfg Config, logger *slog.Logger) (Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderSMTP:
		return NewSMTPSender(cfg.SMTP), nil
	case ProviderMailgun:
		return NewMailgunSender(cfg.Mailgun), nil
	case ProviderSendGrid:
		return NewSendGridSender(cfg.SendGrid), nil
	case ProviderLog:
		return NewLogSender(logger), nil
	}
	return nil, configError(cfg.Provider, "provider", "unknown mail provider %q", cfg.Provider)
}

func sendError(provider string, msg Message, err error) error {
	return oops.Code("MAIL_SEND_FAILED").
		With("provider", provider).
		With("to", msg.To.Email).
		With("subject", msg.Subject).
		Wrap(err)
}
