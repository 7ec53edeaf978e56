// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package mail

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/samber/oops"

	"github.com/natours/natours/internal/auth"
)

// Notification subjects.
const (
	SubjectWelcome       = "Welcome to the Natours Family!"
	SubjectPasswordReset = "Your password reset token (valid for only 10 minutes)"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// kind names a notification template pair.
type kind string

const (
	kindWelcome       kind = "welcome"
	kindPasswordReset kind = "password_reset"
)

type templatePair struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// templateData is what every notification template can reference.
type templateData struct {
	FirstName string
	URL       string
	Subject   string
}

// Notifier implements auth.Notifier by rendering the embedded templates and
// handing the result to a Sender.
type Notifier struct {
	sender    Sender
	from      Address
	templates map[kind]templatePair
}

// NewNotifier parses the embedded templates and returns a Notifier that
// sends from the given address.
func NewNotifier(sender Sender, from Address) (*Notifier, error) {
	if sender == nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender is required")
	}

	templates := make(map[kind]templatePair, 2)
	for _, k := range []kind{kindWelcome, kindPasswordReset} {
		pair, err := parseTemplates(k)
		if err != nil {
			return nil, err
		}
		templates[k] = pair
	}
	return &Notifier{sender: sender, from: from, templates: templates}, nil
}

func parseTemplates(k kind) (templatePair, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/layout.html.tmpl", "templates/"+string(k)+".html.tmpl")
	if err != nil {
		return templatePair{}, oops.Code("MAIL_TEMPLATE_INVALID").With("template", k).Wrap(err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/"+string(k)+".txt.tmpl")
	if err != nil {
		return templatePair{}, oops.Code("MAIL_TEMPLATE_INVALID").With("template", k).Wrap(err)
	}
	return templatePair{html: html, text: text}, nil
}

// SendWelcome greets a newly registered account.
func (n *Notifier) SendWelcome(ctx context.Context, acct *auth.Account, url string) error {
	return n.send(ctx, kindWelcome, SubjectWelcome, acct, url)
}

// SendPasswordReset sends the reset link.
func (n *Notifier) SendPasswordReset(ctx context.Context, acct *auth.Account, url string) error {
	return n.send(ctx, kindPasswordReset, SubjectPasswordReset, acct, url)
}

func (n *Notifier) send(ctx context.Context, k kind, subject string, acct *auth.Account, url string) error {
	msg, err := n.render(k, subject, acct, url)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

func (n *Notifier) render(k kind, subject string, acct *auth.Account, url string) (Message, error) {
	pair := n.templates[k]
	data := templateData{FirstName: acct.FirstName(), URL: url, Subject: subject}

	var html, text bytes.Buffer
	if err := pair.html.ExecuteTemplate(&html, "layout", data); err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").With("template", k).Wrap(err)
	}
	if err := pair.text.Execute(&text, data); err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").With("template", k).Wrap(err)
	}

	return Message{
		From:    n.from,
		To:      Address{Name: acct.Name, Email: acct.Email},
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

var _ auth.Notifier = (*Notifier)(nil)
