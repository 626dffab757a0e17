// Package mailer renders and delivers approval notification emails. Delivery
// goes through the Sender interface so the SMTP transport can be swapped out
// in tests or behind a managed relay.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"
	"time"
)

// Message is one rendered outbound email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(msg.Body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := s.cfg.Host + ":" + s.cfg.Port
	if err := smtp.SendMail(addr, auth, s.cfg.From, msg.To, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// NotificationData is the template input for one record event.
type NotificationData struct {
	Event    string
	Resource string
	Name     string
	Status   string
	Actor    string
	TenantID string
}

var (
	subjectTmpl = template.Must(template.New("subject").Parse(
		`[{{.TenantID}}] {{.Resource}} "{{.Name}}" needs review`))

	bodyTmpl = template.Must(template.New("body").Parse(
		`Hello,

{{.Actor}} submitted a change on {{.Resource}} "{{.Name}}".
The record is now in status {{.Status}} and is waiting for an approver.

Please review it in the back office.
`))
)

// RenderNotification produces the approver notification for a staged record.
func RenderNotification(data NotificationData, recipients []string) (Message, error) {
	var subject, body bytes.Buffer
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("failed to render body: %w", err)
	}
	return Message{To: recipients, Subject: subject.String(), Body: body.String()}, nil
}
