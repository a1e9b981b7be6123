package email

import (
	"errors"
	"fmt"
	"io"
	"net/smtp"
	"os"
	"strings"
	"time"
)

const (
	DefaultAddr = "localhost:1025"
	DefaultFrom = "no-reply@recogateway.local"
)

var ErrNoRecipient = errors.New("email: recipient required")

type Sender interface {
	Send(to, subject, html string) error
}

// StdoutSender prints messages instead of delivering them
type StdoutSender struct {
	Out io.Writer
}

func (s StdoutSender) Send(to, subject, html string) error {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintf(out, "EMAIL to=%s subject=%s\n%s\n", to, subject, html)
	return err
}

// SMTPSender delivers HTML mail through a plain SMTP relay such as MailHog
type SMTPSender struct {
	Addr string
	From string
	Auth smtp.Auth

	now func() time.Time
}

// NewSMTPSender creates a sender, defaulting to a local MailHog relay
func NewSMTPSender(addr, from string) *SMTPSender {
	if addr == "" {
		addr = DefaultAddr
	}
	if from == "" {
		from = DefaultFrom
	}
	return &SMTPSender{Addr: addr, From: from, now: time.Now}
}

func (s *SMTPSender) Send(to, subject, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}
	if strings.ContainsAny(to+subject, "\r\n") {
		return fmt.Errorf("email: header injection in recipient or subject")
	}

	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, s.message(to, subject, html)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) message(to, subject, html string) []byte {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
