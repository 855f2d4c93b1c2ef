// Package mail sends meeting summaries over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/hyperjump/gijiroku/internal/config"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("smtp not configured")

// ErrNoRecipients is returned when a message has no To addresses.
var ErrNoRecipients = errors.New("recipients required")

// Message is one outgoing email. Text and HTML are sent as alternatives when both are set.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages and returns the Message-ID it assigned.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// Disabled fails every send.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) (string, error) { return "", ErrNotConfigured }

// SMTPSender sends through one SMTP relay. A connection is opened per message.
type SMTPSender struct {
	cfg  config.MailConfig
	opts []gomail.Option
}

// New returns an SMTPSender when cfg names a host, Disabled otherwise.
func New(cfg config.MailConfig) Sender {
	if cfg.Host == "" {
		return Disabled{}
	}
	return NewSMTPSender(cfg)
}

// NewSMTPSender builds a sender from cfg. Port 465 uses implicit TLS; other
// ports upgrade with STARTTLS when the server offers it.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password))
	}
	if cfg.Debug {
		opts = append(opts, gomail.WithDebugLog())
	}
	return &SMTPSender{cfg: cfg, opts: opts}
}

func (s *SMTPSender) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.Username
}

// build assembles the MIME message without sending it.
func (s *SMTPSender) build(m Message) (*gomail.Msg, error) {
	if len(m.To) == 0 {
		return nil, ErrNoRecipients
	}
	msg := gomail.NewMsg()
	if err := msg.From(s.from()); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetMessageID()
	switch {
	case m.Text != "" && m.HTML != "":
		msg.SetBodyString(gomail.TypeTextPlain, m.Text)
		msg.AddAlternativeString(gomail.TypeTextHTML, m.HTML)
	case m.HTML != "":
		msg.SetBodyString(gomail.TypeTextHTML, m.HTML)
	default:
		msg.SetBodyString(gomail.TypeTextPlain, m.Text)
	}
	return msg, nil
}

// Send dials the relay, delivers m and returns its Message-ID. No retries.
func (s *SMTPSender) Send(ctx context.Context, m Message) (string, error) {
	msg, err := s.build(m)
	if err != nil {
		return "", err
	}
	client, err := gomail.NewClient(s.cfg.Host, s.opts...)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("send mail: %w", err)
	}
	return msg.GetMessageID(), nil
}
