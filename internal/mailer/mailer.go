package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var ErrNoSender = errors.New("mail sender is not configured")

type Credentials struct {
	User     string
	Password string
}

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	// Credentials overrides the relay login, for events with their own sender.
	Credentials *Credentials
}

//go:generate mockgen -destination=../mocks/mock_sender.go -package=mocks eventpass/internal/mailer Sender

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	cfg  Config
	log  *zerolog.Logger
	send sendFunc
}

func NewSMTPSender(cfg Config, log *zerolog.Logger) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &SMTPSender{cfg: cfg, log: log, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	user, pass, from := s.cfg.User, s.cfg.Password, s.cfg.From
	if msg.Credentials != nil && msg.Credentials.User != "" {
		user, pass, from = msg.Credentials.User, msg.Credentials.Password, msg.Credentials.User
	}
	if msg.From != "" {
		from = msg.From
	}
	if from == "" || s.cfg.Host == "" {
		return ErrNoSender
	}

	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	if err := s.send(addr, auth, from, []string{msg.To}, Build(from, msg, time.Now())); err != nil {
		s.log.Warn().Err(err).Str("email", msg.To).Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}

	s.log.Info().Str("email", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// Build renders an RFC 5322 HTML message.
func Build(from string, msg Message, at time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}
