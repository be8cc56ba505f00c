package mailer

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, bodyHTML string) error
}

// Config holds SMTP settings.
type Config struct {
	Host        string
	Port        int
	User        string
	Pass        string
	FromAddress string
	FromName    string
}

// SMTP sends mail through an SMTP relay with PLAIN auth.
type SMTP struct {
	cfg    Config
	logger *zap.Logger
}

// New returns an SMTP sender, or a sender that only logs when no host is configured.
func New(cfg Config, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		logger.Warn("SMTP_HOST not set; emails will be logged, not sent")
		return &logSender{logger: logger}
	}
	return &SMTP{cfg: cfg, logger: logger}
}

// Send delivers the message. ctx is checked before dialing; net/smtp has no context support.
func (s *SMTP) Send(ctx context.Context, to, subject, bodyHTML string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}
	msg := BuildMessage(s.cfg.FromName, s.cfg.FromAddress, to, subject, bodyHTML, time.Now())
	if err := smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{to}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// BuildMessage renders an RFC 5322 message with an HTML body.
func BuildMessage(fromName, fromAddr, to, subject, bodyHTML string, at time.Time) []byte {
	from := fromAddr
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromName), fromAddr)
	}
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(bodyHTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}

type logSender struct {
	logger *zap.Logger
}

func (l *logSender) Send(ctx context.Context, to, subject, bodyHTML string) error {
	l.logger.Info("email (not sent, SMTP disabled)", zap.String("to", to), zap.String("subject", subject))
	return nil
}
