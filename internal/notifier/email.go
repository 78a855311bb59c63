package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/config"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
)

// Sender delivers one rendered notification to a recipient
type Sender interface {
	Send(ctx context.Context, recipient, subject, htmlBody string) error
}

type sendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender sends HTML notifications over SMTP
type EmailSender struct {
	config   config.EmailConfig
	sendMail sendMailFunc
	now      func() time.Time
}

func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	es := &EmailSender{
		config: cfg,
		now:    time.Now,
	}
	es.sendMail = es.deliver
	return es
}

// Send delivers a single attempt. Failures come back as NotificationError.
func (es *EmailSender) Send(ctx context.Context, recipient, subject, htmlBody string) error {
	if es.config.SMTPHost == "" || es.config.Username == "" {
		return apperr.NewNotificationError(recipient, errors.New("email configuration incomplete"))
	}
	if strings.TrimSpace(recipient) == "" {
		return apperr.NewNotificationError(recipient, errors.New("recipient is required"))
	}
	if err := ctx.Err(); err != nil {
		return apperr.NewNotificationError(recipient, err)
	}

	from := es.config.From
	if from == "" {
		from = es.config.Username
	}

	message := buildMessage(from, recipient, subject, htmlBody, es.now())
	auth := smtp.PlainAuth("", es.config.Username, es.config.Password, es.config.SMTPHost)
	addr := fmt.Sprintf("%s:%d", es.config.SMTPHost, es.config.SMTPPort)

	if err := es.sendMail(ctx, addr, auth, from, []string{recipient}, message); err != nil {
		return apperr.NewNotificationError(recipient, err)
	}

	logger.Info().
		Str("to", recipient).
		Str("subject", subject).
		Msg("Notification email sent")
	return nil
}

// deliver runs one SMTP conversation. The connection deadline is the
// configured send timeout or the context deadline, whichever comes first,
// and cancelling ctx closes the connection.
func (es *EmailSender) deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	timeout := es.config.SendTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := es.session(ctx, timeout, addr, a, from, to, msg)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("smtp send aborted: %w: %v", ctx.Err(), err)
	}
	return err
}

func (es *EmailSender) session(ctx context.Context, timeout time.Duration, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set smtp deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	return converse(conn, es.config.SMTPHost, a, from, to, msg)
}

func converse(conn net.Conn, host string, a smtp.Auth, from string, to []string, msg []byte) error {
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp server does not support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end data: %w", err)
	}
	return c.Quit()
}

func buildMessage(from, to, subject, htmlBody string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("UTF-8", subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// LogSender writes notifications to the log instead of sending them.
// Used when email delivery is disabled.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (LogSender) Send(ctx context.Context, recipient, subject, htmlBody string) error {
	logger.Info().
		Str("to", recipient).
		Str("subject", subject).
		Int("body_bytes", len(htmlBody)).
		Msg("Email disabled, notification logged only")
	return nil
}

// NewSender picks the SMTP sender when email is enabled
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.Enabled {
		return NewLogSender()
	}
	return NewEmailSender(cfg)
}
