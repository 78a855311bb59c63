package notifier

import (
	"context"
	"net/smtp"
	"time"
)

// SetSendMail swaps the SMTP call for tests
func (es *EmailSender) SetSendMail(fn func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error) {
	es.sendMail = fn
}

func (es *EmailSender) SetClock(now func() time.Time) {
	es.now = now
}
