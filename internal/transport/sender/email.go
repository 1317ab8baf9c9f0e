package sender

import (
	"context"
	"fmt"

	"gymnotifier/internal/entity"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type EmailSink struct {
	dialer *gomail.Dialer
	from   string
	log    *zap.Logger
}

func NewEmailSink(host string, port int, username, password, from string, log *zap.Logger) *EmailSink {
	return &EmailSink{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		log:    log,
	}
}

func (s *EmailSink) Send(ctx context.Context, msg entity.DeliveryMessage) error {
	const op = "sender.EmailSink.Send"

	if msg.Email == "" {
		return fmt.Errorf("%s: recipient has no email address", op)
	}

	body := msg.Body
	if msg.Link != "" {
		body = fmt.Sprintf("%s<br><a href=%q>%s</a>", body, msg.Link, msg.Link)
	}

	email := gomail.NewMessage()
	email.SetHeader("From", s.from)
	email.SetHeader("To", msg.Email)
	email.SetHeader("Subject", msg.Title)
	email.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("email sent",
		zap.String("notification_id", msg.NotificationID.String()),
		zap.String("to", msg.Email),
	)

	return nil
}
