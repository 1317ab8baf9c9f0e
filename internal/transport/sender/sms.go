package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gymnotifier/internal/entity"

	"go.uber.org/zap"
)

// SMSSink posts to an external SMS gateway. The gateway itself is an
// out-of-process collaborator; this is just the hand-off.
type SMSSink struct {
	client     *http.Client
	gatewayURL string
	apiKey     string
	from       string
	log        *zap.Logger
}

func NewSMSSink(gatewayURL, apiKey, from string, timeout time.Duration, log *zap.Logger) *SMSSink {
	return &SMSSink{
		client:     &http.Client{Timeout: timeout},
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		from:       from,
		log:        log,
	}
}

type smsPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *SMSSink) Send(ctx context.Context, msg entity.DeliveryMessage) error {
	const op = "sender.SMSSink.Send"

	if msg.Phone == "" {
		return fmt.Errorf("%s: recipient has no phone number", op)
	}

	body, err := json.Marshal(smsPayload{From: s.from, To: msg.Phone, Text: msg.Title + ": " + msg.Body})
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: gateway returned %d", op, resp.StatusCode)
	}

	s.log.Info("sms sent",
		zap.String("notification_id", msg.NotificationID.String()),
		zap.String("to", msg.Phone),
	)

	return nil
}
