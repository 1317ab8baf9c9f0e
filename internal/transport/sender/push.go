package sender

import (
	"context"
	"fmt"

	"gymnotifier/internal/entity"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// PushSink delivers push notifications through the club's Telegram bot.
// Members link a chat id from the mobile app.
type PushSink struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
}

func NewPushSink(botToken string, log *zap.Logger) (*PushSink, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("sender.NewPushSink: create bot: %w", err)
	}

	log.Info("push sink initialized", zap.String("bot_username", bot.Self.UserName))

	return &PushSink{bot: bot, log: log}, nil
}

func (s *PushSink) Send(ctx context.Context, msg entity.DeliveryMessage) error {
	const op = "sender.PushSink.Send"

	if msg.TelegramChatID == 0 {
		return fmt.Errorf("%s: recipient has no linked chat", op)
	}

	text := fmt.Sprintf("<b>%s</b>\n%s", msg.Title, msg.Body)
	if msg.Link != "" {
		text += "\n" + msg.Link
	}

	out := tgbotapi.NewMessage(msg.TelegramChatID, text)
	out.ParseMode = tgbotapi.ModeHTML

	if _, err := s.bot.Send(out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("push sent",
		zap.String("notification_id", msg.NotificationID.String()),
		zap.Int64("chat_id", msg.TelegramChatID),
	)

	return nil
}
