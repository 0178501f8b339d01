package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть API бота, нужная для отправки. *bot.Bot её реализует.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier отправляет события в чат операторов
type TelegramNotifier struct {
	sender  MessageSender
	chatID  int64
	loc     *time.Location
	timeout time.Duration
	logger  *zap.Logger
}

// NewTelegramBot создаёт клиента бота без обработчиков входящих сообщений
func NewTelegramBot(token string) (*bot.Bot, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return b, nil
}

func NewTelegramNotifier(sender MessageSender, chatID int64, loc *time.Location, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender:  sender,
		chatID:  chatID,
		loc:     loc,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, event Event) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   FormatEvent(event, n.loc),
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.Debug("Telegram notification sent",
		zap.String("event", string(event.Kind)),
		zap.String("booking_id", event.Booking.ID))
	return nil
}
