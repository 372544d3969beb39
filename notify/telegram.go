package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/andrewkuryan/brownie/account"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends verification codes as bot messages.
type TelegramNotifier struct {
	bot telegramSender
}

// NewTelegramNotifier connects to the Bot API with token.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

func verificationText(code string) string {
	return "Your verification code:\n" + code
}

// SendVerification messages code to a Telegram contact.
func (n *TelegramNotifier) SendVerification(ctx context.Context, contact account.ContactData, code string) error {
	tg, ok := contact.(account.TelegramData)
	if !ok {
		return fmt.Errorf("telegram notifier got %T: %w", contact, ErrUnsupportedContact)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(tg.TelegramID, verificationText(code))); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}
