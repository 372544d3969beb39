// Package notify delivers contact verification codes by email or Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andrewkuryan/brownie/account"
)

// ErrUnsupportedContact is returned when no channel can reach a contact.
var ErrUnsupportedContact = errors.New("no notifier for contact")

// Notifier sends a verification code to a contact.
type Notifier interface {
	SendVerification(ctx context.Context, contact account.ContactData, code string) error
}

// sendTimeout bounds a single background delivery.
const sendTimeout = 30 * time.Second

// Dispatcher routes codes to the notifier for the contact's channel and
// delivers them in the background. Delivery failures are logged, never
// returned to the request that triggered them.
type Dispatcher struct {
	email    Notifier
	telegram Notifier
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher builds a Dispatcher. A nil notifier falls back to logging
// the code.
func NewDispatcher(email, telegram Notifier, logger *slog.Logger) *Dispatcher {
	logger = logger.With("component", "notify")
	if email == nil {
		email = NewLogNotifier(logger)
	}
	if telegram == nil {
		telegram = NewLogNotifier(logger)
	}
	return &Dispatcher{email: email, telegram: telegram, logger: logger}
}

func (d *Dispatcher) notifierFor(contact account.ContactData) (Notifier, error) {
	switch contact.(type) {
	case account.EmailData:
		return d.email, nil
	case account.TelegramData:
		return d.telegram, nil
	default:
		return nil, fmt.Errorf("%T: %w", contact, ErrUnsupportedContact)
	}
}

// SendVerification schedules delivery and returns immediately. Only a
// contact that no channel can reach is reported as an error.
func (d *Dispatcher) SendVerification(_ context.Context, contact account.ContactData, code string) error {
	n, err := d.notifierFor(contact)
	if err != nil {
		return err
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := n.SendVerification(ctx, contact, code); err != nil {
			d.logger.Error("verification delivery failed",
				"kind", contact.Kind(),
				"error", err,
			)
		}
	}()
	return nil
}

// Wait blocks until scheduled deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogNotifier writes codes to the log instead of delivering them. It is
// used when a channel is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerification(_ context.Context, contact account.ContactData, code string) error {
	n.logger.Info("verification code (delivery not configured)",
		"kind", contact.Kind(),
		"contact", contact.UniqueKey().Value,
		"code", code,
	)
	return nil
}
