package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/andrewkuryan/brownie/account"
)

type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (r *recordingNotifier) SendVerification(_ context.Context, c account.ContactData, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codes == nil {
		r.codes = map[string]string{}
	}
	r.codes[c.UniqueKey().String()] = code
	return r.err
}

func (r *recordingNotifier) get(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.codes[key]
}

func TestDispatcherRoutesByKind(t *testing.T) {
	email := &recordingNotifier{}
	tg := &recordingNotifier{}
	var logs bytes.Buffer
	d := NewDispatcher(email, tg, slog.New(slog.NewTextHandler(&logs, nil)))

	require.NoError(t, d.SendVerification(context.Background(), account.NewEmailData("a@example.com"), "111111"))
	require.NoError(t, d.SendVerification(context.Background(), account.TelegramData{TelegramID: 5, FirstName: "T"}, "222222"))
	d.Wait()

	assert.Equal(t, "111111", email.get("Email:a@example.com"))
	assert.Equal(t, "222222", tg.get("Telegram:5"))
	assert.Empty(t, email.get("Telegram:5"))
}

func TestDispatcherLogsFailures(t *testing.T) {
	var logs bytes.Buffer
	failing := &recordingNotifier{err: errors.New("smtp down")}
	d := NewDispatcher(failing, nil, slog.New(slog.NewTextHandler(&logs, nil)))

	err := d.SendVerification(context.Background(), account.NewEmailData("a@example.com"), "333333")
	require.NoError(t, err, "delivery errors are not returned to the caller")
	d.Wait()
	assert.Contains(t, logs.String(), "verification delivery failed")
	assert.Contains(t, logs.String(), "smtp down")
}

func TestLogNotifierFallback(t *testing.T) {
	var logs bytes.Buffer
	d := NewDispatcher(nil, nil, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, d.SendVerification(context.Background(), account.TelegramData{TelegramID: 9}, "444444"))
	d.Wait()
	assert.Contains(t, logs.String(), "444444")
}

type fakeMailer struct {
	sent []*mail.Msg
}

func (f *fakeMailer) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return nil
}

func TestEmailSender(t *testing.T) {
	fake := &fakeMailer{}
	s := &EmailSender{
		cfg:    SMTPConfig{Server: "smtp.example.com", Port: 465, SenderName: "Brownie", SenderEmail: "noreply@example.com"},
		client: fake,
	}
	require.NoError(t, s.SendVerification(context.Background(), account.NewEmailData("bob@example.com"), "556677"))
	require.Len(t, fake.sent, 1)

	var buf bytes.Buffer
	_, err := fake.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "bob@example.com")
	assert.Contains(t, raw, "noreply@example.com")
	assert.Contains(t, raw, verificationSubject)
	assert.Contains(t, raw, "556677")

	err = s.SendVerification(context.Background(), account.TelegramData{TelegramID: 1}, "1")
	assert.ErrorIs(t, err, ErrUnsupportedContact)

	assert.True(t, s.cfg.Enabled())
	assert.False(t, SMTPConfig{}.Enabled())
}

type fakeBot struct {
	sent []tgbotapi.Chattable
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifier(t *testing.T) {
	bot := &fakeBot{}
	n := &TelegramNotifier{bot: bot}

	require.NoError(t, n.SendVerification(context.Background(), account.TelegramData{TelegramID: 721992046, FirstName: "M"}, "778899"))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(721992046), msg.ChatID)
	assert.Equal(t, "Your verification code:\n778899", msg.Text)

	err := n.SendVerification(context.Background(), account.NewEmailData("x@example.com"), "1")
	assert.ErrorIs(t, err, ErrUnsupportedContact)
}

