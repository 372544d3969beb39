package notify

import (
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/andrewkuryan/brownie/account"
)

//go:embed templates/verification.html
var templateFS embed.FS

var verificationTemplate = template.Must(template.ParseFS(templateFS, "templates/verification.html"))

const verificationSubject = "Verify your email address"

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Server      string
	Port        int
	Username    string
	Password    string
	SenderName  string
	SenderEmail string
}

// Enabled reports whether a server is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Server != "" && c.SenderEmail != ""
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailSender sends HTML verification mails over implicit-TLS SMTP.
type EmailSender struct {
	cfg    SMTPConfig
	client mailSender
}

// NewEmailSender creates a sender for cfg. No connection is made until the
// first message.
func NewEmailSender(cfg SMTPConfig) (*EmailSender, error) {
	client, err := mail.NewClient(cfg.Server,
		mail.WithPort(cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}
	return &EmailSender{cfg: cfg, client: client}, nil
}

func (s *EmailSender) message(to, code string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.SenderName, s.cfg.SenderEmail); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(verificationSubject)
	data := struct{ VerificationCode string }{code}
	if err := m.SetBodyHTMLTemplate(verificationTemplate, data); err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}
	return m, nil
}

// SendVerification mails code to an email contact.
func (s *EmailSender) SendVerification(ctx context.Context, contact account.ContactData, code string) error {
	email, ok := contact.(account.EmailData)
	if !ok {
		return fmt.Errorf("email sender got %T: %w", contact, ErrUnsupportedContact)
	}
	m, err := s.message(email.EmailAddress, code)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}
