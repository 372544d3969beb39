package account

import (
	"crypto/subtle"
	"fmt"
	"strconv"

	"github.com/andrewkuryan/brownie/internal/util"
)

// VerificationCodeLength is the number of digits in a contact verification code.
const VerificationCodeLength = 6

// ContactKind names the channel a contact is reached through.
type ContactKind string

const (
	KindEmail    ContactKind = "Email"
	KindTelegram ContactKind = "Telegram"
)

// UniqueKey identifies the real-world endpoint of a contact. Two contacts
// with equal keys point at the same mailbox or Telegram account.
type UniqueKey struct {
	Kind  ContactKind
	Value string
}

func (k UniqueKey) String() string {
	return string(k.Kind) + ":" + k.Value
}

// ContactData is EmailData or TelegramData.
type ContactData interface {
	Kind() ContactKind
	UniqueKey() UniqueKey
	isContactData()
}

// EmailData is an email address. Addresses are stored normalised.
type EmailData struct {
	EmailAddress string
}

// TelegramData is a Telegram account.
type TelegramData struct {
	TelegramID int64
	FirstName  string
	Username   string
}

func (EmailData) Kind() ContactKind    { return KindEmail }
func (TelegramData) Kind() ContactKind { return KindTelegram }

func (d EmailData) UniqueKey() UniqueKey {
	return UniqueKey{Kind: KindEmail, Value: d.EmailAddress}
}

func (d TelegramData) UniqueKey() UniqueKey {
	return UniqueKey{Kind: KindTelegram, Value: strconv.FormatInt(d.TelegramID, 10)}
}

func (EmailData) isContactData()    {}
func (TelegramData) isContactData() {}

// NewEmailData normalises an address for storage and lookup.
func NewEmailData(address string) EmailData {
	return EmailData{EmailAddress: util.Normalize(address)}
}

// Contact is UnconfirmedContact or ActiveContact.
type Contact interface {
	ContactID() int
	ContactData() ContactData
	Confirmed() bool
	isContact()
}

// UnconfirmedContact waits for the owner to echo VerificationCode back.
type UnconfirmedContact struct {
	ID               int
	Data             ContactData
	VerificationCode string
}

// ActiveContact is a confirmed contact.
type ActiveContact struct {
	ID   int
	Data ContactData
}

func (c UnconfirmedContact) ContactID() int           { return c.ID }
func (c UnconfirmedContact) ContactData() ContactData { return c.Data }
func (UnconfirmedContact) Confirmed() bool            { return false }
func (UnconfirmedContact) isContact()                 {}

func (c ActiveContact) ContactID() int           { return c.ID }
func (c ActiveContact) ContactData() ContactData { return c.Data }
func (ActiveContact) Confirmed() bool            { return true }
func (ActiveContact) isContact()                 {}

// NewVerificationCode returns a random numeric code.
func NewVerificationCode() (string, error) {
	return util.RandomDigits(VerificationCodeLength)
}

// ConfirmContact checks code against an unconfirmed contact and returns its
// confirmed form.
func ConfirmContact(c Contact, code string) (ActiveContact, error) {
	u, ok := c.(UnconfirmedContact)
	if !ok {
		return ActiveContact{}, fmt.Errorf("contact %d already confirmed: %w", c.ContactID(), ErrInvalidTransition)
	}
	if subtle.ConstantTimeCompare([]byte(u.VerificationCode), []byte(code)) != 1 {
		return ActiveContact{}, fmt.Errorf("%w: %s", ErrWrongVerificationCode, code)
	}
	return ActiveContact{ID: u.ID, Data: u.Data}, nil
}

// WithNewCode returns c with a freshly generated verification code.
func (c UnconfirmedContact) WithNewCode() (UnconfirmedContact, error) {
	code, err := NewVerificationCode()
	if err != nil {
		return UnconfirmedContact{}, err
	}
	c.VerificationCode = code
	return c, nil
}
