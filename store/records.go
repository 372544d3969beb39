package store

import (
	"fmt"
	"math/big"
	"time"

	"github.com/andrewkuryan/brownie/account"
)

// Stored forms. Unlike the client JSON in package account these keep
// credentials and verification codes.

const (
	userGuest  = "Guest"
	userBlank  = "Blank"
	userActive = "Active"
)

type sessionRecord struct {
	State     string         `json:"state"`
	Device    account.Device `json:"device"`
	KHex      string         `json:"kHex,omitempty"`
	CreatedAt time.Time      `json:"createdAt,omitzero"`
	UserID    int            `json:"userId"`
}

func sessionRecordOf(s account.Session, userID int) sessionRecord {
	rec := sessionRecord{State: s.State().String(), Device: s.Client(), UserID: userID}
	if t, ok := s.(account.TempSession); ok {
		rec.KHex = t.KHex
		rec.CreatedAt = t.CreatedAt
	}
	return rec
}

func (r sessionRecord) session() (account.Session, error) {
	switch r.State {
	case account.StateGuest.String():
		return account.GuestSession{Device: r.Device}, nil
	case account.StateTemp.String():
		return account.TempSession{Device: r.Device, KHex: r.KHex, CreatedAt: r.CreatedAt}, nil
	case account.StateActive.String():
		return account.ActiveSession{Device: r.Device}, nil
	default:
		return nil, fmt.Errorf("unknown session state %q", r.State)
	}
}

// matches reports whether the stored session is still the one the caller
// observed.
func (r sessionRecord) matches(s account.Session) bool {
	if r.State != s.State().String() || r.Device != s.Client() {
		return false
	}
	if t, ok := s.(account.TempSession); ok {
		return r.KHex == t.KHex
	}
	return true
}

type userRecord struct {
	Type        string                   `json:"type"`
	ID          int                      `json:"id"`
	Permissions []account.Permission     `json:"permissions,omitempty"`
	ContactIDs  []int                    `json:"contactIds,omitempty"`
	Login       string                   `json:"login,omitempty"`
	Salt        string                   `json:"salt,omitempty"`
	Verifier    string                   `json:"verifier,omitempty"`
	PublicItems []account.PublicItemType `json:"publicItems,omitempty"`
}

func userRecordOf(u account.User) userRecord {
	rec := userRecord{ID: u.UserID(), Permissions: u.UserPermissions(), ContactIDs: account.ContactIDs(u)}
	switch u := u.(type) {
	case account.GuestUser:
		rec.Type = userGuest
	case account.BlankUser:
		rec.Type = userBlank
	case account.ActiveUser:
		rec.Type = userActive
		rec.Login = u.Data.Login
		rec.Salt = u.Data.Credentials.Salt
		if u.Data.Credentials.Verifier != nil {
			rec.Verifier = u.Data.Credentials.Verifier.Text(16)
		}
		rec.PublicItems = u.PublicItems
	}
	return rec
}

func userType(u account.User) string {
	return userRecordOf(u).Type
}

// user rebuilds the user from its record and its already loaded contacts,
// given in ContactIDs order.
func (r userRecord) user(contacts []account.Contact) (account.User, error) {
	switch r.Type {
	case userGuest:
		return account.GuestUser{ID: r.ID, Permissions: r.Permissions}, nil
	case userBlank:
		if len(contacts) != 1 {
			return nil, fmt.Errorf("blank user %d has %d contacts", r.ID, len(contacts))
		}
		return account.BlankUser{ID: r.ID, Permissions: r.Permissions, Contact: contacts[0]}, nil
	case userActive:
		verifier, ok := new(big.Int).SetString(r.Verifier, 16)
		if !ok {
			return nil, fmt.Errorf("active user %d has malformed verifier", r.ID)
		}
		return account.ActiveUser{
			ID:          r.ID,
			Permissions: r.Permissions,
			Contacts:    contacts,
			Data: account.UserData{
				Login:       r.Login,
				Credentials: account.Credentials{Salt: r.Salt, Verifier: verifier},
			},
			PublicItems: r.PublicItems,
		}, nil
	default:
		return nil, fmt.Errorf("unknown user type %q", r.Type)
	}
}

type contactRecord struct {
	Confirmed        bool                `json:"confirmed"`
	ID               int                 `json:"id"`
	Kind             account.ContactKind `json:"kind"`
	EmailAddress     string              `json:"emailAddress,omitempty"`
	TelegramID       int64               `json:"telegramId,omitempty"`
	FirstName        string              `json:"firstName,omitempty"`
	Username         string              `json:"username,omitempty"`
	VerificationCode string              `json:"verificationCode,omitempty"`
}

func contactRecordOf(c account.Contact) contactRecord {
	rec := contactRecord{ID: c.ContactID(), Confirmed: c.Confirmed()}
	switch d := c.ContactData().(type) {
	case account.EmailData:
		rec.Kind = account.KindEmail
		rec.EmailAddress = d.EmailAddress
	case account.TelegramData:
		rec.Kind = account.KindTelegram
		rec.TelegramID = d.TelegramID
		rec.FirstName = d.FirstName
		rec.Username = d.Username
	}
	if u, ok := c.(account.UnconfirmedContact); ok {
		rec.VerificationCode = u.VerificationCode
	}
	return rec
}

func (r contactRecord) contact() (account.Contact, error) {
	var data account.ContactData
	switch r.Kind {
	case account.KindEmail:
		data = account.EmailData{EmailAddress: r.EmailAddress}
	case account.KindTelegram:
		data = account.TelegramData{TelegramID: r.TelegramID, FirstName: r.FirstName, Username: r.Username}
	default:
		return nil, fmt.Errorf("unknown contact kind %q", r.Kind)
	}
	if r.Confirmed {
		return account.ActiveContact{ID: r.ID, Data: data}, nil
	}
	return account.UnconfirmedContact{ID: r.ID, Data: data, VerificationCode: r.VerificationCode}, nil
}

type loginRecord struct {
	UserID int `json:"userId"`
}
