package account

import "encoding/json"

// Client-facing JSON. Every variant carries a "type" discriminator next to
// its fields. Credentials and verification codes are never written here.

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (u GuestUser) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string       `json:"type"`
		ID          int          `json:"id"`
		Permissions []Permission `json:"permissions"`
	}{"Guest", u.ID, orEmpty(u.Permissions)})
}

func (u BlankUser) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string       `json:"type"`
		ID          int          `json:"id"`
		Permissions []Permission `json:"permissions"`
		Contact     Contact      `json:"contact"`
	}{"Blank", u.ID, orEmpty(u.Permissions), u.Contact})
}

type publicUserData struct {
	Login string `json:"login"`
}

func (u ActiveUser) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string           `json:"type"`
		ID          int              `json:"id"`
		Permissions []Permission     `json:"permissions"`
		Contacts    []Contact        `json:"contacts"`
		Data        publicUserData   `json:"data"`
		PublicItems []PublicItemType `json:"publicItems"`
	}{"Active", u.ID, orEmpty(u.Permissions), orEmpty(u.Contacts), publicUserData{Login: u.Data.Login}, orEmpty(u.PublicItems)})
}

func (c UnconfirmedContact) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string      `json:"type"`
		ID   int         `json:"id"`
		Data ContactData `json:"data"`
	}{"Unconfirmed", c.ID, c.Data})
}

func (c ActiveContact) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string      `json:"type"`
		ID   int         `json:"id"`
		Data ContactData `json:"data"`
	}{"Active", c.ID, c.Data})
}

func (d EmailData) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         ContactKind `json:"type"`
		EmailAddress string      `json:"emailAddress"`
	}{KindEmail, d.EmailAddress})
}

func (d TelegramData) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       ContactKind `json:"type"`
		TelegramID int64       `json:"telegramId"`
		FirstName  string      `json:"firstName"`
		Username   string      `json:"username,omitempty"`
	}{KindTelegram, d.TelegramID, d.FirstName, d.Username})
}
