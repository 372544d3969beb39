package account

import (
	"fmt"
	"math/big"
	"slices"
)

// Permission is a capability granted to a user.
type Permission string

const (
	BrowseOwnPosts Permission = "BrowseOwnPosts"
	CreatePosts    Permission = "CreatePosts"
	// BrowseAllPosts extends BrowseOwnPosts.
	BrowseAllPosts Permission = "BrowseAllPosts"
)

// DefaultPermissions are granted to every registered user.
var DefaultPermissions = []Permission{BrowseOwnPosts, CreatePosts}

// Parent returns the permission p refines, if any.
func (p Permission) Parent() (Permission, bool) {
	if p == BrowseAllPosts {
		return BrowseOwnPosts, true
	}
	return "", false
}

// PublicItemType selects which parts of an active user are visible to others.
type PublicItemType string

const (
	PublicID       PublicItemType = "ID"
	PublicLogin    PublicItemType = "LOGIN"
	PublicContacts PublicItemType = "CONTACTS"
)

// DefaultPublicItems are published when a user completes registration.
var DefaultPublicItems = []PublicItemType{PublicID, PublicLogin}

// Credentials is the SRP material stored for a login. No password or
// password hash is ever stored.
type Credentials struct {
	Salt     string
	Verifier *big.Int
}

// UserData is the registered identity of an active user.
type UserData struct {
	Login       string
	Credentials Credentials
}

// User is GuestUser, BlankUser or ActiveUser.
type User interface {
	UserID() int
	UserPermissions() []Permission
	isUser()
}

// GuestUser is created together with a device's first session.
type GuestUser struct {
	ID          int
	Permissions []Permission
}

// BlankUser has registered one contact that is not necessarily confirmed yet.
type BlankUser struct {
	ID          int
	Permissions []Permission
	Contact     Contact
}

// ActiveUser is a registered user with login credentials.
type ActiveUser struct {
	ID          int
	Permissions []Permission
	Contacts    []Contact
	Data        UserData
	PublicItems []PublicItemType
}

func (u GuestUser) UserID() int                    { return u.ID }
func (u GuestUser) UserPermissions() []Permission  { return u.Permissions }
func (GuestUser) isUser()                          {}
func (u BlankUser) UserID() int                    { return u.ID }
func (u BlankUser) UserPermissions() []Permission  { return u.Permissions }
func (BlankUser) isUser()                          {}
func (u ActiveUser) UserID() int                   { return u.ID }
func (u ActiveUser) UserPermissions() []Permission { return u.Permissions }
func (ActiveUser) isUser()                         {}

// AddContact attaches a contact to u. A guest becomes blank; an active user
// gains an additional contact.
func AddContact(u User, c Contact) (User, error) {
	switch u := u.(type) {
	case GuestUser:
		return BlankUser{ID: u.ID, Permissions: u.Permissions, Contact: c}, nil
	case ActiveUser:
		u.Contacts = append(slices.Clone(u.Contacts), c)
		return u, nil
	default:
		return nil, fmt.Errorf("can't add contact to this user: %w", ErrInvalidTransition)
	}
}

// FulfillUser completes registration of a blank user.
func FulfillUser(u User, data UserData) (ActiveUser, error) {
	b, ok := u.(BlankUser)
	if !ok {
		return ActiveUser{}, fmt.Errorf("user cannot be fulfilled: %w", ErrInvalidTransition)
	}
	perms := b.Permissions
	if len(perms) == 0 {
		perms = slices.Clone(DefaultPermissions)
	}
	return ActiveUser{
		ID:          b.ID,
		Permissions: perms,
		Contacts:    []Contact{b.Contact},
		Data:        data,
		PublicItems: slices.Clone(DefaultPublicItems),
	}, nil
}

// UnconfirmedContactOf returns the user's pending contact with the given id.
func UnconfirmedContactOf(u User, contactID int) (UnconfirmedContact, bool) {
	switch u := u.(type) {
	case BlankUser:
		if c, ok := u.Contact.(UnconfirmedContact); ok && c.ID == contactID {
			return c, true
		}
	case ActiveUser:
		for _, c := range u.Contacts {
			if c, ok := c.(UnconfirmedContact); ok && c.ID == contactID {
				return c, true
			}
		}
	}
	return UnconfirmedContact{}, false
}

// ContactIDs lists the contacts attached to u.
func ContactIDs(u User) []int {
	switch u := u.(type) {
	case BlankUser:
		return []int{u.Contact.ContactID()}
	case ActiveUser:
		ids := make([]int, 0, len(u.Contacts))
		for _, c := range u.Contacts {
			ids = append(ids, c.ContactID())
		}
		return ids
	default:
		return nil
	}
}

// PublicItem is one published attribute of a user.
type PublicItem struct {
	Type  PublicItemType `json:"type"`
	Value any            `json:"value"`
}

// PublicInfo projects the attributes u chose to publish.
func (u ActiveUser) PublicInfo() []PublicItem {
	items := make([]PublicItem, 0, len(u.PublicItems))
	for _, t := range u.PublicItems {
		switch t {
		case PublicID:
			items = append(items, PublicItem{Type: t, Value: u.ID})
		case PublicLogin:
			items = append(items, PublicItem{Type: t, Value: u.Data.Login})
		case PublicContacts:
			confirmed := []Contact{}
			for _, c := range u.Contacts {
				if c.Confirmed() {
					confirmed = append(confirmed, c)
				}
			}
			items = append(items, PublicItem{Type: t, Value: confirmed})
		}
	}
	return items
}
