package account

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials() Credentials {
	return Credentials{Salt: "abcd", Verifier: big.NewInt(123456789)}
}

func TestAddContact(t *testing.T) {
	contact := UnconfirmedContact{ID: 3, Data: NewEmailData("a@example.com"), VerificationCode: "123456"}

	u, err := AddContact(GuestUser{ID: 1}, contact)
	require.NoError(t, err)
	blank, ok := u.(BlankUser)
	require.True(t, ok)
	assert.Equal(t, 1, blank.ID)
	assert.Equal(t, contact, blank.Contact)

	_, err = AddContact(blank, contact)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	active := ActiveUser{ID: 2, Contacts: []Contact{ActiveContact{ID: 1, Data: NewEmailData("b@example.com")}}}
	u, err = AddContact(active, contact)
	require.NoError(t, err)
	assert.Len(t, u.(ActiveUser).Contacts, 2)
	assert.Len(t, active.Contacts, 1, "original user is not modified")
}

func TestFulfillUser(t *testing.T) {
	contact := ActiveContact{ID: 4, Data: NewEmailData("c@example.com")}
	data := UserData{Login: "alice", Credentials: testCredentials()}

	active, err := FulfillUser(BlankUser{ID: 5, Contact: contact}, data)
	require.NoError(t, err)
	assert.Equal(t, 5, active.ID)
	assert.Equal(t, []Contact{contact}, active.Contacts)
	assert.Equal(t, DefaultPermissions, active.Permissions)
	assert.Equal(t, []PublicItemType{PublicID, PublicLogin}, active.PublicItems)
	assert.Equal(t, data, active.Data)

	_, err = FulfillUser(GuestUser{ID: 5}, data)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = FulfillUser(active, data)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUnconfirmedContactOf(t *testing.T) {
	pending := UnconfirmedContact{ID: 7, Data: NewEmailData("d@example.com"), VerificationCode: "000111"}
	confirmed := ActiveContact{ID: 8, Data: NewEmailData("e@example.com")}

	c, ok := UnconfirmedContactOf(BlankUser{ID: 1, Contact: pending}, 7)
	assert.True(t, ok)
	assert.Equal(t, pending, c)

	_, ok = UnconfirmedContactOf(BlankUser{ID: 1, Contact: pending}, 8)
	assert.False(t, ok)

	active := ActiveUser{ID: 2, Contacts: []Contact{confirmed, pending}}
	c, ok = UnconfirmedContactOf(active, 7)
	assert.True(t, ok)
	assert.Equal(t, pending, c)
	_, ok = UnconfirmedContactOf(active, 8)
	assert.False(t, ok)

	_, ok = UnconfirmedContactOf(GuestUser{ID: 3}, 7)
	assert.False(t, ok)

	assert.Equal(t, []int{8, 7}, ContactIDs(active))
	assert.Nil(t, ContactIDs(GuestUser{}))
}

func TestPublicInfo(t *testing.T) {
	u := ActiveUser{
		ID: 9,
		Contacts: []Contact{
			ActiveContact{ID: 1, Data: NewEmailData("f@example.com")},
			UnconfirmedContact{ID: 2, Data: NewEmailData("g@example.com"), VerificationCode: "999999"},
		},
		Data:        UserData{Login: "bob", Credentials: testCredentials()},
		PublicItems: []PublicItemType{PublicID, PublicLogin, PublicContacts},
	}

	info := u.PublicInfo()
	require.Len(t, info, 3)
	assert.Equal(t, PublicItem{Type: PublicID, Value: 9}, info[0])
	assert.Equal(t, PublicItem{Type: PublicLogin, Value: "bob"}, info[1])
	assert.Equal(t, []Contact{u.Contacts[0]}, info[2].Value)

	raw, err := json.Marshal(info)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"ID","value":9},
		{"type":"LOGIN","value":"bob"},
		{"type":"CONTACTS","value":[{"type":"Active","id":1,"data":{"type":"Email","emailAddress":"f@example.com"}}]}
	]`, string(raw))
}

func TestPermissionParent(t *testing.T) {
	p, ok := BrowseAllPosts.Parent()
	assert.True(t, ok)
	assert.Equal(t, BrowseOwnPosts, p)
	_, ok = CreatePosts.Parent()
	assert.False(t, ok)
}

func TestUserJSON(t *testing.T) {
	raw, err := json.Marshal(GuestUser{ID: 0})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Guest","id":0,"permissions":[]}`, string(raw))

	blank := BlankUser{ID: 1, Contact: UnconfirmedContact{ID: 0, Data: NewEmailData("h@example.com"), VerificationCode: "424242"}}
	raw, err = json.Marshal(blank)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Blank","id":1,"permissions":[],
		"contact":{"type":"Unconfirmed","id":0,"data":{"type":"Email","emailAddress":"h@example.com"}}}`, string(raw))
	assert.NotContains(t, string(raw), "424242")

	active := ActiveUser{
		ID:          2,
		Permissions: DefaultPermissions,
		Contacts:    []Contact{ActiveContact{ID: 5, Data: TelegramData{TelegramID: 42, FirstName: "Ann"}}},
		Data:        UserData{Login: "ann", Credentials: testCredentials()},
		PublicItems: DefaultPublicItems,
	}
	raw, err = json.Marshal(active)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Active","id":2,"permissions":["BrowseOwnPosts","CreatePosts"],
		"contacts":[{"type":"Active","id":5,"data":{"type":"Telegram","telegramId":42,"firstName":"Ann"}}],
		"data":{"login":"ann"},"publicItems":["ID","LOGIN"]}`, string(raw))
	assert.NotContains(t, string(raw), "abcd")
	assert.NotContains(t, string(raw), "verifier")
}
