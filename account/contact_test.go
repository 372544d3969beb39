package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmContact(t *testing.T) {
	pending := UnconfirmedContact{ID: 1, Data: NewEmailData("a@example.com"), VerificationCode: "123456"}

	_, err := ConfirmContact(pending, "654321")
	assert.ErrorIs(t, err, ErrWrongVerificationCode)

	confirmed, err := ConfirmContact(pending, "123456")
	require.NoError(t, err)
	assert.Equal(t, ActiveContact{ID: 1, Data: pending.Data}, confirmed)
	assert.True(t, confirmed.Confirmed())

	_, err = ConfirmContact(confirmed, "123456")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVerificationCode(t *testing.T) {
	code, err := NewVerificationCode()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)

	pending := UnconfirmedContact{ID: 1, Data: NewEmailData("a@example.com"), VerificationCode: "x"}
	renewed, err := pending.WithNewCode()
	require.NoError(t, err)
	assert.Equal(t, pending.ID, renewed.ID)
	assert.Regexp(t, `^[0-9]{6}$`, renewed.VerificationCode)
}

func TestUniqueKey(t *testing.T) {
	assert.Equal(t, NewEmailData("  Alice@Example.com ").UniqueKey(), UniqueKey{Kind: KindEmail, Value: "Alice@Example.com"})
	assert.Equal(t, "Telegram:721992046", TelegramData{TelegramID: 721992046, FirstName: "M"}.UniqueKey().String())
	assert.NotEqual(t,
		EmailData{EmailAddress: "1"}.UniqueKey(),
		TelegramData{TelegramID: 1}.UniqueKey())
}
