package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDevice = Device{PublicKey: "PK1", BrowserName: "Firefox", OSName: "Linux"}

func TestSessionTransitions(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	guest := NewGuestSession(testDevice)
	assert.Equal(t, StateGuest, guest.State())
	assert.Equal(t, "PK1", guest.Key())

	temp, err := BeginLogin(guest, "beef", now)
	require.NoError(t, err)
	assert.Equal(t, "beef", temp.KHex)
	assert.Equal(t, now, temp.CreatedAt)
	assert.Equal(t, testDevice, temp.Client())

	active, err := CompleteLogin(temp)
	require.NoError(t, err)
	assert.Equal(t, StateActive, active.State())
	assert.Equal(t, testDevice, active.Client())

	direct, err := Fulfill(guest)
	require.NoError(t, err)
	assert.Equal(t, active, direct)
}

func TestInvalidTransitions(t *testing.T) {
	now := time.Now()
	guest := NewGuestSession(testDevice)
	temp := TempSession{Device: testDevice, KHex: "aa", CreatedAt: now}
	active := ActiveSession{Device: testDevice}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"begin login from temp", func() error { _, err := BeginLogin(temp, "bb", now); return err }},
		{"begin login from active", func() error { _, err := BeginLogin(active, "bb", now); return err }},
		{"complete login from guest", func() error { _, err := CompleteLogin(guest); return err }},
		{"complete login from active", func() error { _, err := CompleteLogin(active); return err }},
		{"fulfill from temp", func() error { _, err := Fulfill(temp); return err }},
		{"fulfill from active", func() error { _, err := Fulfill(active); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), ErrSessionInUse)
		})
	}
}

// Every session reachable through the transition functions only moves up
// the Guest < Temp < Active order.
func TestSessionMonotonicity(t *testing.T) {
	now := time.Now()
	sessions := []Session{
		NewGuestSession(testDevice),
		TempSession{Device: testDevice, KHex: "aa", CreatedAt: now},
		ActiveSession{Device: testDevice},
	}
	step := func(s Session) []Session {
		var out []Session
		if n, err := BeginLogin(s, "cc", now); err == nil {
			out = append(out, n)
		}
		if n, err := CompleteLogin(s); err == nil {
			out = append(out, n)
		}
		if n, err := Fulfill(s); err == nil {
			out = append(out, n)
		}
		return out
	}
	for _, s := range sessions {
		for _, next := range step(s) {
			assert.Greater(t, int(next.State()), int(s.State()), "%s -> %s", s.State(), next.State())
			assert.True(t, CanReplace(s, next))
			assert.Equal(t, s.Key(), next.Key())
		}
	}

	assert.False(t, CanReplace(ActiveSession{Device: testDevice}, NewGuestSession(testDevice)))
	assert.False(t, CanReplace(TempSession{Device: testDevice}, NewGuestSession(testDevice)))
	assert.False(t, CanReplace(NewGuestSession(testDevice), NewGuestSession(testDevice)))
	other := testDevice
	other.PublicKey = "PK2"
	assert.False(t, CanReplace(NewGuestSession(testDevice), ActiveSession{Device: other}))
}

func TestTempSessionExpired(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := TempSession{Device: testDevice, KHex: "aa", CreatedAt: created}

	assert.False(t, s.Expired(created.Add(4*time.Minute), 5*time.Minute))
	assert.True(t, s.Expired(created.Add(6*time.Minute), 5*time.Minute))
	assert.False(t, s.Expired(created.Add(24*time.Hour), 0))
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "Guest", StateGuest.String())
	assert.Equal(t, "Temp", StateTemp.String())
	assert.Equal(t, "Active", StateActive.String())
	assert.Equal(t, "SessionState(7)", SessionState(7).String())
}
