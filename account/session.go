// Package account holds the session, user and contact types of the
// authentication protocol and the state transitions between them.
package account

import (
	"fmt"
	"time"
)

// SessionState orders sessions Guest < Temp < Active.
type SessionState int

const (
	StateGuest SessionState = iota
	StateTemp
	StateActive
)

func (s SessionState) String() string {
	switch s {
	case StateGuest:
		return "Guest"
	case StateTemp:
		return "Temp"
	case StateActive:
		return "Active"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Device identifies the client a session belongs to. PublicKey is the
// base64 PKIX key the client signs requests with and never changes for the
// life of a session.
type Device struct {
	PublicKey   string `json:"publicKey"`
	BrowserName string `json:"browserName"`
	OSName      string `json:"osName"`
}

// Key returns the session key.
func (d Device) Key() string { return d.PublicKey }

// Client returns the device description.
func (d Device) Client() Device { return d }

// Session is one of GuestSession, TempSession or ActiveSession.
type Session interface {
	Key() string
	Client() Device
	State() SessionState
	isSession()
}

// GuestSession is a device seen for the first time.
type GuestSession struct {
	Device
}

// TempSession is a device in the middle of a login handshake.
type TempSession struct {
	Device
	KHex      string
	CreatedAt time.Time
}

// ActiveSession is an authenticated device.
type ActiveSession struct {
	Device
}

func (GuestSession) State() SessionState  { return StateGuest }
func (TempSession) State() SessionState   { return StateTemp }
func (ActiveSession) State() SessionState { return StateActive }

func (GuestSession) isSession()  {}
func (TempSession) isSession()   {}
func (ActiveSession) isSession() {}

// Expired reports whether the handshake is older than ttl. A non-positive
// ttl never expires.
func (s TempSession) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.CreatedAt) > ttl
}

// NewGuestSession returns the session created on first contact.
func NewGuestSession(d Device) GuestSession {
	return GuestSession{Device: d}
}

// BeginLogin moves a Guest session to Temp, attaching the derived key.
func BeginLogin(s Session, kHex string, now time.Time) (TempSession, error) {
	g, ok := s.(GuestSession)
	if !ok {
		return TempSession{}, fmt.Errorf("begin login from %s: %w", s.State(), ErrSessionInUse)
	}
	return TempSession{Device: g.Device, KHex: kHex, CreatedAt: now}, nil
}

// CompleteLogin moves a Temp session to Active once the proof checked out.
func CompleteLogin(s Session) (ActiveSession, error) {
	t, ok := s.(TempSession)
	if !ok {
		return ActiveSession{}, fmt.Errorf("complete login from %s: %w", s.State(), ErrSessionInUse)
	}
	return ActiveSession{Device: t.Device}, nil
}

// Fulfill moves a Guest session straight to Active after registration.
func Fulfill(s Session) (ActiveSession, error) {
	g, ok := s.(GuestSession)
	if !ok {
		return ActiveSession{}, fmt.Errorf("fulfill from %s: %w", s.State(), ErrSessionInUse)
	}
	return ActiveSession{Device: g.Device}, nil
}

// CanReplace reports whether next may be stored over prev for the same key.
// Sessions only move forward; removing a session is a separate operation.
func CanReplace(prev, next Session) bool {
	if prev.Key() != next.Key() {
		return false
	}
	switch prev.State() {
	case StateGuest:
		return next.State() == StateTemp || next.State() == StateActive
	case StateTemp:
		return next.State() == StateActive
	default:
		return false
	}
}
