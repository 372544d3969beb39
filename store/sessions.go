package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrewkuryan/brownie/account"
	"github.com/andrewkuryan/brownie/storage"
)

func (s *Store) loadSession(get getFunc, publicKey string) (sessionRecord, uint64, error) {
	var rec sessionRecord
	version, err := s.load(get, recordSession, publicKey, &rec, ErrSessionNotFound)
	return rec, version, err
}

// GetBySessionKey returns the session stored under publicKey and the user
// that owns it, both read from one snapshot. A session whose owner is gone
// counts as missing.
func (s *Store) GetBySessionKey(ctx context.Context, publicKey string) (account.User, account.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var (
		user    account.User
		session account.Session
	)
	err := s.repo.View(namespace, func(tx storage.ReadTx) error {
		rec, _, err := s.loadSession(tx.Get, publicKey)
		if err != nil {
			return err
		}
		if session, err = rec.session(); err != nil {
			return err
		}
		user, _, err = s.loadUser(tx.Get, rec.UserID)
		if errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("owner of %s: %w", rec.State, ErrSessionNotFound)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// replaceSession swaps prev for next under the same key. The stored session
// must still equal prev and the move must go forward. owner, when set,
// rebinds the session to another user.
func (s *Store) replaceSession(tx storage.BatchTx, prev, next account.Session, owner *int) error {
	rec, version, err := s.loadSession(tx.Get, prev.Key())
	if err != nil {
		return err
	}
	if !rec.matches(prev) {
		return fmt.Errorf("stored session is %s: %w", rec.State, account.ErrSessionInUse)
	}
	if !account.CanReplace(prev, next) {
		return fmt.Errorf("%s to %s: %w", prev.State(), next.State(), account.ErrSessionInUse)
	}
	userID := rec.UserID
	if owner != nil {
		userID = *owner
	}
	return s.put(tx, recordSession, next.Key(), sessionRecordOf(next, userID), version)
}

// UpdateSession replaces prev with next, keeping the owner.
func (s *Store) UpdateSession(ctx context.Context, prev, next account.Session) (account.Session, error) {
	unlock := s.locks.Lock(prev.Key())
	defer unlock()

	err := s.batch(ctx, func(tx storage.BatchTx) error {
		return s.replaceSession(tx, prev, next, nil)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// ChangeSessionOwner completes a login: the Temp session becomes next,
// bound to owner, and the guest user that owned the handshake is removed.
func (s *Store) ChangeSessionOwner(ctx context.Context, prev account.TempSession, next account.ActiveSession, owner account.ActiveUser) error {
	unlock := s.locks.Lock(prev.PublicKey)
	defer unlock()

	return s.batch(ctx, func(tx storage.BatchTx) error {
		rec, _, err := s.loadSession(tx.Get, prev.PublicKey)
		if err != nil {
			return err
		}
		orphan := rec.UserID
		if err := s.replaceSession(tx, prev, next, &owner.ID); err != nil {
			return err
		}
		if orphan == owner.ID {
			return nil
		}
		return s.deleteUnregistered(tx, orphan)
	})
}

// deleteUnregistered removes a user left without a session. Guest and
// blank users go with their contacts; registered users stay reachable by
// login.
func (s *Store) deleteUnregistered(tx storage.BatchTx, userID int) error {
	var rec userRecord
	if _, err := s.load(tx.Get, recordUser, itoa(userID), &rec, ErrUserNotFound); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	if rec.Type == userActive {
		return nil
	}
	return s.deleteUser(tx, userID)
}

// DeleteSession removes a session. An unregistered owner goes with it.
func (s *Store) DeleteSession(ctx context.Context, session account.Session) error {
	unlock := s.locks.Lock(session.Key())
	defer unlock()

	return s.batch(ctx, func(tx storage.BatchTx) error {
		rec, _, err := s.loadSession(tx.Get, session.Key())
		if err != nil {
			return err
		}
		if err := tx.Delete(recordSession, session.Key()); err != nil {
			return err
		}
		return s.deleteUnregistered(tx, rec.UserID)
	})
}

// ExpireSession drops an abandoned login handshake together with its
// unregistered owner. The device starts over as a new guest on its next request.
func (s *Store) ExpireSession(ctx context.Context, session account.TempSession) error {
	unlock := s.locks.Lock(session.PublicKey)
	defer unlock()

	return s.batch(ctx, func(tx storage.BatchTx) error {
		return s.expireLocked(tx, session.PublicKey, func(rec sessionRecord) bool {
			return rec.matches(session)
		})
	})
}

func (s *Store) expireLocked(tx storage.BatchTx, publicKey string, shouldExpire func(sessionRecord) bool) error {
	rec, _, err := s.loadSession(tx.Get, publicKey)
	if err != nil {
		return err
	}
	if rec.State != account.StateTemp.String() || !shouldExpire(rec) {
		return fmt.Errorf("stored session is %s: %w", rec.State, account.ErrSessionInUse)
	}
	if err := tx.Delete(recordSession, publicKey); err != nil {
		return err
	}
	return s.deleteUnregistered(tx, rec.UserID)
}

// ExpireTempSessions removes every Temp session older than ttl and returns
// how many were removed.
func (s *Store) ExpireTempSessions(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	keys, err := s.repo.List(namespace, recordSession)
	if err != nil {
		return 0, err
	}
	now := s.now()
	expired := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		err := s.expireIfStale(ctx, key, now, ttl)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, account.ErrSessionInUse), errors.Is(err, ErrSessionNotFound):
		default:
			return expired, err
		}
	}
	if expired > 0 {
		s.logger.Info("expired pending logins", "count", expired)
	}
	return expired, nil
}

func (s *Store) expireIfStale(ctx context.Context, publicKey string, now time.Time, ttl time.Duration) error {
	unlock := s.locks.Lock(publicKey)
	defer unlock()

	return s.batch(ctx, func(tx storage.BatchTx) error {
		return s.expireLocked(tx, publicKey, func(rec sessionRecord) bool {
			return account.TempSession{CreatedAt: rec.CreatedAt}.Expired(now, ttl)
		})
	})
}

// Now returns the store clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}
