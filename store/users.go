package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/andrewkuryan/brownie/account"
	"github.com/andrewkuryan/brownie/internal/util"
	"github.com/andrewkuryan/brownie/storage"
)

// loadUser reads a user together with the current state of its contacts.
func (s *Store) loadUser(get getFunc, id int) (account.User, uint64, error) {
	var rec userRecord
	version, err := s.load(get, recordUser, itoa(id), &rec, ErrUserNotFound)
	if err != nil {
		return nil, 0, err
	}
	contacts := make([]account.Contact, 0, len(rec.ContactIDs))
	for _, cid := range rec.ContactIDs {
		c, _, err := s.loadContact(get, cid)
		if err != nil {
			return nil, 0, fmt.Errorf("user %d: %w", id, err)
		}
		contacts = append(contacts, c)
	}
	u, err := rec.user(contacts)
	if err != nil {
		return nil, 0, err
	}
	return u, version, nil
}

// replaceUser overwrites a stored user that must still be of type prevType.
func (s *Store) replaceUser(tx storage.BatchTx, prevType string, u account.User) error {
	var cur userRecord
	version, err := s.load(tx.Get, recordUser, itoa(u.UserID()), &cur, ErrUserNotFound)
	if err != nil {
		return err
	}
	if cur.Type != prevType {
		return fmt.Errorf("user %d is %s, expected %s: %w", u.UserID(), cur.Type, prevType, ErrConflict)
	}
	return s.put(tx, recordUser, itoa(u.UserID()), userRecordOf(u), version)
}

func loginKey(login string) string {
	return util.Normalize(login)
}

// GetByID returns the user with the given id.
func (s *Store) GetByID(ctx context.Context, id int) (account.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, _, err := s.loadUser(s.get, id)
	return u, err
}

// GetByLogin returns the registered user with the given login.
func (s *Store) GetByLogin(ctx context.Context, login string) (account.ActiveUser, error) {
	if err := ctx.Err(); err != nil {
		return account.ActiveUser{}, err
	}
	var idx loginRecord
	if _, err := s.load(s.get, recordLogin, loginKey(login), &idx, ErrUserNotFound); err != nil {
		return account.ActiveUser{}, err
	}
	u, _, err := s.loadUser(s.get, idx.UserID)
	if err != nil {
		return account.ActiveUser{}, err
	}
	active, ok := u.(account.ActiveUser)
	if !ok {
		return account.ActiveUser{}, fmt.Errorf("login %q: %w", login, ErrUserNotFound)
	}
	return active, nil
}

// GetByContact returns the registered user owning the contact.
func (s *Store) GetByContact(ctx context.Context, contactID int) (account.ActiveUser, error) {
	if err := ctx.Err(); err != nil {
		return account.ActiveUser{}, err
	}
	ids, err := s.repo.List(namespace, recordUser)
	if err != nil {
		return account.ActiveUser{}, err
	}
	for _, raw := range ids {
		var rec userRecord
		if _, err := s.load(s.get, recordUser, raw, &rec, ErrUserNotFound); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				continue
			}
			return account.ActiveUser{}, err
		}
		if rec.Type != userActive || !slices.Contains(rec.ContactIDs, contactID) {
			continue
		}
		u, _, err := s.loadUser(s.get, rec.ID)
		if err != nil {
			return account.ActiveUser{}, err
		}
		return u.(account.ActiveUser), nil
	}
	return account.ActiveUser{}, fmt.Errorf("contact %d: %w", contactID, ErrUserNotFound)
}

// CreateGuest registers a device seen for the first time: a Guest user and
// a Guest session keyed by the device's public key are stored together. If
// the key already has a session, the existing pair is returned instead.
func (s *Store) CreateGuest(ctx context.Context, d account.Device) (account.User, account.Session, error) {
	unlock := s.locks.Lock(d.PublicKey)
	defer unlock()

	if u, sess, err := s.GetBySessionKey(ctx, d.PublicKey); err == nil {
		return u, sess, nil
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, nil, err
	}

	var user account.GuestUser
	session := account.NewGuestSession(d)
	err := s.batch(ctx, func(tx storage.BatchTx) error {
		// An ownerless session left behind is overwritten.
		_, version, err := s.loadSession(tx.Get, d.PublicKey)
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return err
		}
		id, err := s.nextID(tx, userCounter)
		if err != nil {
			return err
		}
		user = account.GuestUser{ID: id, Permissions: []account.Permission{}}
		if err := s.put(tx, recordUser, itoa(id), userRecordOf(user), 0); err != nil {
			return err
		}
		return s.put(tx, recordSession, d.PublicKey, sessionRecordOf(session, id), version)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating guest: %w", err)
	}
	s.logger.Debug("guest created", "user_id", user.ID)
	return user, session, nil
}

// AddNewContact stores a new unconfirmed contact with a fresh code and
// attaches it to u in the same batch. A guest becomes blank.
func (s *Store) AddNewContact(ctx context.Context, u account.User, data account.ContactData) (account.User, account.UnconfirmedContact, error) {
	code, err := account.NewVerificationCode()
	if err != nil {
		return nil, account.UnconfirmedContact{}, err
	}
	var (
		next    account.User
		contact account.UnconfirmedContact
	)
	err = s.batch(ctx, func(tx storage.BatchTx) error {
		id, err := s.nextID(tx, contactCounter)
		if err != nil {
			return err
		}
		contact = account.UnconfirmedContact{ID: id, Data: data, VerificationCode: code}
		if next, err = account.AddContact(u, contact); err != nil {
			return err
		}
		if err := s.put(tx, recordContact, itoa(id), contactRecordOf(contact), 0); err != nil {
			return err
		}
		return s.replaceUser(tx, userType(u), next)
	})
	if err != nil {
		return nil, account.UnconfirmedContact{}, fmt.Errorf("adding contact: %w", err)
	}
	return next, contact, nil
}

// Fulfill completes registration of a blank user and activates the
// session it registered from. Both records change in one batch.
func (s *Store) Fulfill(ctx context.Context, u account.BlankUser, data account.UserData, session account.GuestSession) (account.ActiveUser, account.ActiveSession, error) {
	active, err := account.FulfillUser(u, data)
	if err != nil {
		return account.ActiveUser{}, account.ActiveSession{}, err
	}
	activeSession, err := account.Fulfill(session)
	if err != nil {
		return account.ActiveUser{}, account.ActiveSession{}, err
	}

	unlock := s.locks.Lock(session.PublicKey)
	defer unlock()

	err = s.batch(ctx, func(tx storage.BatchTx) error {
		if err := s.claimLogin(tx, data.Login, u.ID); err != nil {
			return err
		}
		if err := s.replaceUser(tx, userBlank, active); err != nil {
			return err
		}
		return s.replaceSession(tx, session, activeSession, nil)
	})
	if err != nil {
		return account.ActiveUser{}, account.ActiveSession{}, err
	}
	return active, activeSession, nil
}

func (s *Store) claimLogin(tx storage.BatchTx, login string, userID int) error {
	key := loginKey(login)
	if key == "" {
		return fmt.Errorf("empty login: %w", account.ErrInvalidTransition)
	}
	var idx loginRecord
	_, err := s.load(tx.Get, recordLogin, key, &idx, ErrUserNotFound)
	switch {
	case err == nil && idx.UserID == userID:
		return nil
	case err == nil:
		return fmt.Errorf("%q: %w", login, ErrLoginTaken)
	case !errors.Is(err, ErrUserNotFound):
		return err
	}
	return s.put(tx, recordLogin, key, loginRecord{UserID: userID}, 0)
}

// Update replaces the registered data of an active user.
func (s *Store) Update(ctx context.Context, u account.ActiveUser, data account.UserData) (account.ActiveUser, error) {
	next := u
	next.Data = data
	err := s.batch(ctx, func(tx storage.BatchTx) error {
		if loginKey(u.Data.Login) != loginKey(data.Login) {
			if err := s.claimLogin(tx, data.Login, u.ID); err != nil {
				return err
			}
			if err := tx.Delete(recordLogin, loginKey(u.Data.Login)); err != nil && !isMissing(err) {
				return err
			}
		}
		return s.replaceUser(tx, userActive, next)
	})
	if err != nil {
		return account.ActiveUser{}, err
	}
	return next, nil
}

// Delete removes a user, its login and its contacts.
func (s *Store) Delete(ctx context.Context, userID int) error {
	return s.batch(ctx, func(tx storage.BatchTx) error {
		return s.deleteUser(tx, userID)
	})
}

func (s *Store) deleteUser(tx storage.BatchTx, userID int) error {
	var rec userRecord
	if _, err := s.load(tx.Get, recordUser, itoa(userID), &rec, ErrUserNotFound); err != nil {
		return err
	}
	if rec.Login != "" {
		if err := tx.Delete(recordLogin, loginKey(rec.Login)); err != nil && !isMissing(err) {
			return err
		}
	}
	for _, cid := range rec.ContactIDs {
		if err := tx.Delete(recordContact, itoa(cid)); err != nil && !isMissing(err) {
			return err
		}
	}
	return tx.Delete(recordUser, itoa(userID))
}

// PublicInfo returns what a registered user publishes about themselves.
func (s *Store) PublicInfo(ctx context.Context, id int) ([]account.PublicItem, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	active, ok := u.(account.ActiveUser)
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	return active.PublicInfo(), nil
}

// Seed stores a registered user with already confirmed contacts.
func (s *Store) Seed(ctx context.Context, data account.UserData, perms []account.Permission, contacts []account.ContactData) (account.ActiveUser, error) {
	var user account.ActiveUser
	err := s.batch(ctx, func(tx storage.BatchTx) error {
		id, err := s.nextID(tx, userCounter)
		if err != nil {
			return err
		}
		user = account.ActiveUser{
			ID:          id,
			Permissions: slices.Clone(perms),
			Data:        data,
			PublicItems: slices.Clone(account.DefaultPublicItems),
		}
		for _, d := range contacts {
			cid, err := s.nextID(tx, contactCounter)
			if err != nil {
				return err
			}
			c := account.ActiveContact{ID: cid, Data: d}
			if err := s.put(tx, recordContact, itoa(cid), contactRecordOf(c), 0); err != nil {
				return err
			}
			user.Contacts = append(user.Contacts, c)
		}
		if err := s.claimLogin(tx, data.Login, id); err != nil {
			return err
		}
		return s.put(tx, recordUser, itoa(id), userRecordOf(user), 0)
	})
	if err != nil {
		return account.ActiveUser{}, fmt.Errorf("seeding %q: %w", data.Login, err)
	}
	return user, nil
}
