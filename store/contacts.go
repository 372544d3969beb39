package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrewkuryan/brownie/account"
	"github.com/andrewkuryan/brownie/storage"
)

func (s *Store) loadContact(get getFunc, id int) (account.Contact, uint64, error) {
	var rec contactRecord
	version, err := s.load(get, recordContact, itoa(id), &rec, ErrContactNotFound)
	if err != nil {
		return nil, 0, err
	}
	c, err := rec.contact()
	if err != nil {
		return nil, 0, err
	}
	return c, version, nil
}

// ConfirmContact checks code against the stored contact and marks it
// confirmed.
func (s *Store) ConfirmContact(ctx context.Context, contact account.UnconfirmedContact, code string) (account.ActiveContact, error) {
	var confirmed account.ActiveContact
	err := s.batch(ctx, func(tx storage.BatchTx) error {
		cur, version, err := s.loadContact(tx.Get, contact.ID)
		if err != nil {
			return err
		}
		confirmed, err = account.ConfirmContact(cur, code)
		if err != nil {
			return err
		}
		return s.put(tx, recordContact, itoa(contact.ID), contactRecordOf(confirmed), version)
	})
	if err != nil {
		return account.ActiveContact{}, err
	}
	return confirmed, nil
}

// RegenerateCode replaces the verification code of an unconfirmed contact.
func (s *Store) RegenerateCode(ctx context.Context, contact account.UnconfirmedContact) (account.UnconfirmedContact, error) {
	renewed, err := contact.WithNewCode()
	if err != nil {
		return account.UnconfirmedContact{}, err
	}
	err = s.batch(ctx, func(tx storage.BatchTx) error {
		cur, version, err := s.loadContact(tx.Get, contact.ID)
		if err != nil {
			return err
		}
		if cur.Confirmed() {
			return fmt.Errorf("contact %d already confirmed: %w", contact.ID, account.ErrInvalidTransition)
		}
		renewed.Data = cur.ContactData()
		return s.put(tx, recordContact, itoa(contact.ID), contactRecordOf(renewed), version)
	})
	if err != nil {
		return account.UnconfirmedContact{}, err
	}
	return renewed, nil
}

// GetByUniqueKey returns the confirmed contact for a mailbox or Telegram
// account.
func (s *Store) GetByUniqueKey(ctx context.Context, key account.UniqueKey) (account.ActiveContact, error) {
	if err := ctx.Err(); err != nil {
		return account.ActiveContact{}, err
	}
	ids, err := s.repo.List(namespace, recordContact)
	if err != nil {
		return account.ActiveContact{}, err
	}
	for _, raw := range ids {
		var rec contactRecord
		if _, err := s.load(s.get, recordContact, raw, &rec, ErrContactNotFound); err != nil {
			if errors.Is(err, ErrContactNotFound) {
				continue
			}
			return account.ActiveContact{}, err
		}
		if !rec.Confirmed {
			continue
		}
		c, err := rec.contact()
		if err != nil {
			return account.ActiveContact{}, err
		}
		if c.ContactData().UniqueKey() == key {
			return c.(account.ActiveContact), nil
		}
	}
	return account.ActiveContact{}, fmt.Errorf("%s: %w", key, ErrContactNotFound)
}
