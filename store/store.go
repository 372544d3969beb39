// Package store keeps users, sessions and contacts as sealed records in a
// storage.Repository. Every record is JSON encrypted with AES-256-GCM under
// a key derived from the configured data key, and bound to its address.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/andrewkuryan/brownie/internal/util"
	"github.com/andrewkuryan/brownie/storage"
)

const (
	namespace = "brownie"

	recordUser     = "user"
	recordSession  = "session"
	recordContact  = "contact"
	recordLogin    = "login"
	recordMeta     = "meta"
	metaCountersID = "counters"

	recordKeyInfo = "brownie:record-key:v1"
)

var (
	ErrUserNotFound    = errors.New("no such user")
	ErrSessionNotFound = errors.New("no such session")
	ErrContactNotFound = errors.New("no such contact")
	// ErrLoginTaken is returned when a login is already registered.
	ErrLoginTaken = errors.New("login is already taken")
	// ErrConflict is returned when a record changed between read and write.
	ErrConflict = errors.New("record changed concurrently")
)

// Store is the user, session and contact store. It is safe for concurrent
// use. Session mutations are serialised per public key; writes touching
// several records run in one repository batch.
type Store struct {
	repo   storage.Repository
	key    []byte
	locks  *keyedMutex
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a Store over repo. Records are sealed under a key derived
// from dataKey; when dataKey is empty a random key is used and records do
// not survive a restart.
func New(repo storage.Repository, dataKey []byte, opts ...Option) (*Store, error) {
	s := &Store{
		repo:  repo,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	s.logger = s.logger.With("component", "store")

	if len(dataKey) == 0 {
		seed, err := util.NewKey()
		if err != nil {
			return nil, err
		}
		dataKey = seed
		s.logger.Warn("no data key configured; stored records are readable by this process only")
	}
	key, err := util.DeriveKey(dataKey, []byte(namespace), []byte(recordKeyInfo))
	if err != nil {
		return nil, fmt.Errorf("deriving record key: %w", err)
	}
	s.key = key
	return s, nil
}

type getFunc func(recordType, recordID string) (*storage.Envelope, error)

func (s *Store) get(recordType, recordID string) (*storage.Envelope, error) {
	return s.repo.Get(namespace, recordType, recordID)
}

func isMissing(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrNamespaceNotFound)
}

func (s *Store) seal(recordType, recordID string, v any, version uint64) (*storage.Envelope, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s/%s: %w", recordType, recordID, err)
	}
	defer util.WipeBytes(plain)
	return storage.SealRecord(s.key, plain, storage.RecordAAD(namespace, recordType, recordID), version)
}

// load reads and decodes a record. A missing record yields notFound.
func (s *Store) load(get getFunc, recordType, recordID string, v any, notFound error) (uint64, error) {
	env, err := get(recordType, recordID)
	if err != nil {
		if isMissing(err) {
			return 0, fmt.Errorf("%s %s: %w", recordType, recordID, notFound)
		}
		return 0, err
	}
	plain, err := storage.OpenRecord(s.key, env, storage.RecordAAD(namespace, recordType, recordID))
	if err != nil {
		return 0, fmt.Errorf("opening %s/%s: %w", recordType, recordID, err)
	}
	defer util.WipeBytes(plain)
	if err := json.Unmarshal(plain, v); err != nil {
		return 0, fmt.Errorf("decoding %s/%s: %w", recordType, recordID, err)
	}
	return env.Version, nil
}

// put writes v with compare-and-swap on version: 0 creates, otherwise the
// stored version must match and is bumped.
func (s *Store) put(tx storage.BatchTx, recordType, recordID string, v any, version uint64) error {
	env, err := s.seal(recordType, recordID, v, version+1)
	if err != nil {
		return err
	}
	if err := tx.PutCAS(recordType, recordID, version, env); err != nil {
		if errors.Is(err, storage.ErrCASFailed) {
			return fmt.Errorf("%s %s: %w", recordType, recordID, ErrConflict)
		}
		return err
	}
	return nil
}

func (s *Store) batch(ctx context.Context, fn func(tx storage.BatchTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.repo.Batch(namespace, fn)
}

type countersRecord struct {
	NextUserID    int `json:"nextUserId"`
	NextContactID int `json:"nextContactId"`
}

// nextID allocates an id inside tx. Ids start at 0 and are never reused.
func (s *Store) nextID(tx storage.BatchTx, field func(*countersRecord) *int) (int, error) {
	var c countersRecord
	version, err := s.load(tx.Get, recordMeta, metaCountersID, &c, storage.ErrNotFound)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}
	p := field(&c)
	id := *p
	*p++
	if err := s.put(tx, recordMeta, metaCountersID, c, version); err != nil {
		return 0, err
	}
	return id, nil
}

func userCounter(c *countersRecord) *int    { return &c.NextUserID }
func contactCounter(c *countersRecord) *int { return &c.NextContactID }

func itoa(i int) string { return strconv.Itoa(i) }
