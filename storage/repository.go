// Package storage provides the record storage abstraction used by the
// account store. Records are opaque sealed Envelopes addressed by
// namespace, record type and record ID.
package storage

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNamespaceNotFound is returned when a namespace has never been written.
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrCASFailed is returned when a compare-and-swap version check fails.
	ErrCASFailed = errors.New("CAS version mismatch")
)

// ReadTx reads records from one consistent snapshot of a namespace.
type ReadTx interface {
	Get(recordType, recordID string) (*Envelope, error)
}

// BatchTx exposes record operations inside an atomic transaction.
// The namespace is scoped to the batch, so methods don't require it.
type BatchTx interface {
	ReadTx
	Put(recordType, recordID string, envelope *Envelope) error
	PutCAS(recordType, recordID string, expectedVersion uint64, envelope *Envelope) error
	Delete(recordType, recordID string) error
}

// Repository defines the interface for sealed record storage.
type Repository interface {
	Put(namespace, recordType, recordID string, envelope *Envelope) error
	Get(namespace, recordType, recordID string) (*Envelope, error)
	List(namespace, recordType string) ([]string, error)
	Delete(namespace, recordType, recordID string) error
	// PutCAS writes envelope only if the stored version equals
	// expectedVersion. An expectedVersion of 0 means create-only.
	PutCAS(namespace, recordType, recordID string, expectedVersion uint64, envelope *Envelope) error
	// Batch runs fn in a single transaction. If fn returns an error no
	// writes are applied.
	Batch(namespace string, fn func(tx BatchTx) error) error
	// View runs fn in a read-only transaction. No batch commits while fn
	// runs, so every read sees the same state.
	View(namespace string, fn func(tx ReadTx) error) error
}
