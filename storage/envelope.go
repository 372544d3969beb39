package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/andrewkuryan/brownie/internal/util"
)

const (
	envelopeVersion = 1
	schemeAESGCM    = "aes256gcm"
)

// Envelope is a sealed record containing AES-256-GCM encrypted data.
type Envelope struct {
	Ver        int    `json:"ver"`
	Scheme     string `json:"scheme"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	Version    uint64 `json:"version,omitempty"`
}

// RecordAAD binds a sealed record to its address so that an envelope copied
// under another key fails to open. Each part is length-prefixed, so record
// IDs may contain any byte.
func RecordAAD(namespace, recordType, recordID string) []byte {
	var aad []byte
	for _, part := range []string{"RECORD", namespace, recordType, recordID} {
		aad = binary.BigEndian.AppendUint32(aad, uint32(len(part)))
		aad = append(aad, part...)
	}
	return aad
}

// SealRecord encrypts plaintext into an Envelope using the given record key and AAD.
func SealRecord(recordKey, plaintext, aad []byte, version uint64) (*Envelope, error) {
	nonce, sealed, err := util.Seal(recordKey, plaintext, aad)
	if err != nil {
		return nil, fmt.Errorf("sealing record: %w", err)
	}
	return &Envelope{
		Ver:        envelopeVersion,
		Scheme:     schemeAESGCM,
		Nonce:      nonce,
		Ciphertext: sealed,
		Version:    version,
	}, nil
}

// OpenRecord decrypts an Envelope using the given record key and AAD.
func OpenRecord(recordKey []byte, envelope *Envelope, aad []byte) ([]byte, error) {
	if envelope.Ver != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version: %d", envelope.Ver)
	}
	if envelope.Scheme != schemeAESGCM {
		return nil, fmt.Errorf("unsupported envelope scheme: %s", envelope.Scheme)
	}
	return util.Open(recordKey, envelope.Nonce, envelope.Ciphertext, aad)
}
