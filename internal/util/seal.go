package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of record sealing keys (AES-256).
const KeySize = 32

var errNonceSize = errors.New("nonce has the wrong size")

// DeriveKey stretches secret into a KeySize key bound to salt and info.
func DeriveKey(secret, salt, info []byte) ([]byte, error) {
	prk := hkdf.Extract(sha256.New, secret, salt)
	defer WipeBytes(prk)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), key); err != nil {
		return nil, fmt.Errorf("expanding key: %w", err)
	}
	return key, nil
}

// NewKey returns a random KeySize key.
func NewKey() ([]byte, error) {
	return RandomBytes(KeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plain with AES-GCM under a fresh random nonce.
func Seal(key, plain, aad []byte) (nonce, sealed []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce, err = RandomBytes(gcm.NonceSize())
	if err != nil {
		return nil, nil, err
	}
	return nonce, gcm.Seal(nil, nonce, plain, aad), nil
}

// Open authenticates and decrypts what Seal produced.
func Open(key, nonce, sealed, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, errNonceSize
	}
	plain, err := gcm.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("opening sealed data: %w", err)
	}
	return plain, nil
}
