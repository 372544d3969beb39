package signature

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/awnumar/memguard"
)

var (
	// ErrInvalidPublicKey is returned when a public key is not a base64
	// PKIX-encoded ECDSA key.
	ErrInvalidPublicKey = errors.New("invalid ECDSA public key")
	// ErrInvalidPrivateKey is returned when a private key is not a base64
	// PKCS#8-encoded ECDSA key.
	ErrInvalidPrivateKey = errors.New("invalid ECDSA private key")
	// ErrSignerDestroyed is returned by a Signer after Destroy.
	ErrSignerDestroyed = errors.New("signer destroyed")
)

// ParsePublicKey decodes a base64 X.509 SubjectPublicKeyInfo ECDSA key.
func ParsePublicKey(publicKeyB64 string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA key", ErrInvalidPublicKey)
	}
	return pub, nil
}

// ParsePrivateKey decodes a base64 PKCS#8 ECDSA private key.
func ParsePrivateKey(privateKeyB64 string) (*ecdsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return parsePKCS8(der)
}

func parsePKCS8(der []byte) (*ecdsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA key", ErrInvalidPrivateKey)
	}
	return priv, nil
}

// Verify reports whether signatureB64 is a valid SHA-512 ECDSA signature of
// message under publicKeyB64. The signature is expected in the fixed-width
// r||s form; ASN.1 DER is accepted as well. Any decoding problem yields false.
func Verify(publicKeyB64, message, signatureB64 string) bool {
	if publicKeyB64 == "" || signatureB64 == "" {
		return false
	}
	pub, err := ParsePublicKey(publicKeyB64)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sig) == 0 {
		return false
	}
	digest := sha512.Sum512([]byte(message))

	size := scalarSize(pub.Curve)
	if len(sig) == 2*size {
		r := new(big.Int).SetBytes(sig[:size])
		s := new(big.Int).SetBytes(sig[size:])
		if ecdsa.Verify(pub, digest[:], r, s) {
			return true
		}
	}
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}

// Sign returns the base64 fixed-width r||s SHA-512 ECDSA signature of
// message.
func Sign(priv *ecdsa.PrivateKey, message string) (string, error) {
	digest := sha512.Sum512([]byte(message))
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing message: %w", err)
	}
	size := scalarSize(priv.Curve)
	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	s.FillBytes(out[size:])
	return base64.StdEncoding.EncodeToString(out), nil
}

func scalarSize(c elliptic.Curve) int {
	return (c.Params().BitSize + 7) / 8
}

// GenerateKeyPair creates a P-521 key pair and returns it as base64 PKIX
// public key and base64 PKCS#8 private key.
func GenerateKeyPair() (publicKeyB64, privateKeyB64 string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generating key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("marshal public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", fmt.Errorf("marshal private key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(pubDER), base64.StdEncoding.EncodeToString(privDER), nil
}

// Signer signs outbound messages with the server key. The PKCS#8 bytes are
// kept in a memguard Enclave and only decrypted for the duration of a Sign
// call.
type Signer struct {
	key       *memguard.Enclave
	publicKey string
}

// NewSigner validates a base64 PKCS#8 private key and seals it.
func NewSigner(privateKeyB64 string) (*Signer, error) {
	der, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	priv, err := parsePKCS8(der)
	if err != nil {
		return nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return &Signer{
		// NewEnclave wipes der.
		key:       memguard.NewEnclave(der),
		publicKey: base64.StdEncoding.EncodeToString(pubDER),
	}, nil
}

// PublicKey returns the base64 PKIX form of the signing key's public half.
func (s *Signer) PublicKey() string {
	return s.publicKey
}

// Sign signs message with the sealed key.
func (s *Signer) Sign(message string) (string, error) {
	if s == nil || s.key == nil {
		return "", ErrSignerDestroyed
	}
	buf, err := s.key.Open()
	if err != nil {
		return "", fmt.Errorf("open signing key: %w", err)
	}
	defer buf.Destroy()

	priv, err := parsePKCS8(buf.Bytes())
	if err != nil {
		return "", err
	}
	return Sign(priv, message)
}

// Destroy drops the sealed key. Subsequent Sign calls fail. It must not be
// called concurrently with Sign.
func (s *Signer) Destroy() {
	if s != nil {
		s.key = nil
	}
}
