// Package srp implements the server side of the SRP-6a style password
// exchange used for login, together with the hex/bignum primitives it is
// built on. All arithmetic uses math/big; hex strings are lowercase without
// leading zeros unless they are explicitly padded.
package srp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/andrewkuryan/brownie/internal/util"
)

// ephemeralBits is the size of the server private ephemeral b.
const ephemeralBits = 2048

var (
	// ErrDegenerateEphemeral is returned when A or B is congruent to zero
	// modulo N, which would let the peer force a known shared secret.
	ErrDegenerateEphemeral = errors.New("srp: degenerate ephemeral value")
	// ErrInvalidHex is returned when a hex-encoded number cannot be parsed.
	ErrInvalidHex = errors.New("srp: invalid hex number")
	// ErrInvalidParams is returned for an unusable group definition.
	ErrInvalidParams = errors.New("srp: invalid group parameters")
)

var one = big.NewInt(1)

// ZeroPad returns a string of n '0' characters, or "" when n < 1.
func ZeroPad(n int) string {
	if n < 1 {
		return ""
	}
	return strings.Repeat("0", n)
}

// Hash returns the lowercase hex SHA3-512 digest of the UTF-8 bytes of s.
func Hash(s string) string {
	sum := sha3.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashBig interprets Hash(s) as a non-negative integer.
func HashBig(s string) *big.Int {
	n, _ := new(big.Int).SetString(Hash(s), 16)
	return n
}

// ParseHex parses a base-16 number. Both upper and lower case digits are
// accepted; an empty string or a sign prefix is rejected.
func ParseHex(s string) (*big.Int, error) {
	if s == "" || s[0] == '-' || s[0] == '+' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return n, nil
}

// Hex renders n the way the wire protocol expects: lowercase base 16 with no
// padding.
func Hex(n *big.Int) string {
	return n.Text(16)
}

// Engine holds the negotiated group (N, g), the bit length of N and the
// derived multiplier k. An Engine is immutable after New and safe for
// concurrent use.
type Engine struct {
	n       *big.Int
	nBitLen int
	g       *big.Int
	k       *big.Int
}

// New builds an Engine for the group (N, g). k is derived as
// H(pad(N) || pad(g)) where N's hex form is padded to an even length and
// g's hex form is left-padded to the width of N's.
func New(N *big.Int, NBitLen int, g *big.Int) (*Engine, error) {
	if N == nil || g == nil || N.Cmp(big.NewInt(2)) <= 0 {
		return nil, fmt.Errorf("%w: N must be greater than 2", ErrInvalidParams)
	}
	if g.Sign() <= 0 || g.Cmp(N) >= 0 {
		return nil, fmt.Errorf("%w: g must be in (0, N)", ErrInvalidParams)
	}
	if NBitLen <= 0 {
		return nil, fmt.Errorf("%w: NBitLen must be positive", ErrInvalidParams)
	}

	nHex := Hex(N)
	gHex := Hex(g)
	if len(nHex)%2 != 0 {
		nHex = "0" + nHex
	}
	hashIn := nHex + ZeroPad(len(Hex(N))-len(gHex)) + gHex
	k := HashBig(hashIn)
	if k.Cmp(N) >= 0 {
		k.Mod(k, N)
	}

	return &Engine{
		n:       new(big.Int).Set(N),
		nBitLen: NBitLen,
		g:       new(big.Int).Set(g),
		k:       k,
	}, nil
}

// N returns a copy of the group modulus.
func (e *Engine) N() *big.Int { return new(big.Int).Set(e.n) }

// G returns a copy of the group generator.
func (e *Engine) G() *big.Int { return new(big.Int).Set(e.g) }

// K returns a copy of the multiplier k.
func (e *Engine) K() *big.Int { return new(big.Int).Set(e.k) }

// NBitLen returns the configured bit length of N.
func (e *Engine) NBitLen() int { return e.nBitLen }

// ComputeKHexB generates a fresh server ephemeral for the client value A and
// the stored verifier. It returns the hex session key K = H(S) and the public
// value B that is sent back to the client.
//
// B is k*v + g^b mod N with only the exponentiation reduced; existing
// clients hash B in exactly this form.
func (e *Engine) ComputeKHexB(A, verifier *big.Int) (string, *big.Int, error) {
	if new(big.Int).Mod(A, e.n).Sign() == 0 {
		return "", nil, fmt.Errorf("%w: A mod N == 0", ErrDegenerateEphemeral)
	}

	b, err := util.RandomBigInt(ephemeralBits)
	if err != nil {
		return "", nil, err
	}

	B := new(big.Int).Mul(e.k, verifier)
	B.Add(B, new(big.Int).Exp(e.g, b, e.n))
	if new(big.Int).Mod(B, e.n).Sign() == 0 {
		return "", nil, fmt.Errorf("%w: B mod N == 0", ErrDegenerateEphemeral)
	}

	u := e.ComputeU(A, B)
	S := new(big.Int).Exp(verifier, u, e.n)
	S.Mul(S, A)
	S.Exp(S, b, e.n)

	return Hash(Hex(S)), B, nil
}

// ComputeU derives the scrambling parameter u = H(pad(A) || pad(B)), where
// both values are left-padded to twice the byte length of N. A digest that is
// not below N is reduced modulo N-1.
func (e *Engine) ComputeU(A, B *big.Int) *big.Int {
	aHex := Hex(A)
	bHex := Hex(B)
	nLen := 2 * ((e.nBitLen + 7) >> 3)
	u := HashBig(ZeroPad(nLen-len(aHex)) + aHex + ZeroPad(nLen-len(bHex)) + bHex)
	if u.Cmp(e.n) < 0 {
		return u
	}
	return u.Mod(u, new(big.Int).Sub(e.n, one))
}

// ComputeMHex returns the proof M that a client holding the same session key
// is expected to present.
func (e *Engine) ComputeMHex(username, saltHex, AHex, BHex, KHex string) string {
	x := new(big.Int).Xor(HashBig(Hex(e.n)), HashBig(Hex(e.g)))
	return Hash(Hex(x) + Hash(username) + saltHex + AHex + BHex + KHex)
}

// ComputeRHex returns the server counter-proof R = H(A || M || K).
func (e *Engine) ComputeRHex(AHex, MHex, KHex string) string {
	return Hash(AHex + MHex + KHex)
}
