package srp

import (
	"math/big"

	"github.com/andrewkuryan/brownie/internal/util"
)

const saltBytes = 32

// GenerateSalt returns a random hex salt for a new password.
func GenerateSalt() (string, error) {
	b, err := util.RandomBytes(saltBytes)
	if err != nil {
		return "", err
	}
	return Hex(new(big.Int).SetBytes(b)), nil
}

// ComputeX derives the private password exponent x = H(salt || H(login ":" password)).
func ComputeX(saltHex, login, password string) *big.Int {
	return HashBig(saltHex + Hash(login+":"+password))
}

// ComputeVerifier returns v = g^x mod N for a password exponent x.
func (e *Engine) ComputeVerifier(x *big.Int) *big.Int {
	return new(big.Int).Exp(e.g, x, e.n)
}

// Client is the client half of the exchange. The server never runs it in
// production; it backs the verifier tooling and end-to-end tests.
type Client struct {
	engine *Engine
	a      *big.Int
	bigA   *big.Int
}

// NewClient picks a random private ephemeral a and computes A = g^a mod N.
func NewClient(e *Engine) (*Client, error) {
	for {
		a, err := util.RandomBigInt(ephemeralBits)
		if err != nil {
			return nil, err
		}
		A := new(big.Int).Exp(e.g, a, e.n)
		if A.Sign() != 0 {
			return &Client{engine: e, a: a, bigA: A}, nil
		}
	}
}

// NewClientWithSecret builds a Client with a fixed private ephemeral.
func NewClientWithSecret(e *Engine, a *big.Int) *Client {
	return &Client{engine: e, a: new(big.Int).Set(a), bigA: new(big.Int).Exp(e.g, a, e.n)}
}

// A returns the public ephemeral to send with login/init.
func (c *Client) A() *big.Int { return new(big.Int).Set(c.bigA) }

// ComputeK derives KHex from the server value B and the password exponent
// x: S = (B - k*g^x)^(a + u*x) mod N.
func (c *Client) ComputeK(B, x *big.Int) (string, error) {
	e := c.engine
	if new(big.Int).Mod(B, e.n).Sign() == 0 {
		return "", ErrDegenerateEphemeral
	}
	u := e.ComputeU(c.bigA, B)

	base := new(big.Int).Mul(e.k, e.ComputeVerifier(x))
	base.Sub(B, base)
	base.Mod(base, e.n)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.a)

	S := new(big.Int).Exp(base, exp, e.n)
	return Hash(Hex(S)), nil
}
