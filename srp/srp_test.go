package srp

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewFromGroup(RFC5054Group2048())
	require.NoError(t, err)
	return e
}

func TestZeroPad(t *testing.T) {
	assert.Equal(t, "", ZeroPad(-3))
	assert.Equal(t, "", ZeroPad(0))
	assert.Equal(t, "0", ZeroPad(1))
	assert.Equal(t, "00000", ZeroPad(5))
}

func TestHash(t *testing.T) {
	h := Hash("")
	assert.Len(t, h, 128)
	assert.Equal(t, "a69f73cca23a9ac5c8b567dc185a756e97c982164fe25859e0d1dcc1475c80a6"+
		"15b2123af1f5f94c11e3e9402c3ac558f500199d95b6d3e301758586281dcd26", h)
	assert.Equal(t, strings.ToLower(h), h)
	assert.NotEqual(t, Hash("a"), Hash("b"))
}

func TestParseHex(t *testing.T) {
	n, err := ParseHex("FF")
	require.NoError(t, err)
	assert.Equal(t, int64(255), n.Int64())

	n, err = ParseHex("00ff")
	require.NoError(t, err)
	assert.Equal(t, "ff", Hex(n))

	for _, bad := range []string{"", "xyz", "-1", "+1", "0x10"} {
		_, err := ParseHex(bad)
		assert.ErrorIs(t, err, ErrInvalidHex, bad)
	}
}

func TestNewRejectsBadGroup(t *testing.T) {
	_, err := New(big.NewInt(2), 2, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = New(big.NewInt(23), 5, big.NewInt(23))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = New(big.NewInt(23), 0, big.NewInt(5))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestMultiplierPadding(t *testing.T) {
	// N = 0x1ff has odd hex length, so it gains a leading zero while g is
	// padded only to the unpadded width of N.
	N := big.NewInt(0x1ff)
	e, err := New(N, 9, big.NewInt(5))
	require.NoError(t, err)

	want, _ := new(big.Int).SetString(Hash("01ff"+"005"), 16)
	want.Mod(want, N)
	assert.Equal(t, want, e.K())
	assert.Equal(t, -1, e.K().Cmp(N))
}

func TestExchangeAgreesWithClient(t *testing.T) {
	e := newTestEngine(t)

	salt, err := GenerateSalt()
	require.NoError(t, err)
	x := ComputeX(salt, "alice", "correct horse")
	v := e.ComputeVerifier(x)

	client, err := NewClient(e)
	require.NoError(t, err)
	A := client.A()

	serverK, B, err := e.ComputeKHexB(A, v)
	require.NoError(t, err)

	clientK, err := client.ComputeK(B, x)
	require.NoError(t, err)
	assert.Equal(t, serverK, clientK)

	m := e.ComputeMHex("alice", salt, Hex(A), Hex(B), clientK)
	assert.Equal(t, m, e.ComputeMHex("alice", salt, Hex(A), Hex(B), serverK))
	assert.Len(t, e.ComputeRHex(Hex(A), m, serverK), 128)
}

func TestWrongPasswordDiverges(t *testing.T) {
	e := newTestEngine(t)
	salt, err := GenerateSalt()
	require.NoError(t, err)
	v := e.ComputeVerifier(ComputeX(salt, "alice", "right"))

	client, err := NewClient(e)
	require.NoError(t, err)
	serverK, B, err := e.ComputeKHexB(client.A(), v)
	require.NoError(t, err)

	clientK, err := client.ComputeK(B, ComputeX(salt, "alice", "wrong"))
	require.NoError(t, err)
	assert.NotEqual(t, serverK, clientK)
}

func TestFreshEphemeralPerExchange(t *testing.T) {
	e := newTestEngine(t)
	v := e.ComputeVerifier(ComputeX("abcd", "bob", "pw"))
	A := e.ComputeVerifier(big.NewInt(12345))

	k1, b1, err := e.ComputeKHexB(A, v)
	require.NoError(t, err)
	k2, b2, err := e.ComputeKHexB(A, v)
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2)
	assert.NotEqual(t, k1, k2)
}

func TestProofsAreDeterministic(t *testing.T) {
	e := newTestEngine(t)
	m1 := e.ComputeMHex("carol", "0a1b", "abc", "def", "0123")
	m2 := e.ComputeMHex("carol", "0a1b", "abc", "def", "0123")
	assert.Equal(t, m1, m2)

	assert.NotEqual(t, m1, e.ComputeMHex("carol", "0a1b", "abc", "def", "0124"))
	assert.NotEqual(t, m1, e.ComputeMHex("Carol", "0a1b", "abc", "def", "0123"))
	assert.NotEqual(t, m1, e.ComputeMHex("carol", "0a1c", "abc", "def", "0123"))

	r := e.ComputeRHex("abc", m1, "0123")
	assert.Equal(t, Hash("abc"+m1+"0123"), r)
	assert.NotEqual(t, r, e.ComputeRHex("abd", m1, "0123"))
}

func TestComputeUPadsOddLengthA(t *testing.T) {
	e := newTestEngine(t)
	A := big.NewInt(0xabc) // three hex digits
	B := big.NewInt(0x1234)

	width := 2 * ((e.NBitLen() + 7) >> 3)
	in := ZeroPad(width-3) + "abc" + ZeroPad(width-4) + "1234"
	want, _ := new(big.Int).SetString(Hash(in), 16)
	if want.Cmp(e.N()) >= 0 {
		want.Mod(want, new(big.Int).Sub(e.N(), big.NewInt(1)))
	}
	assert.Equal(t, want, e.ComputeU(A, B))
}

func TestComputeUReducesLargeDigest(t *testing.T) {
	// A small group makes every 512-bit digest exceed N.
	N := big.NewInt(23)
	e, err := New(N, 5, big.NewInt(5))
	require.NoError(t, err)

	u := e.ComputeU(big.NewInt(3), big.NewInt(7))
	assert.Equal(t, -1, u.Cmp(big.NewInt(22)))
	assert.GreaterOrEqual(t, u.Sign(), 0)
}

func TestDegenerateA(t *testing.T) {
	e := newTestEngine(t)
	v := e.ComputeVerifier(big.NewInt(7))

	for _, A := range []*big.Int{big.NewInt(0), e.N(), new(big.Int).Mul(e.N(), big.NewInt(3))} {
		_, _, err := e.ComputeKHexB(A, v)
		assert.ErrorIs(t, err, ErrDegenerateEphemeral)
	}
}

func TestClientRejectsDegenerateB(t *testing.T) {
	e := newTestEngine(t)
	c := NewClientWithSecret(e, big.NewInt(99))
	_, err := c.ComputeK(e.N(), big.NewInt(1))
	assert.ErrorIs(t, err, ErrDegenerateEphemeral)
}
