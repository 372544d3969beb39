package srp

import "math/big"

// rfc5054N2048 is the 2048-bit group prime from RFC 5054 Appendix A.
const rfc5054N2048 = "AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050" +
	"A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50" +
	"E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B8" +
	"55F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773B" +
	"CA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748" +
	"544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6" +
	"AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB6" +
	"94B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73"

// Group is a set of SRP negotiation parameters.
type Group struct {
	N       *big.Int
	NBitLen int
	G       *big.Int
}

// RFC5054Group2048 returns the 2048-bit RFC 5054 group with generator 2.
func RFC5054Group2048() Group {
	n, _ := new(big.Int).SetString(rfc5054N2048, 16)
	return Group{N: n, NBitLen: 2048, G: big.NewInt(2)}
}

// NewFromGroup is New for a Group value.
func NewFromGroup(gr Group) (*Engine, error) {
	return New(gr.N, gr.NBitLen, gr.G)
}
