package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// RandomDigits returns a string of n decimal digits drawn from crypto/rand.
func RandomDigits(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		d, err := RandomIntn(10)
		if err != nil {
			return "", fmt.Errorf("generating random digit: %w", err)
		}
		sb.WriteByte(byte('0' + d))
	}
	return sb.String(), nil
}

func RandomIntn(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("generating random number: %w", err)
	}
	return int(n.Int64()), nil
}

// RandomBigInt returns a uniformly random non-negative integer below 2^bits.
func RandomBigInt(bits int) (*big.Int, error) {
	if bits <= 0 {
		return nil, fmt.Errorf("random bit length must be positive, got %d", bits)
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("generating random integer: %w", err)
	}
	return n, nil
}

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}
