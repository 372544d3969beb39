package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds s to NFKC form with surrounding whitespace removed. Logins
// and email addresses are compared in this form so that visually identical
// inputs resolve to the same account.
func Normalize(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}
