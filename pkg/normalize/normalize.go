// SPDX-License-Identifier: Apache-2.0

// Package normalize provides deterministic text normalization for the free-text
// signals used by the classification pipeline. Normalized forms are used for
// exact matching against taxonomy labels, so the transformation must be total
// and idempotent.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text normalizes a free-text signal:
//   - empty input maps to ""
//   - leading/trailing whitespace trimmed
//   - internal whitespace runs collapsed to a single space
//   - diacritics stripped (NFD decomposition, combining marks dropped)
//   - lowercased
//
// Text never fails and Text(Text(s)) == Text(s) for any s.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
