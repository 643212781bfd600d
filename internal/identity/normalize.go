package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var caseFolder = cases.Fold()

// NormalizeEmail canonicalizes an email address for comparison. It returns
// the trimmed, lowercased address, or "" when the input is not a
// syntactically plausible bare address.
func NormalizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	at := strings.IndexByte(s, '@')
	if at <= 0 || at != strings.LastIndexByte(s, '@') {
		return ""
	}
	local, domain := s[:at], s[at+1:]
	if local == "" || domain == "" {
		return ""
	}
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return ""
	}
	if strings.ContainsAny(s, " \t<>,;") {
		return ""
	}
	return s
}

// NormalizePhone reduces a phone number to its significant digits: everything
// except digits is dropped and leading zeros are stripped. Numbers with fewer
// than eight significant digits are too ambiguous to identify anyone and
// normalize to "".
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if len(digits) < 8 {
		return ""
	}
	return digits
}

// NormalizeName canonicalizes a person name: Unicode NFC, case folded, inner
// whitespace collapsed to single spaces, trimmed.
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	s = caseFolder.String(s)
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
