package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// nameHashLen keeps name-derived keys uniform in length regardless of how
// long the name is.
const nameHashLen = 16

// Fingerprint derives the deterministic identity key for a contact. Signals
// are tried in decreasing order of trust: a valid email wins outright, then a
// usable phone number, then the name. The three tiers carry disjoint prefixes
// so a name-derived key can never collide with an email- or phone-derived
// one. A contact with no usable signal at all yields ""; callers must skip
// such records instead of merging unrelated blanks together.
func Fingerprint(name, email, phone string) string {
	if e := NormalizeEmail(email); e != "" {
		return "e:" + e
	}
	if p := NormalizePhone(phone); p != "" {
		return "p:" + p
	}
	if n := NormalizeName(name); n != "" {
		sum := sha256.Sum256([]byte(n))
		return "n:" + hex.EncodeToString(sum[:])[:nameHashLen]
	}
	return ""
}
