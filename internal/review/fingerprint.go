package review

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Fingerprint computes a stable identity for a finding from its file
// path, category, and normalized message. Two findings that say the
// same thing about the same file get the same fingerprint regardless of
// line numbers or the order the backend emitted them in.
func Fingerprint(f Finding) string {
	h := sha256.New()
	h.Write([]byte(f.FilePath))
	h.Write([]byte{0})
	h.Write([]byte(f.Category))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeMessage(f.Message)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// NormalizeMessage lowercases, collapses whitespace runs, and strips
// trailing punctuation so cosmetic rewording by the backend does not
// change the fingerprint.
func NormalizeMessage(msg string) string {
	fields := strings.Fields(strings.ToLower(msg))
	joined := strings.Join(fields, " ")
	return strings.TrimRightFunc(joined, func(r rune) bool {
		return unicode.IsPunct(r)
	})
}
