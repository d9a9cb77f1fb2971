package engine

import (
	"crypto/sha1"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint computes the content digest used as the stable cache key for
// a question's text.
//
// The text is NFC-normalized before hashing so that visually identical
// submissions (composed vs. decomposed accents) share a fingerprint. The
// digest is SHA-1: 160 bits is plenty for content addressing here, and
// collisions across distinct texts are assumed negligible, not defended
// against.
func Fingerprint(text string) string {
	sum := sha1.Sum([]byte(norm.NFC.String(text)))
	return hex.EncodeToString(sum[:])
}
