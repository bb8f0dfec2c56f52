package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns the hex sha256 of raw bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FingerprintFields hashes a set of fields into one stable identifier.
// Fields are joined with a separator that cannot appear in TOML scalars,
// so reordering or merging fields always changes the result.
func FingerprintFields(fields ...string) string {
	return Fingerprint([]byte(strings.Join(fields, "\x1f")))
}
