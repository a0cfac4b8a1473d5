package domain

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashSecret is the digest the token endpoint compares presented client
// secrets against: base64 of the SHA-256 of the UTF-8 bytes.
func HashSecret(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.StdEncoding.EncodeToString(sum[:])
}
