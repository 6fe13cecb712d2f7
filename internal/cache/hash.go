package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex encoded SHA256 of src
func Digest(src []byte) string {
	h := sha256.Sum256(src)
	return hex.EncodeToString(h[:])
}
