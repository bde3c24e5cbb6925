package discovery

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NodeFingerprint derives a node's advertised fingerprint from its
// instance UUID.
//
// The fingerprint is the first 64 bits (16 hex chars) of
// SHA-256(UUID bytes). It is stable for the lifetime of the process and
// changes on restart, which lets browsers tell a restarted node apart
// from a stale cached advertisement.
func NodeFingerprint(id uuid.UUID) string {
	hash := sha256.Sum256(id[:])
	return hex.EncodeToString(hash[:8])
}

// ValidateFingerprint checks that an ID string is a valid 64-bit
// fingerprint (16 lowercase hex chars).
func ValidateFingerprint(id string) bool {
	if len(id) != FingerprintLength {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
