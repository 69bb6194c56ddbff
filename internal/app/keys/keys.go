// Package keys mints opaque identifiers for registry records and validates
// the owner fingerprints that authorize mutations. The generators are
// stateless so concurrent callers never contend on shared counters.
package keys

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
)

// MinFingerprintLen is the shortest fingerprint accepted on mutating calls.
const MinFingerprintLen = 32

// certSeq adds process-wide uniqueness to certificate payloads generated
// within the same nanosecond.
var certSeq atomic.Uint64

// NewID returns a time-ordered unique identifier. Time ordering keeps ids
// roughly insertion-sorted in the store; a random v4 id is still unique if
// the v7 clock source fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewCertificateID mints an identifier for a transfer certificate.
func NewCertificateID() string {
	return NewID()
}

// CertificatePayload builds the opaque certificate body recorded alongside a
// transfer: a base64url SHA-512 digest over a nanosecond timestamp, secure
// random bytes, a process counter and an asset-derived salt.
func CertificatePayload(assetID string) (string, error) {
	random := make([]byte, 64)
	if _, err := rand.Read(random); err != nil {
		return "", fault.Wrap(fault.Internal, err, "certificate entropy")
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fault.Wrap(fault.Internal, err, "certificate salt")
	}

	combined := fmt.Sprintf("%d*%s**%d*%s_%s",
		time.Now().UnixNano(),
		hex.EncodeToString(random),
		certSeq.Add(1),
		assetID,
		base64.RawURLEncoding.EncodeToString(salt),
	)

	sum := sha512.Sum512([]byte(combined))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// ValidateFingerprint checks an owner fingerprint token supplied on a
// mutating call. Fingerprints are opaque; only shape is enforced here.
func ValidateFingerprint(fp string) error {
	if fp == "" {
		return fault.New(fault.InvalidArgument, "user fingerprint is required")
	}
	if len(fp) < MinFingerprintLen {
		return fault.Errorf(fault.InvalidArgument,
			"user fingerprint must be at least %d characters", MinFingerprintLen)
	}
	for _, r := range fp {
		if r <= ' ' || r > '~' {
			return fault.New(fault.InvalidArgument, "user fingerprint contains invalid characters")
		}
	}
	return nil
}
