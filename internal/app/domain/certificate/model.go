// Package certificate defines the immutable audit record issued when an
// asset changes owner. Certificates are never updated or deleted.
package certificate

import (
	"time"

	"github.com/xrf-labs/asset-registry/internal/app/keys"
)

// TransferCertificate proves that one ownership change occurred.
type TransferCertificate struct {
	CertificateID            string    `json:"certificate_id" db:"certificate_id"`
	AssetID                  string    `json:"asset_id" db:"asset_id"`
	PreviousOwnerFingerprint string    `json:"previous_owner_fingerprint" db:"previous_owner_fp"`
	NewOwnerFingerprint      string    `json:"new_owner_fingerprint" db:"new_owner_fp"`
	NewOwnerOrganization     string    `json:"new_owner_organization" db:"new_owner_org"`
	Payload                  string    `json:"payload" db:"payload"`
	IssuedAt                 time.Time `json:"issued_at" db:"issued_at"`
}

// Issue mints a certificate for a transfer of assetID from the previous
// owner to the new owner.
func Issue(assetID, previousOwnerFP, newOwnerFP, newOwnerOrg string) (TransferCertificate, error) {
	payload, err := keys.CertificatePayload(assetID)
	if err != nil {
		return TransferCertificate{}, err
	}
	return TransferCertificate{
		CertificateID:            keys.NewCertificateID(),
		AssetID:                  assetID,
		PreviousOwnerFingerprint: previousOwnerFP,
		NewOwnerFingerprint:      newOwnerFP,
		NewOwnerOrganization:     newOwnerOrg,
		Payload:                  payload,
		IssuedAt:                 time.Now().UTC(),
	}, nil
}
