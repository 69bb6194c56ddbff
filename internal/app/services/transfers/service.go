// Package transfers implements atomic ownership reassignment: the asset's
// organization and owner change together with the issuance of an immutable
// transfer certificate, or not at all.
package transfers

import (
	"context"
	"strings"
	"time"

	"github.com/xrf-labs/asset-registry/internal/app/domain/certificate"
	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/keys"
	"github.com/xrf-labs/asset-registry/internal/app/metrics"
	"github.com/xrf-labs/asset-registry/internal/app/storage"
	"github.com/xrf-labs/asset-registry/pkg/logger"
)

// Service orchestrates ownership transfers.
type Service struct {
	assets storage.AssetStore
	certs  storage.CertificateStore
	log    *logger.Logger
}

// New constructs a transfer service.
func New(assets storage.AssetStore, certs storage.CertificateStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("transfers")
	}
	return &Service{assets: assets, certs: certs, log: log}
}

// Transfer reassigns the asset to newOwnerOrg/newOwnerFP on behalf of the
// asset's current organization orgID and returns the issued certificate id.
// The caller must currently hold the asset: an orgID that does not match
// fails with PermissionDenied. A transfer that would change nothing (same
// organization and same owner fingerprint) fails with InvalidArgument.
func (s *Service) Transfer(ctx context.Context, orgID, assetID, newOwnerFP, newOwnerOrg string) (certID string, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("transfer", "transfer", t, err) }(time.Now())

	if strings.TrimSpace(orgID) == "" {
		return "", fault.New(fault.InvalidArgument, "org_id is required")
	}
	if strings.TrimSpace(assetID) == "" {
		return "", fault.New(fault.InvalidArgument, "asset_id is required")
	}
	if strings.TrimSpace(newOwnerOrg) == "" {
		return "", fault.New(fault.InvalidArgument, "new_owner_org_id is required")
	}
	if err = keys.ValidateFingerprint(newOwnerFP); err != nil {
		return "", err
	}

	current, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return "", err
	}
	if current.Organization != orgID {
		return "", fault.New(fault.PermissionDenied, "asset is not held by the requesting organization")
	}
	if current.Organization == newOwnerOrg && current.OwnerFingerprint == newOwnerFP {
		return "", fault.New(fault.InvalidArgument, "transfer would not change ownership")
	}

	cert, err := certificate.Issue(assetID, current.OwnerFingerprint, newOwnerFP, newOwnerOrg)
	if err != nil {
		return "", err
	}

	// The store re-checks the holding organization inside the transaction,
	// so a concurrent transfer that commits first turns this one into
	// PermissionDenied rather than a silent double move.
	if _, err = s.assets.TransferAsset(ctx, assetID, orgID, newOwnerOrg, newOwnerFP, cert); err != nil {
		return "", err
	}

	metrics.CertificateIssued()
	s.log.Infof("asset %s transferred from %s to %s, certificate %s",
		assetID, orgID, newOwnerOrg, cert.CertificateID)
	return cert.CertificateID, nil
}

// Certificate returns an issued certificate by id.
func (s *Service) Certificate(ctx context.Context, certificateID string) (c certificate.TransferCertificate, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("certificate", "get", t, err) }(time.Now())

	if strings.TrimSpace(certificateID) == "" {
		return certificate.TransferCertificate{}, fault.New(fault.InvalidArgument, "certificate_id is required")
	}
	return s.certs.GetCertificate(ctx, certificateID)
}

// History returns every certificate issued for the asset, oldest first.
func (s *Service) History(ctx context.Context, assetID string) (cs []certificate.TransferCertificate, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("certificate", "list", t, err) }(time.Now())

	if strings.TrimSpace(assetID) == "" {
		return nil, fault.New(fault.InvalidArgument, "asset_id is required")
	}
	// No asset existence check: a soft-deleted asset keeps its audit
	// trail readable.
	return s.certs.ListCertificatesByAsset(ctx, assetID)
}
