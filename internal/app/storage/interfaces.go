// Package storage defines the persistence contracts of the registry engine.
// Every mutation goes through an optimistic-concurrency put: the caller
// presents the version token it read, and the store rejects the write with
// Conflict when the stored token has moved on.
package storage

import (
	"context"

	"github.com/xrf-labs/asset-registry/internal/app/domain/asset"
	"github.com/xrf-labs/asset-registry/internal/app/domain/certificate"
	"github.com/xrf-labs/asset-registry/internal/app/domain/contract"
)

// AssetFilter narrows asset listings. Zero values mean "no constraint".
type AssetFilter struct {
	// Symbol matches exactly when non-empty.
	Symbol string
	// NameLike matches case-insensitive substrings when non-empty.
	NameLike string
	// OwnerFingerprint restricts to assets owned by the fingerprint.
	OwnerFingerprint string
	// ListableOnly keeps only listable assets.
	ListableOnly bool
}

// AssetPage is one materialized window over a filtered asset listing.
// Total is the full match count of the filter, not the page length.
type AssetPage struct {
	Assets []asset.Asset
	Total  int
	Offset int
}

// AssetStore persists asset records under versioned writes.
type AssetStore interface {
	// CreateAsset inserts a new asset and assigns version 1.
	CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error)

	// GetAsset returns the asset or NotFound when absent or soft-deleted.
	GetAsset(ctx context.Context, id string) (asset.Asset, error)

	// PutAsset replaces the stored record if its version still equals
	// expectedVersion, bumping version and updated_at. A stale token fails
	// with Conflict; the caller must re-read and retry.
	PutAsset(ctx context.Context, a asset.Asset, expectedVersion int64) (asset.Asset, error)

	// DeleteAsset soft-deletes the asset if it is still held by org; the
	// ownership check happens inside the mutation so a concurrent transfer
	// cannot be overwritten. A live asset held elsewhere fails with
	// PermissionDenied. The id never satisfies a later read and is never
	// reused.
	DeleteAsset(ctx context.Context, id, org string) error

	// ListAssets returns one window of the filtered, ordered asset set.
	ListAssets(ctx context.Context, f AssetFilter, w Window) (AssetPage, error)

	// TransferAsset atomically reassigns ownership and records the
	// certificate: either both commit or neither does. The current
	// organization is re-checked inside the transaction and a mismatch
	// fails with PermissionDenied.
	TransferAsset(ctx context.Context, assetID, currentOrg, newOrg, newOwnerFP string, cert certificate.TransferCertificate) (asset.Asset, error)
}

// ContractStore persists contract revisions.
type ContractStore interface {
	// CreateContract inserts the initial revision of a contract.
	CreateContract(ctx context.Context, c contract.Contract) (contract.Contract, error)

	// GetContract returns a revision by contract id.
	GetContract(ctx context.Context, contractID string) (contract.Contract, error)

	// GetContractByAsset returns the most recently updated contract bound
	// to the asset, or NotFound.
	GetContractByAsset(ctx context.Context, assetID string) (contract.Contract, error)

	// PutContract replaces the stored revision if its update_count still
	// equals expectedCount. A stale token fails with Conflict.
	PutContract(ctx context.Context, c contract.Contract, expectedCount uint64) (contract.Contract, error)
}

// CertificateStore reads issued transfer certificates. Certificates are
// written only through AssetStore.TransferAsset and are immutable.
type CertificateStore interface {
	GetCertificate(ctx context.Context, certificateID string) (certificate.TransferCertificate, error)
	ListCertificatesByAsset(ctx context.Context, assetID string) ([]certificate.TransferCertificate, error)
}
