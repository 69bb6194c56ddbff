// Package assets implements the asset registry manager: creation, partial
// update, logical deletion, lookups and windowed listings.
package assets

import (
	"context"
	"strings"
	"time"

	"github.com/xrf-labs/asset-registry/internal/app/domain/asset"
	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/keys"
	"github.com/xrf-labs/asset-registry/internal/app/metrics"
	"github.com/xrf-labs/asset-registry/internal/app/storage"
	"github.com/xrf-labs/asset-registry/pkg/logger"
)

// DefaultStreamChunk is the chunk size used by streamed listings when the
// caller does not pick one.
const DefaultStreamChunk = 10

// Service manages asset records.
type Service struct {
	store storage.AssetStore
	log   *logger.Logger
}

// New constructs an asset service.
func New(store storage.AssetStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("assets")
	}
	return &Service{store: store, log: log}
}

// Create registers a new asset owned by the organization. New assets start
// non-tradable and non-listable.
func (s *Service) Create(ctx context.Context, name, symbol, description, organization, creatorFP string) (a asset.Asset, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("asset", "create", t, err) }(time.Now())

	a, err = asset.New(name, symbol, description, organization, creatorFP)
	if err != nil {
		return asset.Asset{}, err
	}

	created, err := s.store.CreateAsset(ctx, a)
	if err != nil {
		return asset.Asset{}, err
	}
	s.log.Infof("asset %s created (name=%s symbol=%s)", created.ID, created.Name, created.Symbol)
	return created, nil
}

// GetByID returns the asset or NotFound when it is absent or deleted.
func (s *Service) GetByID(ctx context.Context, assetID string) (a asset.Asset, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("asset", "get", t, err) }(time.Now())

	if strings.TrimSpace(assetID) == "" {
		return asset.Asset{}, fault.New(fault.InvalidArgument, "asset_id is required")
	}
	return s.store.GetAsset(ctx, assetID)
}

// Update applies the supplied fields to the asset. Only the owning
// organization may mutate. When expectedVersion is zero the version read
// within this call is used; a non-zero stale token fails with Conflict.
func (s *Service) Update(ctx context.Context, orgID, assetID string, u asset.Update, userFP string, expectedVersion int64) (a asset.Asset, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("asset", "update", t, err) }(time.Now())

	if strings.TrimSpace(orgID) == "" || strings.TrimSpace(assetID) == "" {
		return asset.Asset{}, fault.New(fault.InvalidArgument, "asset_id and org_id are required")
	}
	if u.Empty() {
		return asset.Asset{}, fault.New(fault.InvalidArgument, "at least one updatable field is required")
	}
	if err = u.Validate(); err != nil {
		return asset.Asset{}, err
	}
	if err = keys.ValidateFingerprint(userFP); err != nil {
		return asset.Asset{}, err
	}

	current, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return asset.Asset{}, err
	}
	if current.Organization != orgID {
		return asset.Asset{}, fault.Errorf(fault.PermissionDenied,
			"asset %s is not owned by organization %s", assetID, orgID)
	}
	if expectedVersion == 0 {
		expectedVersion = current.Version
	}

	updated, err := s.store.PutAsset(ctx, u.Apply(current, userFP), expectedVersion)
	if err != nil {
		return asset.Asset{}, err
	}
	s.log.Infof("asset %s updated by %s", assetID, userFP)
	return updated, nil
}

// Delete logically removes the asset. The id never satisfies a later
// lookup and is never reused.
func (s *Service) Delete(ctx context.Context, orgID, assetID string) (err error) {
	defer func(t time.Time) { metrics.ObserveOperation("asset", "delete", t, err) }(time.Now())

	if strings.TrimSpace(orgID) == "" || strings.TrimSpace(assetID) == "" {
		return fault.New(fault.InvalidArgument, "asset_id and org_id are required")
	}

	// Ownership is checked inside the store mutation, so a transfer that
	// commits concurrently cannot leave the previous holder able to delete.
	if err = s.store.DeleteAsset(ctx, assetID, orgID); err != nil {
		return err
	}
	s.log.Infof("asset %s deleted", assetID)
	return nil
}

// NameLike returns a window of assets whose name contains the term,
// case-insensitively. Total counts every match, not just the page.
func (s *Service) NameLike(ctx context.Context, name string, offset, limit int, sortOrder string) (page storage.AssetPage, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("asset", "name_like", t, err) }(time.Now())

	if strings.TrimSpace(name) == "" {
		return storage.AssetPage{}, fault.New(fault.InvalidArgument, "name is required")
	}
	w, err := storage.NewWindow(offset, limit, sortOrder)
	if err != nil {
		return storage.AssetPage{}, err
	}
	return s.store.ListAssets(ctx, storage.AssetFilter{NameLike: name}, w)
}

// Paginated returns one window of the asset listing, optionally filtered
// by exact symbol.
func (s *Service) Paginated(ctx context.Context, limit, offset int, sortOrder, symbol string) (page storage.AssetPage, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("asset", "paginated", t, err) }(time.Now())

	w, err := storage.NewWindow(offset, limit, sortOrder)
	if err != nil {
		return storage.AssetPage{}, err
	}
	return s.store.ListAssets(ctx, storage.AssetFilter{Symbol: symbol}, w)
}

// ByOwner lists assets owned by a fingerprint, optionally restricted to
// listable ones.
func (s *Service) ByOwner(ctx context.Context, ownerFP string, listableOnly bool, offset, limit int, sortOrder string) (page storage.AssetPage, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("asset", "by_owner", t, err) }(time.Now())

	if err = keys.ValidateFingerprint(ownerFP); err != nil {
		return storage.AssetPage{}, err
	}
	w, err := storage.NewWindow(offset, limit, sortOrder)
	if err != nil {
		return storage.AssetPage{}, err
	}
	return s.store.ListAssets(ctx, storage.AssetFilter{OwnerFingerprint: ownerFP, ListableOnly: listableOnly}, w)
}

// Streamed delivers the same window as Paginated, but as consecutive
// chunks handed to emit instead of one bulk page. Each chunk is an
// independent bounded read, so a concurrent writer may change the
// snapshot between chunks. Emission stops on the first emit error or when
// ctx is cancelled.
func (s *Service) Streamed(ctx context.Context, limit, offset int, sortOrder, symbol string, chunkSize int, emit func(storage.AssetPage) error) (err error) {
	defer func(t time.Time) { metrics.ObserveOperation("asset", "streamed", t, err) }(time.Now())

	w, err := storage.NewWindow(offset, limit, sortOrder)
	if err != nil {
		return err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultStreamChunk
	}
	if chunkSize > storage.StreamBatchSize {
		chunkSize = storage.StreamBatchSize
	}

	filter := storage.AssetFilter{Symbol: symbol}
	for _, chunk := range w.Chunks(chunkSize) {
		if err = ctx.Err(); err != nil {
			return fault.Wrap(fault.Unavailable, err, "stream cancelled")
		}

		page, listErr := s.store.ListAssets(ctx, filter, chunk)
		if listErr != nil {
			return listErr
		}
		// An exhausted window still emits its (possibly empty) page, so the
		// stream reports the same total as the bulk listing.
		if err = emit(page); err != nil {
			return err
		}
		metrics.ChunkStreamed()
		if len(page.Assets) < chunk.Limit {
			return nil
		}
	}
	return nil
}
