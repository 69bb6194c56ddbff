// Package memory is an in-memory implementation of the storage interfaces.
// It is safe for concurrent use and is primarily intended for tests and
// local development; it honors the same versioning and atomicity contracts
// as the postgres store.
package memory

import (
	"sort"
	"strings"
	"time"

	"context"
	"sync"

	"github.com/xrf-labs/asset-registry/internal/app/domain/asset"
	"github.com/xrf-labs/asset-registry/internal/app/domain/certificate"
	"github.com/xrf-labs/asset-registry/internal/app/domain/contract"
	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/storage"
)

// Store holds all registry records behind one mutex. Transfer runs under the
// write lock, so readers observe either the pre-transfer or post-transfer
// state, never a mix.
type Store struct {
	mu           sync.RWMutex
	assets       map[string]asset.Asset
	contracts    map[string]contract.Contract
	certificates map[string]certificate.TransferCertificate
}

var _ storage.AssetStore = (*Store)(nil)
var _ storage.ContractStore = (*Store)(nil)
var _ storage.CertificateStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		assets:       make(map[string]asset.Asset),
		contracts:    make(map[string]contract.Contract),
		certificates: make(map[string]certificate.TransferCertificate),
	}
}

// touch assigns a commit timestamp strictly after the previous one so
// updated_at stays monotonic per record even within one clock tick.
func touch(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

// AssetStore --------------------------------------------------------------

func (s *Store) CreateAsset(_ context.Context, a asset.Asset) (asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		return asset.Asset{}, fault.New(fault.Internal, "asset id must be minted before insert")
	}
	if _, exists := s.assets[a.ID]; exists {
		return asset.Asset{}, fault.Errorf(fault.Internal, "asset %s already exists", a.ID)
	}

	a.Version = 1
	s.assets[a.ID] = a
	return a, nil
}

func (s *Store) GetAsset(_ context.Context, id string) (asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAssetLocked(id)
}

func (s *Store) getAssetLocked(id string) (asset.Asset, error) {
	a, ok := s.assets[id]
	if !ok || a.Deleted() {
		return asset.Asset{}, fault.Errorf(fault.NotFound, "asset %s not found", id)
	}
	return a, nil
}

func (s *Store) PutAsset(_ context.Context, a asset.Asset, expectedVersion int64) (asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.getAssetLocked(a.ID)
	if err != nil {
		return asset.Asset{}, err
	}
	if stored.Version != expectedVersion {
		return asset.Asset{}, fault.Errorf(fault.Conflict,
			"asset %s version moved from %d to %d", a.ID, expectedVersion, stored.Version)
	}

	a.CreatedAt = stored.CreatedAt
	a.DeletedAt = stored.DeletedAt
	a.Version = stored.Version + 1
	a.UpdatedAt = touch(stored.UpdatedAt)
	s.assets[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAsset(_ context.Context, id, org string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.getAssetLocked(id)
	if err != nil {
		return err
	}
	if stored.Organization != org {
		return fault.Errorf(fault.PermissionDenied,
			"asset %s is not held by organization %s", id, org)
	}
	now := touch(stored.UpdatedAt)
	stored.DeletedAt = &now
	stored.UpdatedAt = now
	stored.Version++
	s.assets[id] = stored
	return nil
}

func (s *Store) ListAssets(_ context.Context, f storage.AssetFilter, w storage.Window) (storage.AssetPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]asset.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		if a.Deleted() || !matches(a, f) {
			continue
		}
		matched = append(matched, a)
	}
	orderAssets(matched, w.Sort)

	start, end := w.Slice(len(matched))
	page := make([]asset.Asset, end-start)
	copy(page, matched[start:end])
	return storage.AssetPage{Assets: page, Total: len(matched), Offset: w.Offset}, nil
}

func matches(a asset.Asset, f storage.AssetFilter) bool {
	if f.Symbol != "" && a.Symbol != f.Symbol {
		return false
	}
	if f.NameLike != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.NameLike)) {
		return false
	}
	if f.OwnerFingerprint != "" && a.OwnerFingerprint != f.OwnerFingerprint {
		return false
	}
	if f.ListableOnly && !a.Listable {
		return false
	}
	return true
}

// orderAssets sorts by the whitelisted field with the id as tie-breaker so
// windows over equal keys stay stable.
func orderAssets(assets []asset.Asset, s storage.Sort) {
	less := func(x, y asset.Asset) bool {
		switch s.Field {
		case storage.SortBySymbol:
			if x.Symbol != y.Symbol {
				return strings.ToLower(x.Symbol) < strings.ToLower(y.Symbol)
			}
		case storage.SortByCreatedAt:
			if !x.CreatedAt.Equal(y.CreatedAt) {
				return x.CreatedAt.Before(y.CreatedAt)
			}
		case storage.SortByUpdatedAt:
			if !x.UpdatedAt.Equal(y.UpdatedAt) {
				return x.UpdatedAt.Before(y.UpdatedAt)
			}
		default:
			if !strings.EqualFold(x.Name, y.Name) {
				return strings.ToLower(x.Name) < strings.ToLower(y.Name)
			}
		}
		return x.ID < y.ID
	}
	sort.SliceStable(assets, func(i, j int) bool {
		if s.Dir == storage.Desc {
			return less(assets[j], assets[i])
		}
		return less(assets[i], assets[j])
	})
}

func (s *Store) TransferAsset(_ context.Context, assetID, currentOrg, newOrg, newOwnerFP string, cert certificate.TransferCertificate) (asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.getAssetLocked(assetID)
	if err != nil {
		return asset.Asset{}, err
	}
	if stored.Organization != currentOrg {
		return asset.Asset{}, fault.Errorf(fault.PermissionDenied,
			"asset %s is not owned by organization %s", assetID, currentOrg)
	}
	if _, exists := s.certificates[cert.CertificateID]; exists {
		return asset.Asset{}, fault.Errorf(fault.Internal, "certificate %s already exists", cert.CertificateID)
	}

	stored.Organization = newOrg
	stored.OwnerFingerprint = newOwnerFP
	stored.UpdatedBy = newOwnerFP
	stored.UpdatedAt = touch(stored.UpdatedAt)
	stored.Version++

	s.assets[assetID] = stored
	s.certificates[cert.CertificateID] = cert
	return stored, nil
}

// ContractStore -----------------------------------------------------------

func (s *Store) CreateContract(_ context.Context, c contract.Contract) (contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ContractID == "" {
		return contract.Contract{}, fault.New(fault.Internal, "contract id must be minted before insert")
	}
	if _, exists := s.contracts[c.ContractID]; exists {
		return contract.Contract{}, fault.Errorf(fault.Internal, "contract %s already exists", c.ContractID)
	}
	if a, ok := s.assets[c.AssetID]; !ok || a.Deleted() {
		return contract.Contract{}, fault.Errorf(fault.NotFound, "asset %s not found", c.AssetID)
	}

	s.contracts[c.ContractID] = cloneContract(c)
	return c, nil
}

func (s *Store) GetContract(_ context.Context, contractID string) (contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[contractID]
	if !ok {
		return contract.Contract{}, fault.Errorf(fault.NotFound, "contract %s not found", contractID)
	}
	return cloneContract(c), nil
}

func (s *Store) GetContractByAsset(_ context.Context, assetID string) (contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best contract.Contract
	found := false
	for _, c := range s.contracts {
		if c.AssetID != assetID {
			continue
		}
		if !found || c.LastUpdated.After(best.LastUpdated) {
			best = c
			found = true
		}
	}
	if !found {
		return contract.Contract{}, fault.Errorf(fault.NotFound, "no contract for asset %s", assetID)
	}
	return cloneContract(best), nil
}

func (s *Store) PutContract(_ context.Context, c contract.Contract, expectedCount uint64) (contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.contracts[c.ContractID]
	if !ok {
		return contract.Contract{}, fault.Errorf(fault.NotFound, "contract %s not found", c.ContractID)
	}
	if stored.UpdateCount != expectedCount {
		return contract.Contract{}, fault.Errorf(fault.Conflict,
			"contract %s update_count moved from %d to %d", c.ContractID, expectedCount, stored.UpdateCount)
	}

	c.CreatedAt = stored.CreatedAt
	c.UpdateCount = stored.UpdateCount + 1
	c.LastUpdated = touch(stored.LastUpdated)
	s.contracts[c.ContractID] = cloneContract(c)
	return c, nil
}

func cloneContract(c contract.Contract) contract.Contract {
	currencies := make([]contract.Currency, len(c.AcceptedCurrencies))
	copy(currencies, c.AcceptedCurrencies)
	c.AcceptedCurrencies = currencies
	if c.RoyaltyReceiver != nil {
		r := *c.RoyaltyReceiver
		c.RoyaltyReceiver = &r
	}
	if c.RoyaltyPercentage != nil {
		p := *c.RoyaltyPercentage
		c.RoyaltyPercentage = &p
	}
	return c
}

// CertificateStore --------------------------------------------------------

func (s *Store) GetCertificate(_ context.Context, certificateID string) (certificate.TransferCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certificates[certificateID]
	if !ok {
		return certificate.TransferCertificate{}, fault.Errorf(fault.NotFound, "certificate %s not found", certificateID)
	}
	return cert, nil
}

func (s *Store) ListCertificatesByAsset(_ context.Context, assetID string) ([]certificate.TransferCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []certificate.TransferCertificate
	for _, cert := range s.certificates {
		if cert.AssetID == assetID {
			out = append(out, cert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}
