// Package contracts implements the contract registry manager: versioned
// sale terms bound to existing assets.
package contracts

import (
	"context"
	"strings"
	"time"

	"github.com/xrf-labs/asset-registry/internal/app/domain/contract"
	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/keys"
	"github.com/xrf-labs/asset-registry/internal/app/metrics"
	"github.com/xrf-labs/asset-registry/internal/app/storage"
	"github.com/xrf-labs/asset-registry/pkg/logger"
)

// CreateRequest carries the fields of a new contract. Royalty fields obey
// joint optionality: both or neither.
type CreateRequest struct {
	AssetID            string
	Summary            string
	Details            string
	MinPrice           float32
	AnonymousBuyers    bool
	UserFingerprint    string
	RoyaltyReceiver    *string
	RoyaltyPercentage  *float32
	AcceptedCurrencies []string
}

// Service manages contract records.
type Service struct {
	assets    storage.AssetStore
	contracts storage.ContractStore
	log       *logger.Logger
}

// New constructs a contract service.
func New(assets storage.AssetStore, contracts storage.ContractStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("contracts")
	}
	return &Service{assets: assets, contracts: contracts, log: log}
}

// Create binds the initial revision of a contract to an existing,
// non-deleted asset. All validation happens before any store write.
func (s *Service) Create(ctx context.Context, req CreateRequest) (c contract.Contract, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("contract", "create", t, err) }(time.Now())

	currencies, err := contract.ParseCurrencies(req.AcceptedCurrencies)
	if err != nil {
		return contract.Contract{}, err
	}

	live, err := s.assets.GetAsset(ctx, req.AssetID)
	if err != nil {
		return contract.Contract{}, err
	}

	c, err = contract.New(live.ID, req.Summary, req.Details, req.MinPrice,
		req.AnonymousBuyers, req.UserFingerprint, req.RoyaltyReceiver,
		req.RoyaltyPercentage, currencies)
	if err != nil {
		return contract.Contract{}, err
	}

	created, err := s.contracts.CreateContract(ctx, c)
	if err != nil {
		return contract.Contract{}, err
	}
	s.log.Infof("contract %s created for asset %s", created.ContractID, created.AssetID)
	return created, nil
}

// Find returns the contract bound to the asset. When several revisions
// exist, the most recently updated one wins.
func (s *Service) Find(ctx context.Context, assetID string) (c contract.Contract, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("contract", "find", t, err) }(time.Now())

	if strings.TrimSpace(assetID) == "" {
		return contract.Contract{}, fault.New(fault.InvalidArgument, "asset_id is required")
	}
	return s.contracts.GetContractByAsset(ctx, assetID)
}

// Update applies the supplied fields to a contract revision, bumping
// update_count by exactly one. A concurrent writer who committed first
// makes this call fail with Conflict.
func (s *Service) Update(ctx context.Context, contractID string, u contract.Update, userFP string) (c contract.Contract, err error) {
	defer func(t time.Time) { metrics.ObserveOperation("contract", "update", t, err) }(time.Now())

	if strings.TrimSpace(contractID) == "" {
		return contract.Contract{}, fault.New(fault.InvalidArgument, "contract_id is required")
	}
	if u.Empty() {
		return contract.Contract{}, fault.New(fault.InvalidArgument, "at least one updatable field is required")
	}
	if err = keys.ValidateFingerprint(userFP); err != nil {
		return contract.Contract{}, err
	}

	current, err := s.contracts.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, err
	}

	next, err := u.Apply(current, userFP)
	if err != nil {
		return contract.Contract{}, err
	}

	updated, err := s.contracts.PutContract(ctx, next, current.UpdateCount)
	if err != nil {
		return contract.Contract{}, err
	}
	s.log.Infof("contract %s updated to revision %d", contractID, updated.UpdateCount)
	return updated, nil
}
