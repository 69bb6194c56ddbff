// Package contract defines versioned sale terms bound to a registry asset.
package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/keys"
)

// Contract is one revision of the sale terms for an asset. UpdateCount is
// the optimistic-concurrency token: it starts at 0 and increments by exactly
// one per committed mutation. Version is a content hash identifying the
// revision's field values.
type Contract struct {
	ContractID         string     `json:"contract_id" db:"contract_id"`
	AssetID            string     `json:"asset_id" db:"asset_id"`
	Version            string     `json:"version" db:"version"`
	Summary            string     `json:"summary" db:"summary"`
	Details            string     `json:"details" db:"details"`
	MinPrice           float32    `json:"min_price" db:"min_price"`
	AnonymousBuyers    bool       `json:"anonymous_buyers" db:"anonymous_buyers"`
	RoyaltyReceiver    *string    `json:"royalty_receiver,omitempty" db:"royalty_receiver"`
	RoyaltyPercentage  *float32   `json:"royalty_percentage,omitempty" db:"royalty_percentage"`
	AcceptedCurrencies []Currency `json:"accepted_currencies" db:"-"`
	UpdateCount        uint64     `json:"update_count" db:"update_count"`
	LastUpdatedBy      string     `json:"last_updated_by" db:"last_updated_by"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	LastUpdated        time.Time  `json:"last_updated" db:"last_updated"`
}

// New builds the initial revision of a contract for an existing asset.
func New(assetID, summary, details string, minPrice float32, anonymousBuyers bool,
	userFP string, royaltyReceiver *string, royaltyPercentage *float32,
	currencies []Currency) (Contract, error) {

	if strings.TrimSpace(assetID) == "" {
		return Contract{}, fault.New(fault.InvalidArgument, "asset_id is required")
	}
	if err := keys.ValidateFingerprint(userFP); err != nil {
		return Contract{}, err
	}
	if minPrice < 0 {
		return Contract{}, fault.New(fault.InvalidArgument, "min_price must not be negative")
	}
	if err := ValidateRoyalty(royaltyReceiver, royaltyPercentage); err != nil {
		return Contract{}, err
	}
	if len(currencies) == 0 {
		return Contract{}, fault.New(fault.InvalidArgument, "accepted_currencies must not be empty")
	}

	now := time.Now().UTC()
	c := Contract{
		ContractID:         keys.NewID(),
		AssetID:            assetID,
		Summary:            summary,
		Details:            details,
		MinPrice:           minPrice,
		AnonymousBuyers:    anonymousBuyers,
		RoyaltyReceiver:    royaltyReceiver,
		RoyaltyPercentage:  royaltyPercentage,
		AcceptedCurrencies: currencies,
		UpdateCount:        0,
		LastUpdatedBy:      userFP,
		CreatedAt:          now,
		LastUpdated:        now,
	}
	c.Version = c.ContentHash()
	return c, nil
}

// ValidateRoyalty enforces joint optionality: receiver and percentage are
// supplied together or not at all, and the percentage stays within [0,100].
func ValidateRoyalty(receiver *string, percentage *float32) error {
	if (receiver == nil) != (percentage == nil) {
		return fault.New(fault.InvalidArgument,
			"royalty_receiver and royalty_percentage must be supplied together")
	}
	if receiver != nil && strings.TrimSpace(*receiver) == "" {
		return fault.New(fault.InvalidArgument, "royalty_receiver must not be blank")
	}
	if percentage != nil && (*percentage < 0 || *percentage > 100) {
		return fault.New(fault.InvalidArgument, "royalty_percentage must be between 0 and 100")
	}
	return nil
}

// ContentHash derives the revision identifier from the contract's fields.
// Two revisions with identical terms at the same update count share a hash.
func (c Contract) ContentHash() string {
	receiver := ""
	if c.RoyaltyReceiver != nil {
		receiver = *c.RoyaltyReceiver
	}
	percentage := ""
	if c.RoyaltyPercentage != nil {
		percentage = fmt.Sprintf("%.4f", *c.RoyaltyPercentage)
	}
	canonical := strings.Join([]string{
		c.AssetID,
		c.Summary,
		c.Details,
		fmt.Sprintf("%.4f", c.MinPrice),
		fmt.Sprintf("%t", c.AnonymousBuyers),
		receiver,
		percentage,
		strings.Join(CurrencyStrings(c.AcceptedCurrencies), ","),
		fmt.Sprintf("%d", c.UpdateCount),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Update carries a sparse partial update of the mutable sale terms.
type Update struct {
	Summary            *string  `json:"summary,omitempty"`
	Details            *string  `json:"details,omitempty"`
	MinPrice           *float32 `json:"min_price,omitempty"`
	AnonymousBuyers    *bool    `json:"anonymous_buyers,omitempty"`
	RoyaltyReceiver    *string  `json:"royalty_receiver,omitempty"`
	RoyaltyPercentage  *float32 `json:"royalty_percentage,omitempty"`
	AcceptedCurrencies []string `json:"accepted_currencies,omitempty"`
}

// Empty reports whether no field was supplied.
func (u Update) Empty() bool {
	return u.Summary == nil && u.Details == nil && u.MinPrice == nil &&
		u.AnonymousBuyers == nil && u.RoyaltyReceiver == nil &&
		u.RoyaltyPercentage == nil && len(u.AcceptedCurrencies) == 0
}

// Apply merges the supplied fields into a copy of the stored revision,
// bumps the update count by one and recomputes the content hash. Royalty
// fields are validated against the merged result so a caller can change
// one half of the pair only if the other half is already set.
func (u Update) Apply(c Contract, updatedBy string) (Contract, error) {
	if u.Summary != nil {
		c.Summary = *u.Summary
	}
	if u.Details != nil {
		c.Details = *u.Details
	}
	if u.MinPrice != nil {
		if *u.MinPrice < 0 {
			return Contract{}, fault.New(fault.InvalidArgument, "min_price must not be negative")
		}
		c.MinPrice = *u.MinPrice
	}
	if u.AnonymousBuyers != nil {
		c.AnonymousBuyers = *u.AnonymousBuyers
	}
	if u.RoyaltyReceiver != nil {
		c.RoyaltyReceiver = u.RoyaltyReceiver
	}
	if u.RoyaltyPercentage != nil {
		c.RoyaltyPercentage = u.RoyaltyPercentage
	}
	if err := ValidateRoyalty(c.RoyaltyReceiver, c.RoyaltyPercentage); err != nil {
		return Contract{}, err
	}
	if len(u.AcceptedCurrencies) > 0 {
		currencies, err := ParseCurrencies(u.AcceptedCurrencies)
		if err != nil {
			return Contract{}, err
		}
		c.AcceptedCurrencies = currencies
	}

	c.UpdateCount++
	c.LastUpdatedBy = updatedBy
	c.LastUpdated = time.Now().UTC()
	c.Version = c.ContentHash()
	return c, nil
}
