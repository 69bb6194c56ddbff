// Package asset defines the registry's asset records and the validation
// rules applied before they reach the store.
package asset

import (
	"strings"
	"time"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/keys"
)

// Name length bounds enforced at creation and on rename.
const (
	MinNameLen = 3
	MaxNameLen = 32
)

// Asset is a tradable/listable item owned by exactly one organization at a
// time. Version is the store-assigned optimistic-concurrency token; it starts
// at 1 and increments on every committed mutation.
type Asset struct {
	ID               string     `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Symbol           string     `json:"symbol" db:"symbol"`
	Description      string     `json:"description" db:"description"`
	Organization     string     `json:"organization" db:"organization"`
	OwnerFingerprint string     `json:"owner_fp" db:"owner_fp"`
	UpdatedBy        string     `json:"updated_by" db:"updated_by"`
	Tradable         bool       `json:"tradable" db:"tradable"`
	Listable         bool       `json:"listable" db:"listable"`
	Version          int64      `json:"version" db:"version"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time `json:"-" db:"deleted_at"`
}

// Deleted reports whether the asset has been logically deleted.
func (a Asset) Deleted() bool { return a.DeletedAt != nil }

// New builds an asset with a freshly minted id. New assets are neither
// tradable nor listable until their owner opts in.
func New(name, symbol, description, organization, creatorFP string) (Asset, error) {
	if err := ValidateName(name); err != nil {
		return Asset{}, err
	}
	if strings.TrimSpace(organization) == "" {
		return Asset{}, fault.New(fault.InvalidArgument, "organization is required")
	}
	if err := keys.ValidateFingerprint(creatorFP); err != nil {
		return Asset{}, err
	}

	now := time.Now().UTC()
	return Asset{
		ID:               keys.NewID(),
		Name:             name,
		Symbol:           symbol,
		Description:      description,
		Organization:     organization,
		OwnerFingerprint: creatorFP,
		UpdatedBy:        creatorFP,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ValidateName enforces the registry's name length bounds.
func ValidateName(name string) error {
	if l := len(name); l < MinNameLen || l > MaxNameLen {
		return fault.Errorf(fault.InvalidArgument,
			"name should be between %d and %d characters long", MinNameLen, MaxNameLen)
	}
	return nil
}

// Update carries a sparse partial update: only non-nil fields are applied,
// merged against the stored record inside the same transaction that checks
// the version token.
type Update struct {
	Name        *string `json:"name,omitempty"`
	Symbol      *string `json:"symbol,omitempty"`
	Description *string `json:"description,omitempty"`
	Listable    *bool   `json:"listable,omitempty"`
	Tradable    *bool   `json:"tradable,omitempty"`
}

// Empty reports whether no field was supplied.
func (u Update) Empty() bool {
	return u.Name == nil && u.Symbol == nil && u.Description == nil &&
		u.Listable == nil && u.Tradable == nil
}

// Validate rejects supplied fields that would corrupt the record.
func (u Update) Validate() error {
	if u.Name != nil {
		if err := ValidateName(*u.Name); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the supplied fields into a copy of the stored asset and
// stamps the mutator. Timestamps and version are assigned by the store.
func (u Update) Apply(a Asset, updatedBy string) Asset {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Symbol != nil {
		a.Symbol = *u.Symbol
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.Listable != nil {
		a.Listable = *u.Listable
	}
	if u.Tradable != nil {
		a.Tradable = *u.Tradable
	}
	a.UpdatedBy = updatedBy
	return a
}
