// Package app composes the registry services with their storage
// dependencies. Business logic lives in internal/app/services; this
// package only wires it together.
package app

import (
	"github.com/xrf-labs/asset-registry/internal/app/services/assets"
	"github.com/xrf-labs/asset-registry/internal/app/services/contracts"
	"github.com/xrf-labs/asset-registry/internal/app/services/transfers"
	"github.com/xrf-labs/asset-registry/internal/app/storage"
	"github.com/xrf-labs/asset-registry/internal/app/storage/memory"
	"github.com/xrf-labs/asset-registry/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation, which is what the tests use.
type Stores struct {
	Assets       storage.AssetStore
	Contracts    storage.ContractStore
	Certificates storage.CertificateStore
}

// Application ties the registry services together.
type Application struct {
	Assets    *assets.Service
	Contracts *contracts.Service
	Transfers *transfers.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Assets == nil {
		stores.Assets = mem
	}
	if stores.Contracts == nil {
		stores.Contracts = mem
	}
	if stores.Certificates == nil {
		stores.Certificates = mem
	}

	return &Application{
		Assets:    assets.New(stores.Assets, log.With("service", "assets")),
		Contracts: contracts.New(stores.Assets, stores.Contracts, log.With("service", "contracts")),
		Transfers: transfers.New(stores.Assets, stores.Certificates, log.With("service", "transfers")),
	}
}
