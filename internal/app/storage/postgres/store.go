// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/xrf-labs/asset-registry/internal/app/domain/asset"
	"github.com/xrf-labs/asset-registry/internal/app/domain/certificate"
	"github.com/xrf-labs/asset-registry/internal/app/domain/contract"
	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/storage"
)

// Store implements the storage interfaces over one relational database.
type Store struct {
	db *sqlx.DB
}

var _ storage.AssetStore = (*Store)(nil)
var _ storage.ContractStore = (*Store)(nil)
var _ storage.CertificateStore = (*Store)(nil)

// New wraps the database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// NewFromSQL wraps a plain *sql.DB opened with the postgres driver.
func NewFromSQL(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// storeErr maps driver failures onto the registry taxonomy. Anything that
// is not a constraint violation is treated as retryable infrastructure
// trouble.
func storeErr(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return fault.Wrap(fault.Internal, err, op+": unique violation")
		case pgForeignKeyViolation:
			return fault.Wrap(fault.NotFound, err, op+": referenced record missing")
		}
	}
	return fault.Wrap(fault.Unavailable, err, op)
}

// escapeLike escapes SQL wildcard characters in a user-supplied search term.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(term)
}

// AssetStore --------------------------------------------------------------

const assetColumns = `id, name, symbol, description, organization, owner_fp,
	updated_by, tradable, listable, version, created_at, updated_at, deleted_at`

func (s *Store) CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	a.Version = 1
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, name, symbol, description, organization, owner_fp,
			updated_by, tradable, listable, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.Name, a.Symbol, a.Description, a.Organization, a.OwnerFingerprint,
		a.UpdatedBy, a.Tradable, a.Listable, a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return asset.Asset{}, storeErr(err, "create asset")
	}
	return a, nil
}

func (s *Store) GetAsset(ctx context.Context, id string) (asset.Asset, error) {
	var a asset.Asset
	err := s.db.GetContext(ctx, &a, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return asset.Asset{}, fault.Errorf(fault.NotFound, "asset %s not found", id)
	}
	if err != nil {
		return asset.Asset{}, storeErr(err, "get asset")
	}
	return a, nil
}

func (s *Store) PutAsset(ctx context.Context, a asset.Asset, expectedVersion int64) (asset.Asset, error) {
	var updated asset.Asset
	err := s.db.GetContext(ctx, &updated, `
		UPDATE assets
		SET name = $3, symbol = $4, description = $5, organization = $6,
			owner_fp = $7, updated_by = $8, tradable = $9, listable = $10,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING `+assetColumns+`
	`, a.ID, expectedVersion, a.Name, a.Symbol, a.Description, a.Organization,
		a.OwnerFingerprint, a.UpdatedBy, a.Tradable, a.Listable)
	if errors.Is(err, sql.ErrNoRows) {
		// The row is either gone or carries a newer version token.
		if _, getErr := s.GetAsset(ctx, a.ID); getErr != nil {
			return asset.Asset{}, getErr
		}
		return asset.Asset{}, fault.Errorf(fault.Conflict,
			"asset %s version token %d is stale", a.ID, expectedVersion)
	}
	if err != nil {
		return asset.Asset{}, storeErr(err, "put asset")
	}
	return updated, nil
}

func (s *Store) DeleteAsset(ctx context.Context, id, org string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE assets
		SET deleted_at = now(), updated_at = now(), version = version + 1
		WHERE id = $1 AND organization = $2 AND deleted_at IS NULL
	`, id, org)
	if err != nil {
		return storeErr(err, "delete asset")
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		return nil
	}

	// Zero rows: distinguish a missing or already-deleted asset from one
	// that a concurrent transfer moved to another organization.
	var live bool
	if checkErr := s.db.GetContext(ctx, &live, `
		SELECT EXISTS (SELECT 1 FROM assets WHERE id = $1 AND deleted_at IS NULL)
	`, id); checkErr != nil {
		return storeErr(checkErr, "delete ownership check")
	}
	if live {
		return fault.Errorf(fault.PermissionDenied,
			"asset %s is not held by organization %s", id, org)
	}
	return fault.Errorf(fault.NotFound, "asset %s not found", id)
}

var sortColumns = map[storage.SortField]string{
	storage.SortByName:      "lower(name)",
	storage.SortBySymbol:    "lower(symbol)",
	storage.SortByCreatedAt: "created_at",
	storage.SortByUpdatedAt: "updated_at",
}

// filterClause builds the WHERE tail and argument list shared by the page
// query and its match count.
func filterClause(f storage.AssetFilter) (string, []any) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	if f.Symbol != "" {
		args = append(args, f.Symbol)
		conds = append(conds, fmt.Sprintf("symbol = $%d", len(args)))
	}
	if f.NameLike != "" {
		args = append(args, "%"+escapeLike(f.NameLike)+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if f.OwnerFingerprint != "" {
		args = append(args, f.OwnerFingerprint)
		conds = append(conds, fmt.Sprintf("owner_fp = $%d", len(args)))
	}
	if f.ListableOnly {
		conds = append(conds, "listable = true")
	}
	return strings.Join(conds, " AND "), args
}

func (s *Store) ListAssets(ctx context.Context, f storage.AssetFilter, w storage.Window) (storage.AssetPage, error) {
	where, args := filterClause(f)

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT count(*) FROM assets WHERE `+where, args...); err != nil {
		return storage.AssetPage{}, storeErr(err, "count assets")
	}

	orderBy, ok := sortColumns[w.Sort.Field]
	if !ok {
		orderBy = "lower(name)"
	}
	dir := "ASC"
	if w.Sort.Dir == storage.Desc {
		dir = "DESC"
	}

	pageArgs := append(args, w.Limit, w.Offset)
	query := fmt.Sprintf(`
		SELECT `+assetColumns+`
		FROM assets
		WHERE %s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d
	`, where, orderBy, dir, len(pageArgs)-1, len(pageArgs))

	assets := []asset.Asset{}
	if err := s.db.SelectContext(ctx, &assets, query, pageArgs...); err != nil {
		return storage.AssetPage{}, storeErr(err, "list assets")
	}
	return storage.AssetPage{Assets: assets, Total: total, Offset: w.Offset}, nil
}

func (s *Store) TransferAsset(ctx context.Context, assetID, currentOrg, newOrg, newOwnerFP string, cert certificate.TransferCertificate) (asset.Asset, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return asset.Asset{}, storeErr(err, "begin transfer")
	}
	defer tx.Rollback()

	var moved asset.Asset
	err = tx.GetContext(ctx, &moved, `
		UPDATE assets
		SET organization = $3, owner_fp = $4, updated_by = $4,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND organization = $2 AND deleted_at IS NULL
		RETURNING `+assetColumns+`
	`, assetID, currentOrg, newOrg, newOwnerFP)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if checkErr := tx.GetContext(ctx, &exists, `
			SELECT EXISTS (SELECT 1 FROM assets WHERE id = $1 AND deleted_at IS NULL)
		`, assetID); checkErr != nil {
			return asset.Asset{}, storeErr(checkErr, "transfer ownership check")
		}
		if !exists {
			return asset.Asset{}, fault.Errorf(fault.NotFound, "asset %s not found", assetID)
		}
		return asset.Asset{}, fault.Errorf(fault.PermissionDenied,
			"asset %s is not owned by organization %s", assetID, currentOrg)
	}
	if err != nil {
		return asset.Asset{}, storeErr(err, "transfer asset")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transfer_certificates (certificate_id, asset_id, previous_owner_fp,
			new_owner_fp, new_owner_org, payload, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cert.CertificateID, cert.AssetID, cert.PreviousOwnerFingerprint,
		cert.NewOwnerFingerprint, cert.NewOwnerOrganization, cert.Payload, cert.IssuedAt)
	if err != nil {
		return asset.Asset{}, storeErr(err, "insert certificate")
	}

	if err := tx.Commit(); err != nil {
		return asset.Asset{}, storeErr(err, "commit transfer")
	}
	return moved, nil
}

// ContractStore -----------------------------------------------------------

// contractRow adapts a contract record to the relational schema; the
// currency array and nullable royalty pair need driver types.
type contractRow struct {
	ContractID         string          `db:"contract_id"`
	AssetID            string          `db:"asset_id"`
	Version            string          `db:"version"`
	Summary            string          `db:"summary"`
	Details            string          `db:"details"`
	MinPrice           float32         `db:"min_price"`
	AnonymousBuyers    bool            `db:"anonymous_buyers"`
	RoyaltyReceiver    sql.NullString  `db:"royalty_receiver"`
	RoyaltyPercentage  sql.NullFloat64 `db:"royalty_percentage"`
	AcceptedCurrencies pq.StringArray  `db:"accepted_currencies"`
	UpdateCount        int64           `db:"update_count"`
	LastUpdatedBy      string          `db:"last_updated_by"`
	CreatedAt          time.Time       `db:"created_at"`
	LastUpdated        time.Time       `db:"last_updated"`
}

func toContractRow(c contract.Contract) contractRow {
	row := contractRow{
		ContractID:         c.ContractID,
		AssetID:            c.AssetID,
		Version:            c.Version,
		Summary:            c.Summary,
		Details:            c.Details,
		MinPrice:           c.MinPrice,
		AnonymousBuyers:    c.AnonymousBuyers,
		AcceptedCurrencies: pq.StringArray(contract.CurrencyStrings(c.AcceptedCurrencies)),
		UpdateCount:        int64(c.UpdateCount),
		LastUpdatedBy:      c.LastUpdatedBy,
		CreatedAt:          c.CreatedAt,
		LastUpdated:        c.LastUpdated,
	}
	if c.RoyaltyReceiver != nil {
		row.RoyaltyReceiver = sql.NullString{String: *c.RoyaltyReceiver, Valid: true}
	}
	if c.RoyaltyPercentage != nil {
		row.RoyaltyPercentage = sql.NullFloat64{Float64: float64(*c.RoyaltyPercentage), Valid: true}
	}
	return row
}

func (r contractRow) toDomain() (contract.Contract, error) {
	currencies, err := contract.ParseCurrencies([]string(r.AcceptedCurrencies))
	if err != nil {
		return contract.Contract{}, fault.Wrap(fault.Internal, err, "stored currency list is corrupt")
	}
	c := contract.Contract{
		ContractID:         r.ContractID,
		AssetID:            r.AssetID,
		Version:            r.Version,
		Summary:            r.Summary,
		Details:            r.Details,
		MinPrice:           r.MinPrice,
		AnonymousBuyers:    r.AnonymousBuyers,
		AcceptedCurrencies: currencies,
		UpdateCount:        uint64(r.UpdateCount),
		LastUpdatedBy:      r.LastUpdatedBy,
		CreatedAt:          r.CreatedAt,
		LastUpdated:        r.LastUpdated,
	}
	if r.RoyaltyReceiver.Valid {
		v := r.RoyaltyReceiver.String
		c.RoyaltyReceiver = &v
	}
	if r.RoyaltyPercentage.Valid {
		v := float32(r.RoyaltyPercentage.Float64)
		c.RoyaltyPercentage = &v
	}
	return c, nil
}

const contractColumns = `contract_id, asset_id, version, summary, details, min_price,
	anonymous_buyers, royalty_receiver, royalty_percentage, accepted_currencies,
	update_count, last_updated_by, created_at, last_updated`

func (s *Store) CreateContract(ctx context.Context, c contract.Contract) (contract.Contract, error) {
	row := toContractRow(c)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (:contract_id, :asset_id, :version, :summary, :details, :min_price,
			:anonymous_buyers, :royalty_receiver, :royalty_percentage, :accepted_currencies,
			:update_count, :last_updated_by, :created_at, :last_updated)
	`, row)
	if err != nil {
		return contract.Contract{}, storeErr(err, "create contract")
	}
	return c, nil
}

func (s *Store) GetContract(ctx context.Context, contractID string) (contract.Contract, error) {
	var row contractRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+contractColumns+` FROM contracts WHERE contract_id = $1
	`, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.Contract{}, fault.Errorf(fault.NotFound, "contract %s not found", contractID)
	}
	if err != nil {
		return contract.Contract{}, storeErr(err, "get contract")
	}
	return row.toDomain()
}

func (s *Store) GetContractByAsset(ctx context.Context, assetID string) (contract.Contract, error) {
	var row contractRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE asset_id = $1
		ORDER BY last_updated DESC, contract_id DESC
		LIMIT 1
	`, assetID)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.Contract{}, fault.Errorf(fault.NotFound, "no contract for asset %s", assetID)
	}
	if err != nil {
		return contract.Contract{}, storeErr(err, "get contract by asset")
	}
	return row.toDomain()
}

func (s *Store) PutContract(ctx context.Context, c contract.Contract, expectedCount uint64) (contract.Contract, error) {
	row := toContractRow(c)
	var updated contractRow
	err := s.db.GetContext(ctx, &updated, `
		UPDATE contracts
		SET version = $3, summary = $4, details = $5, min_price = $6,
			anonymous_buyers = $7, royalty_receiver = $8, royalty_percentage = $9,
			accepted_currencies = $10, update_count = $2 + 1,
			last_updated_by = $11, last_updated = now()
		WHERE contract_id = $1 AND update_count = $2
		RETURNING `+contractColumns+`
	`, row.ContractID, int64(expectedCount), row.Version, row.Summary, row.Details,
		row.MinPrice, row.AnonymousBuyers, row.RoyaltyReceiver, row.RoyaltyPercentage,
		row.AcceptedCurrencies, row.LastUpdatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetContract(ctx, c.ContractID); getErr != nil {
			return contract.Contract{}, getErr
		}
		return contract.Contract{}, fault.Errorf(fault.Conflict,
			"contract %s update_count token %d is stale", c.ContractID, expectedCount)
	}
	if err != nil {
		return contract.Contract{}, storeErr(err, "put contract")
	}
	return updated.toDomain()
}

// CertificateStore --------------------------------------------------------

const certificateColumns = `certificate_id, asset_id, previous_owner_fp, new_owner_fp,
	new_owner_org, payload, issued_at`

func (s *Store) GetCertificate(ctx context.Context, certificateID string) (certificate.TransferCertificate, error) {
	var cert certificate.TransferCertificate
	err := s.db.GetContext(ctx, &cert, `
		SELECT `+certificateColumns+` FROM transfer_certificates WHERE certificate_id = $1
	`, certificateID)
	if errors.Is(err, sql.ErrNoRows) {
		return certificate.TransferCertificate{}, fault.Errorf(fault.NotFound, "certificate %s not found", certificateID)
	}
	if err != nil {
		return certificate.TransferCertificate{}, storeErr(err, "get certificate")
	}
	return cert, nil
}

func (s *Store) ListCertificatesByAsset(ctx context.Context, assetID string) ([]certificate.TransferCertificate, error) {
	certs := []certificate.TransferCertificate{}
	err := s.db.SelectContext(ctx, &certs, `
		SELECT `+certificateColumns+`
		FROM transfer_certificates
		WHERE asset_id = $1
		ORDER BY issued_at ASC
	`, assetID)
	if err != nil {
		return nil, storeErr(err, "list certificates")
	}
	return certs, nil
}
