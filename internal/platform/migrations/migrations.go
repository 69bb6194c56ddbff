// Package migrations applies the registry schema. Statements are embedded
// and executed in order; each uses IF NOT EXISTS so re-running is safe.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		symbol        TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		organization  TEXT NOT NULL,
		owner_fp      TEXT NOT NULL,
		updated_by    TEXT NOT NULL,
		tradable      BOOLEAN NOT NULL DEFAULT FALSE,
		listable      BOOLEAN NOT NULL DEFAULT FALSE,
		version       BIGINT NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL,
		deleted_at    TIMESTAMPTZ
	)`,

	`CREATE INDEX IF NOT EXISTS idx_assets_name ON assets (lower(name)) WHERE deleted_at IS NULL`,

	`CREATE INDEX IF NOT EXISTS idx_assets_symbol ON assets (symbol) WHERE deleted_at IS NULL`,

	`CREATE INDEX IF NOT EXISTS idx_assets_owner ON assets (owner_fp) WHERE deleted_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS contracts (
		contract_id          TEXT PRIMARY KEY,
		asset_id             TEXT NOT NULL REFERENCES assets (id),
		version              TEXT NOT NULL,
		summary              TEXT NOT NULL DEFAULT '',
		details              TEXT NOT NULL DEFAULT '',
		min_price            REAL NOT NULL DEFAULT 0,
		anonymous_buyers     BOOLEAN NOT NULL DEFAULT FALSE,
		royalty_receiver     TEXT,
		royalty_percentage   REAL,
		accepted_currencies  TEXT[] NOT NULL,
		update_count         BIGINT NOT NULL DEFAULT 0,
		last_updated_by      TEXT NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		last_updated         TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_contracts_asset ON contracts (asset_id, last_updated DESC)`,

	`CREATE TABLE IF NOT EXISTS transfer_certificates (
		certificate_id     TEXT PRIMARY KEY,
		asset_id           TEXT NOT NULL REFERENCES assets (id),
		previous_owner_fp  TEXT NOT NULL,
		new_owner_fp       TEXT NOT NULL,
		new_owner_org      TEXT NOT NULL,
		payload            TEXT NOT NULL,
		issued_at          TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_certificates_asset ON transfer_certificates (asset_id, issued_at)`,
}

// Apply executes every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Count reports how many statements Apply runs; used by tests.
func Count() int { return len(statements) }
