// Package sqlstore persists the ledger in PostgreSQL or SQLite through sqlx.
// Queries are written with ? placeholders and rebound for the driver.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/pawn-ledger/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	_ repository.ContractRepository = (*ContractRepository)(nil)
	_ repository.CustomerRepository = (*CustomerRepository)(nil)
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the database and pings it.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	return db, nil
}

// translate maps driver errors onto repository sentinels.
func translate(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, what)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		liteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Migrate creates the ledger tables if they don't exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements, ok := schemas[db.DriverName()]
	if !ok {
		return fmt.Errorf("unsupported database driver %q", db.DriverName())
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// SQLite keeps decimals in TEXT columns so no precision is lost.
var schemas = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS customers (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			id_card TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers (phone)`,
		`CREATE TABLE IF NOT EXISTS contracts (
			id UUID PRIMARY KEY,
			customer_id UUID NOT NULL REFERENCES customers (id),
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL DEFAULT '',
			device TEXT NOT NULL,
			loan_amount NUMERIC(20, 2) NOT NULL,
			interest_rate NUMERIC(20, 4) NOT NULL,
			pawn_date DATE NOT NULL,
			due_date DATE NOT NULL,
			last_paid_date DATE NOT NULL,
			status TEXT NOT NULL,
			paperless BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contracts_customer ON contracts (customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status)`,
		`CREATE TABLE IF NOT EXISTS interest_segments (
			contract_id UUID NOT NULL REFERENCES contracts (id),
			seq INTEGER NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE,
			principal NUMERIC(20, 2) NOT NULL,
			interest_rate NUMERIC(20, 4) NOT NULL,
			PRIMARY KEY (contract_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS contract_transactions (
			id UUID PRIMARY KEY,
			contract_id UUID NOT NULL REFERENCES contracts (id),
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			amount NUMERIC(20, 2) NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contract_transactions_contract ON contract_transactions (contract_id, seq)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			id_card TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers (phone)`,
		`CREATE TABLE IF NOT EXISTS contracts (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers (id),
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL DEFAULT '',
			device TEXT NOT NULL,
			loan_amount TEXT NOT NULL,
			interest_rate TEXT NOT NULL,
			pawn_date DATE NOT NULL,
			due_date DATE NOT NULL,
			last_paid_date DATE NOT NULL,
			status TEXT NOT NULL,
			paperless BOOLEAN NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contracts_customer ON contracts (customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status)`,
		`CREATE TABLE IF NOT EXISTS interest_segments (
			contract_id TEXT NOT NULL REFERENCES contracts (id),
			seq INTEGER NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE,
			principal TEXT NOT NULL,
			interest_rate TEXT NOT NULL,
			PRIMARY KEY (contract_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS contract_transactions (
			id TEXT PRIMARY KEY,
			contract_id TEXT NOT NULL REFERENCES contracts (id),
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			occurred_at DATETIME NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contract_transactions_contract ON contract_transactions (contract_id, seq)`,
	},
}
