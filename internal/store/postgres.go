package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrRowNotFound is returned by the postgres lookups below when a row is
// absent; callers treat it the same as a cache miss.
var ErrRowNotFound = errors.New("store: row not found")

// postgresTable is the durable table of record backing the metadata store.
// Schema (created out of band by migrations, not by this package):
//
//	CREATE TABLE protocols (
//	    address     TEXT PRIMARY KEY,
//	    protocol    TEXT NOT NULL,
//	    token0      TEXT NOT NULL DEFAULT '',
//	    token1      TEXT NOT NULL DEFAULT '',
//	    init_block  BIGINT NOT NULL
//	);
//	CREATE TABLE tokens (
//	    address  TEXT PRIMARY KEY,
//	    symbol   TEXT NOT NULL,
//	    decimals SMALLINT NOT NULL
//	);
type postgresTable struct {
	pool *pgxpool.Pool
}

func newPostgresTable(ctx context.Context, dsn string) (*postgresTable, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	return &postgresTable{pool: pool}, nil
}

func (p *postgresTable) lookupProtocol(ctx context.Context, address string) (*protocolRow, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT address, protocol, token0, token1, init_block FROM protocols WHERE address = $1`, address)

	var r protocolRow
	if err := row.Scan(&r.Address, &r.Protocol, &r.Token0, &r.Token1, &r.InitBlock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRowNotFound
		}
		return nil, fmt.Errorf("store: scan protocol row: %w", err)
	}
	return &r, nil
}

func (p *postgresTable) tokenInfo(ctx context.Context, address string) (*tokenRow, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT address, symbol, decimals FROM tokens WHERE address = $1`, address)

	var r tokenRow
	if err := row.Scan(&r.Address, &r.Symbol, &r.Decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRowNotFound
		}
		return nil, fmt.Errorf("store: scan token row: %w", err)
	}
	return &r, nil
}

// upsertProtocol inserts a pool/market row. Idempotent on address per spec
// §6: a matching existing row is a no-op, a conflicting one is reported as
// conflict=true, which CommitBlock returns as ErrConflict (Fatal for the
// block, per §7).
func (p *postgresTable) upsertProtocol(ctx context.Context, r protocolRow) (conflict bool, err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := p.lookupProtocolTx(ctx, tx, r.Address)
	if err != nil && !errors.Is(err, ErrRowNotFound) {
		return false, err
	}
	if err == nil {
		if *existing != r {
			return true, nil
		}
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO protocols (address, protocol, token0, token1, init_block) VALUES ($1,$2,$3,$4,$5)`,
		r.Address, r.Protocol, r.Token0, r.Token1, r.InitBlock)
	if err != nil {
		return false, fmt.Errorf("store: insert protocol: %w", err)
	}
	return false, tx.Commit(ctx)
}

func (p *postgresTable) lookupProtocolTx(ctx context.Context, tx pgx.Tx, address string) (*protocolRow, error) {
	row := tx.QueryRow(ctx,
		`SELECT address, protocol, token0, token1, init_block FROM protocols WHERE address = $1`, address)
	var r protocolRow
	if err := row.Scan(&r.Address, &r.Protocol, &r.Token0, &r.Token1, &r.InitBlock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (p *postgresTable) upsertToken(ctx context.Context, r tokenRow) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO tokens (address, symbol, decimals) VALUES ($1,$2,$3)
		 ON CONFLICT (address) DO NOTHING`,
		r.Address, r.Symbol, r.Decimals)
	if err != nil {
		return fmt.Errorf("store: insert token: %w", err)
	}
	return nil
}

func (p *postgresTable) close() {
	p.pool.Close()
}

type protocolRow struct {
	Address   string
	Protocol  string
	Token0    string
	Token1    string
	InitBlock uint64
}

type tokenRow struct {
	Address  string
	Symbol   string
	Decimals uint8
}
