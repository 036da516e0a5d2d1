package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tokendrop/internal/model"
	"tokendrop/internal/store"
)

// Store provides Postgres persistence for events, pools, and claims.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Init creates the tables and indexes. The partial unique index on claims is
// what makes InsertPendingClaim atomic across processes.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			symbol TEXT NOT NULL,
			decimals SMALLINT NOT NULL,
			attendee_count BIGINT NOT NULL,
			creator TEXT NOT NULL,
			mint TEXT,
			mint_tx_id TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS pools (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL REFERENCES events(id),
			mint TEXT NOT NULL,
			pool_address TEXT NOT NULL,
			tree_address TEXT NOT NULL,
			tx_id TEXT NOT NULL,
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			compressed_amount BIGINT,
			compress_tx_id TEXT,
			compressed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (event_id, mint)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS pools_mint_ux ON pools (mint);

		CREATE TABLE IF NOT EXISTS claims (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL REFERENCES events(id),
			wallet TEXT NOT NULL,
			status TEXT NOT NULL,
			tx_id TEXT,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS claims_active_ux
			ON claims (event_id, wallet)
			WHERE status IN ('pending', 'confirmed');
	`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) InsertEvent(ctx context.Context, event model.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, title, symbol, decimals, attendee_count, creator, mint, mint_tx_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)
	`,
		event.ID, event.Title, event.Symbol, int16(event.Decimals), int64(event.AttendeeCount),
		event.Creator, event.Mint, event.MintTxID, event.CreatedAt,
	)
	return err
}

func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	var (
		event     model.Event
		decimals  int16
		attendees int64
		mint      *string
		mintTxID  *string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, symbol, decimals, attendee_count, creator, mint, mint_tx_id, created_at
		FROM events WHERE id = $1
	`, id)
	err := row.Scan(&event.ID, &event.Title, &event.Symbol, &decimals, &attendees,
		&event.Creator, &mint, &mintTxID, &event.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, store.ErrNotFound
		}
		return model.Event{}, err
	}
	event.Decimals = uint8(decimals)
	event.AttendeeCount = uint64(attendees)
	if mint != nil {
		event.Mint = *mint
	}
	if mintTxID != nil {
		event.MintTxID = *mintTxID
	}
	return event, nil
}

func (s *Store) SetEventMint(ctx context.Context, id, mint, mintTxID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE events SET mint = $2, mint_tx_id = $3 WHERE id = $1
	`, id, mint, mintTxID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertPool(ctx context.Context, pool model.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (id, event_id, mint, pool_address, tree_address, tx_id, degraded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		pool.ID, pool.EventID, pool.Mint, pool.PoolAddress, pool.TreeAddress,
		pool.TxID, pool.Degraded, pool.CreatedAt,
	)
	return err
}

func (s *Store) GetPoolByMint(ctx context.Context, mint string) (model.Pool, bool, error) {
	var (
		pool         model.Pool
		amount       *int64
		compressTxID *string
		compressedAt *time.Time
	)
	row := s.pool.QueryRow(ctx, `
		SELECT id, event_id, mint, pool_address, tree_address, tx_id, degraded,
			compressed_amount, compress_tx_id, compressed_at, created_at
		FROM pools WHERE mint = $1
	`, mint)
	err := row.Scan(&pool.ID, &pool.EventID, &pool.Mint, &pool.PoolAddress, &pool.TreeAddress,
		&pool.TxID, &pool.Degraded, &amount, &compressTxID, &compressedAt, &pool.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}
	if amount != nil {
		pool.CompressedAmount = uint64(*amount)
	}
	if compressTxID != nil {
		pool.CompressTxID = *compressTxID
	}
	pool.CompressedAt = compressedAt
	return pool, true, nil
}

func (s *Store) AttachCompression(ctx context.Context, poolID string, amount uint64, txID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pools
		SET compressed_amount = $2, compress_tx_id = $3, compressed_at = $4
		WHERE id = $1
	`, poolID, int64(amount), txID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ActiveClaim(ctx context.Context, eventID, wallet string) (model.Claim, bool, error) {
	claim, err := s.scanClaim(s.pool.QueryRow(ctx, `
		SELECT id, event_id, wallet, status, tx_id, error_message, created_at
		FROM claims
		WHERE event_id = $1 AND wallet = $2 AND status IN ('pending', 'confirmed')
	`, eventID, wallet))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Claim{}, false, nil
		}
		return model.Claim{}, false, err
	}
	return claim, true, nil
}

func (s *Store) InsertPendingClaim(ctx context.Context, claim model.Claim) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO claims (id, event_id, wallet, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)
	`, claim.ID, claim.EventID, claim.Wallet, claim.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrDuplicateClaim
		}
		return err
	}
	return nil
}

func (s *Store) ResolveClaim(ctx context.Context, id string, status model.ClaimStatus, txID, errorMessage string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE claims
		SET status = $2, tx_id = NULLIF($3, ''), error_message = NULLIF($4, '')
		WHERE id = $1 AND status = 'pending'
	`, id, string(status), txID, errorMessage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ClaimsByEvent(ctx context.Context, eventID string) ([]model.Claim, error) {
	return s.queryClaims(ctx, `
		SELECT id, event_id, wallet, status, tx_id, error_message, created_at
		FROM claims WHERE event_id = $1 ORDER BY created_at, id
	`, eventID)
}

func (s *Store) ClaimsByWallet(ctx context.Context, wallet string) ([]model.Claim, error) {
	return s.queryClaims(ctx, `
		SELECT id, event_id, wallet, status, tx_id, error_message, created_at
		FROM claims WHERE wallet = $1 ORDER BY created_at, id
	`, wallet)
}

func (s *Store) queryClaims(ctx context.Context, query string, arg any) ([]model.Claim, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Claim, 0)
	for rows.Next() {
		claim, err := s.scanClaim(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, claim)
	}
	return items, rows.Err()
}

func (s *Store) scanClaim(row pgx.Row) (model.Claim, error) {
	var (
		claim  model.Claim
		status string
		txID   *string
		msg    *string
	)
	err := row.Scan(&claim.ID, &claim.EventID, &claim.Wallet, &status, &txID, &msg, &claim.CreatedAt)
	if err != nil {
		return model.Claim{}, err
	}
	claim.Status = model.ClaimStatus(status)
	if txID != nil {
		claim.TxID = *txID
	}
	if msg != nil {
		claim.ErrorMessage = *msg
	}
	return claim, nil
}
