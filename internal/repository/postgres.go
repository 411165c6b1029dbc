package repository

import (
	"auction-ledger/internal/auctionerrors"
	model "auction-ledger/internal/models"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const auctionColumns = `id, seller_id, title, description, category, min_bid, current_bid,
	current_bidder_id, status, end_time, created_at, updated_at, version`

const bidColumns = `id, auction_id, bidder_id, amount, created_at`

// PostgresRepo is an AuctionStore backed by PostgreSQL. Swaps are conditional
// updates on the version column, committed together with the bid insert.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo connects to the database and verifies the connection
func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// EnsureSchema creates the tables and indexes if they do not exist
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return storageErr("ensure schema", err)
	}
	return nil
}

// Close releases the connection pool
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// CreateAuction inserts a new auction row
func (r *PostgresRepo) CreateAuction(ctx context.Context, a model.Auction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auctions (`+auctionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.AuctionID, a.SellerID, a.Title, a.Description, a.Category, a.MinBid, a.CurrentBid,
		a.CurrentBidderID, string(a.Status), a.EndTime, a.CreatedAt, a.UpdatedAt, a.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create auction %s: %w", a.AuctionID, auctionerrors.ErrDuplicateID)
		}
		return storageErr("create auction "+a.AuctionID, err)
	}
	return nil
}

// GetAuction loads a single auction
func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, auctionID)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, storageErr("get auction "+auctionID, err)
	}
	return a, nil
}

// CompareAndSwap updates the auction row only if its version is unchanged
func (r *PostgresRepo) CompareAndSwap(ctx context.Context, expectedVersion int64, next model.Auction, bid *model.Bid) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storageErr("begin swap", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE auctions
		    SET current_bid = $3, current_bidder_id = $4, status = $5, updated_at = $6, version = $7
		  WHERE id = $1 AND version = $2`,
		next.AuctionID, expectedVersion, next.CurrentBid, next.CurrentBidderID, string(next.Status), next.UpdatedAt, next.Version,
	)
	if err != nil {
		return storageErr("swap auction "+next.AuctionID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM auctions WHERE id = $1)", next.AuctionID).Scan(&exists); err != nil {
			return storageErr("swap auction "+next.AuctionID, err)
		}
		if !exists {
			return fmt.Errorf("swap auction %s: %w", next.AuctionID, auctionerrors.ErrAuctionNotFound)
		}
		return fmt.Errorf("swap auction %s: expected version %d: %w", next.AuctionID, expectedVersion, auctionerrors.ErrStaleSnapshot)
	}

	if bid != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO bids (`+bidColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt,
		)
		if err != nil {
			return storageErr("insert bid "+bid.BidID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit swap", err)
	}
	return nil
}

// ListAuctions returns auctions matching q, newest first
func (r *PostgresRepo) ListAuctions(ctx context.Context, q AuctionQuery) ([]model.Auction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auctionColumns+` FROM auctions
		  WHERE ($1 = '' OR status = $1) AND ($2 = '' OR seller_id = $2)
		  ORDER BY created_at DESC, id`,
		string(q.Status), q.SellerID,
	)
	if err != nil {
		return nil, storageErr("list auctions", err)
	}
	auctions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Auction, error) {
		return scanAuction(row)
	})
	if err != nil {
		return nil, storageErr("list auctions", err)
	}
	return auctions, nil
}

// ListExpired returns ACTIVE auctions whose end time has passed
func (r *PostgresRepo) ListExpired(ctx context.Context, now time.Time) ([]model.Auction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE status = 'ACTIVE' AND end_time <= $1 ORDER BY end_time, id`,
		now,
	)
	if err != nil {
		return nil, storageErr("list expired", err)
	}
	auctions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Auction, error) {
		return scanAuction(row)
	})
	if err != nil {
		return nil, storageErr("list expired", err)
	}
	return auctions, nil
}

// GetBidsByAuction returns the bid log of an auction in commit order
func (r *PostgresRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM auctions WHERE id = $1)", auctionID).Scan(&exists); err != nil {
		return nil, storageErr("get bids for auction "+auctionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return r.queryBids(ctx, `SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY seq`, auctionID)
}

// GetBidsByBidder returns a bidder's bids, newest first
func (r *PostgresRepo) GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	return r.queryBids(ctx, `SELECT `+bidColumns+` FROM bids WHERE bidder_id = $1 ORDER BY seq DESC`, bidderID)
}

func (r *PostgresRepo) queryBids(ctx context.Context, sql string, arg string) ([]model.Bid, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, storageErr("query bids", err)
	}
	bids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Bid, error) {
		var b model.Bid
		err := row.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt)
		return b, err
	})
	if err != nil {
		return nil, storageErr("scan bids", err)
	}
	return bids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (model.Auction, error) {
	var a model.Auction
	var status string
	err := row.Scan(&a.AuctionID, &a.SellerID, &a.Title, &a.Description, &a.Category, &a.MinBid, &a.CurrentBid,
		&a.CurrentBidderID, &status, &a.EndTime, &a.CreatedAt, &a.UpdatedAt, &a.Version)
	if err != nil {
		return model.Auction{}, err
	}
	a.Status = model.Status(status)
	if !a.Status.Valid() {
		return model.Auction{}, fmt.Errorf("auction %s has unknown status %q", a.AuctionID, status)
	}
	a.EndTime = a.EndTime.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("postgres: %s: %w: %w", op, auctionerrors.ErrStorage, err)
}
