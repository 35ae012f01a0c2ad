package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nftmx/settlement-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateListing(ctx context.Context, l *model.Listing) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO listings (collection, asset_id, seller, price, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5)
		 ON CONFLICT (collection, asset_id) DO NOTHING`,
		l.Collection, l.AssetID, string(l.Seller), l.Price.String(), l.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrAlreadyListed, l.Collection, l.AssetID)
	}
	return nil
}

func (s *PostgresStore) GetListing(ctx context.Context, collection, assetID string) (*model.Listing, error) {
	var l model.Listing
	var seller, price string

	err := s.pool.QueryRow(ctx,
		`SELECT collection, asset_id, seller, price::TEXT, created_at
		 FROM listings WHERE collection = $1 AND asset_id = $2`,
		collection, assetID).
		Scan(&l.Collection, &l.AssetID, &seller, &price, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrListingNotFound, collection, assetID)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s/%s: %w", collection, assetID, err)
	}

	l.Seller = model.Account(seller)
	l.Price, _ = decimal.NewFromString(price)
	return &l, nil
}

func (s *PostgresStore) DeleteListing(ctx context.Context, collection, assetID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM listings WHERE collection = $1 AND asset_id = $2`,
		collection, assetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrListingNotFound, collection, assetID)
	}
	return nil
}

func (s *PostgresStore) ListListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT collection, asset_id, seller, price::TEXT, created_at
		 FROM listings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var seller, price string
		if err := rows.Scan(&l.Collection, &l.AssetID, &seller, &price, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Seller = model.Account(seller)
		l.Price, _ = decimal.NewFromString(price)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) InsertSale(ctx context.Context, sale *model.Sale) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sales (id, collection, asset_id, seller, buyer, price,
		                    royalty_amount, platform_fee_amount, seller_proceeds, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10)`,
		sale.ID, sale.Collection, sale.AssetID,
		string(sale.Seller), string(sale.Buyer),
		sale.Price.String(), sale.RoyaltyAmount.String(),
		sale.PlatformFeeAmount.String(), sale.SellerProceeds.String(),
		sale.ExecutedAt,
	)
	return err
}

func (s *PostgresStore) GetSalesByCollection(ctx context.Context, collection string) ([]model.Sale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, collection, asset_id, seller, buyer,
		        price::TEXT, royalty_amount::TEXT, platform_fee_amount::TEXT,
		        seller_proceeds::TEXT, executed_at
		 FROM sales WHERE collection = $1 ORDER BY executed_at`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSales(rows)
}

func (s *PostgresStore) GetSalesByAccount(ctx context.Context, account model.Account) ([]model.Sale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, collection, asset_id, seller, buyer,
		        price::TEXT, royalty_amount::TEXT, platform_fee_amount::TEXT,
		        seller_proceeds::TEXT, executed_at
		 FROM sales WHERE seller = $1 OR buyer = $1 ORDER BY executed_at`,
		string(account))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSales(rows)
}

func (s *PostgresStore) SaveFeePolicy(ctx context.Context, fee model.FeePolicy) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fee_policy (singleton, fee_bps, fee_recipient, updated_at)
		 VALUES (TRUE, $1, $2, $3)
		 ON CONFLICT (singleton) DO UPDATE
		 SET fee_bps = EXCLUDED.fee_bps,
		     fee_recipient = EXCLUDED.fee_recipient,
		     updated_at = EXCLUDED.updated_at`,
		fee.FeeBps, string(fee.FeeRecipient), fee.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetFeePolicy(ctx context.Context) (model.FeePolicy, error) {
	var fee model.FeePolicy
	var recipient string

	err := s.pool.QueryRow(ctx,
		`SELECT fee_bps, fee_recipient, updated_at FROM fee_policy WHERE singleton`).
		Scan(&fee.FeeBps, &recipient, &fee.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.FeePolicy{}, ErrFeePolicyNotFound
	}
	if err != nil {
		return model.FeePolicy{}, fmt.Errorf("get fee policy: %w", err)
	}

	fee.FeeRecipient = model.Account(recipient)
	return fee, nil
}

// scanSales reads pgx rows into Sale slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanSales(rows pgxRows) ([]model.Sale, error) {
	var sales []model.Sale
	for rows.Next() {
		var sale model.Sale
		var seller, buyer, price, royalty, fee, proceeds string

		if err := rows.Scan(&sale.ID, &sale.Collection, &sale.AssetID,
			&seller, &buyer, &price, &royalty, &fee, &proceeds,
			&sale.ExecutedAt); err != nil {
			return nil, err
		}

		sale.Seller = model.Account(seller)
		sale.Buyer = model.Account(buyer)
		sale.Price, _ = decimal.NewFromString(price)
		sale.RoyaltyAmount, _ = decimal.NewFromString(royalty)
		sale.PlatformFeeAmount, _ = decimal.NewFromString(fee)
		sale.SellerProceeds, _ = decimal.NewFromString(proceeds)

		sales = append(sales, sale)
	}
	return sales, rows.Err()
}
