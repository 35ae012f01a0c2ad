// Package store defines the persistence interface for the settlement engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/nftmx/settlement-engine/internal/model"
)

var (
	// ErrListingNotFound is returned when no listing exists for a key.
	ErrListingNotFound = errors.New("store: listing not found")

	// ErrAlreadyListed is returned when a listing already exists for a key.
	ErrAlreadyListed = errors.New("store: asset already listed")

	// ErrFeePolicyNotFound is returned when no fee policy has been persisted yet.
	ErrFeePolicyNotFound = errors.New("store: fee policy not found")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Listing ledger ---

	// CreateListing persists a new listing. Returns ErrAlreadyListed if a
	// listing exists for the (collection, assetID) key.
	CreateListing(ctx context.Context, listing *model.Listing) error

	// GetListing retrieves the listing for a key, or ErrListingNotFound.
	GetListing(ctx context.Context, collection, assetID string) (*model.Listing, error)

	// DeleteListing removes the listing for a key. Returns
	// ErrListingNotFound when absent.
	DeleteListing(ctx context.Context, collection, assetID string) error

	// ListListings returns all active listings.
	ListListings(ctx context.Context) ([]model.Listing, error)

	// --- Immutable sales ledger ---

	// InsertSale appends an immutable settlement record.
	InsertSale(ctx context.Context, sale *model.Sale) error

	// GetSalesByCollection returns all sales for a collection.
	GetSalesByCollection(ctx context.Context, collection string) ([]model.Sale, error)

	// GetSalesByAccount returns all sales an account took part in, as
	// seller or buyer.
	GetSalesByAccount(ctx context.Context, account model.Account) ([]model.Sale, error)

	// --- Fee policy ---

	// SaveFeePolicy replaces the persisted fee configuration.
	SaveFeePolicy(ctx context.Context, fee model.FeePolicy) error

	// GetFeePolicy returns the persisted fee configuration, or
	// ErrFeePolicyNotFound when never set.
	GetFeePolicy(ctx context.Context) (model.FeePolicy, error)
}
