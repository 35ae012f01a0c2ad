package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nftmx/settlement-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateListing(ctx context.Context, l *model.Listing) error {
	if err := s.primary.CreateListing(ctx, l); err != nil {
		return err
	}
	s.cacheListing(ctx, l)
	return nil
}

func (s *CachedStore) DeleteListing(ctx context.Context, collection, assetID string) error {
	if err := s.primary.DeleteListing(ctx, collection, assetID); err != nil {
		return err
	}
	s.rdb.Del(ctx, listingCacheKey(collection, assetID))
	return nil
}

func (s *CachedStore) InsertSale(ctx context.Context, sale *model.Sale) error {
	if err := s.primary.InsertSale(ctx, sale); err != nil {
		return err
	}
	// Invalidate the sales caches this record lands in.
	s.rdb.Del(ctx, salesCollectionKey(sale.Collection),
		salesAccountKey(sale.Seller), salesAccountKey(sale.Buyer))
	return nil
}

func (s *CachedStore) SaveFeePolicy(ctx context.Context, fee model.FeePolicy) error {
	if err := s.primary.SaveFeePolicy(ctx, fee); err != nil {
		return err
	}
	if data, err := json.Marshal(fee); err == nil {
		s.rdb.Set(ctx, feePolicyKey(), data, s.ttl)
	}
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetListing(ctx context.Context, collection, assetID string) (*model.Listing, error) {
	data, err := s.rdb.Get(ctx, listingCacheKey(collection, assetID)).Bytes()
	if err == nil {
		var l model.Listing
		if json.Unmarshal(data, &l) == nil {
			return &l, nil
		}
	}

	// Cache miss: read from primary.
	l, err := s.primary.GetListing(ctx, collection, assetID)
	if err != nil {
		return nil, err
	}

	s.cacheListing(ctx, l)
	return l, nil
}

func (s *CachedStore) GetFeePolicy(ctx context.Context) (model.FeePolicy, error) {
	data, err := s.rdb.Get(ctx, feePolicyKey()).Bytes()
	if err == nil {
		var fee model.FeePolicy
		if json.Unmarshal(data, &fee) == nil {
			return fee, nil
		}
	}

	fee, err := s.primary.GetFeePolicy(ctx)
	if err != nil {
		return model.FeePolicy{}, err
	}

	if data, err := json.Marshal(fee); err == nil {
		s.rdb.Set(ctx, feePolicyKey(), data, s.ttl)
	}
	return fee, nil
}

func (s *CachedStore) GetSalesByCollection(ctx context.Context, collection string) ([]model.Sale, error) {
	data, err := s.rdb.Get(ctx, salesCollectionKey(collection)).Bytes()
	if err == nil {
		var sales []model.Sale
		if json.Unmarshal(data, &sales) == nil {
			return sales, nil
		}
	}

	sales, err := s.primary.GetSalesByCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sales); err == nil {
		s.rdb.Set(ctx, salesCollectionKey(collection), data, s.ttl)
	}
	return sales, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListListings(ctx context.Context) ([]model.Listing, error) {
	return s.primary.ListListings(ctx)
}

func (s *CachedStore) GetSalesByAccount(ctx context.Context, account model.Account) ([]model.Sale, error) {
	return s.primary.GetSalesByAccount(ctx, account)
}

// --- Cache helpers ---

func (s *CachedStore) cacheListing(ctx context.Context, l *model.Listing) {
	if data, err := json.Marshal(l); err == nil {
		s.rdb.Set(ctx, listingCacheKey(l.Collection, l.AssetID), data, s.ttl)
	}
}

func listingCacheKey(collection, assetID string) string {
	return fmt.Sprintf("listing:%s:%s", collection, assetID)
}
func salesCollectionKey(collection string) string {
	return fmt.Sprintf("sales:collection:%s", collection)
}
func salesAccountKey(account model.Account) string {
	return fmt.Sprintf("sales:account:%s", account)
}
func feePolicyKey() string { return "feepolicy" }
