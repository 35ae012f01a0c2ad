package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nftmx/settlement-engine/internal/model"
)

type listingKey struct {
	collection string
	assetID    string
}

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[listingKey]*model.Listing
	sales    []model.Sale
	fee      *model.FeePolicy
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[listingKey]*model.Listing),
	}
}

func (s *MemoryStore) CreateListing(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := listingKey{l.Collection, l.AssetID}
	if _, ok := s.listings[k]; ok {
		return fmt.Errorf("%w: %s/%s", ErrAlreadyListed, l.Collection, l.AssetID)
	}

	// Store a copy to avoid external mutation.
	copy := *l
	s.listings[k] = &copy
	return nil
}

func (s *MemoryStore) GetListing(_ context.Context, collection, assetID string) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[listingKey{collection, assetID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrListingNotFound, collection, assetID)
	}
	copy := *l
	return &copy, nil
}

func (s *MemoryStore) DeleteListing(_ context.Context, collection, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := listingKey{collection, assetID}
	if _, ok := s.listings[k]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrListingNotFound, collection, assetID)
	}
	delete(s.listings, k)
	return nil
}

func (s *MemoryStore) ListListings(_ context.Context) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := make([]model.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		listings = append(listings, *l)
	}
	return listings, nil
}

func (s *MemoryStore) InsertSale(_ context.Context, sale *model.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales = append(s.sales, *sale)
	return nil
}

func (s *MemoryStore) GetSalesByCollection(_ context.Context, collection string) ([]model.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Sale
	for _, sale := range s.sales {
		if sale.Collection == collection {
			result = append(result, sale)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetSalesByAccount(_ context.Context, account model.Account) ([]model.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Sale
	for _, sale := range s.sales {
		if sale.Seller == account || sale.Buyer == account {
			result = append(result, sale)
		}
	}
	return result, nil
}

func (s *MemoryStore) SaveFeePolicy(_ context.Context, fee model.FeePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fee = &fee
	return nil
}

func (s *MemoryStore) GetFeePolicy(_ context.Context) (model.FeePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.fee == nil {
		return model.FeePolicy{}, ErrFeePolicyNotFound
	}
	return *s.fee, nil
}
