// Package market implements the listing ledger and the settlement engine:
// creating and canceling listings, and atomically exchanging payment for an
// asset with a three-way split between seller, royalty beneficiary, and
// platform fee recipient.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nftmx/settlement-engine/internal/metrics"
	"github.com/nftmx/settlement-engine/internal/model"
	"github.com/nftmx/settlement-engine/internal/policy"
	"github.com/nftmx/settlement-engine/internal/split"
	"github.com/nftmx/settlement-engine/internal/store"
	"github.com/nftmx/settlement-engine/internal/token"
)

// Service handles listing and settlement operations. Uses a mutex for
// serialized execution (single-instance): no call observes a partially
// settled listing, and concurrent buys on one key settle first-committer-wins.
// For horizontal scaling, replace with distributed locking or database-level
// optimistic concurrency.
//
// The engine holds its own escrow account on the token ledger and asset
// registry. During a buy the price and the asset both pass through escrow so
// that every failable step stays reversible by the engine alone. The engine
// issues no callbacks while holding its lock; event delivery is asynchronous
// via the hub.
type Service struct {
	store    store.Store
	ledger   token.Ledger
	registry token.Registry
	policy   *policy.Policy
	escrow   model.Account
	mu       sync.Mutex
	hub      *WSHub // optional WebSocket hub for event broadcasts
}

// NewService creates a settlement service. escrow is the engine's own
// account on the external services; sellers approve it for asset transfers
// and buyers approve it for payment. Pass nil for hub if event broadcasting
// is not needed.
func NewService(st store.Store, ledger token.Ledger, registry token.Registry,
	pol *policy.Policy, escrow model.Account, hub *WSHub) (*Service, error) {
	if escrow.IsZero() {
		return nil, errors.New("market: escrow account must be non-zero")
	}
	return &Service{
		store:    st,
		ledger:   ledger,
		registry: registry,
		policy:   pol,
		escrow:   escrow,
		hub:      hub,
	}, nil
}

// Escrow returns the engine's escrow account, which sellers and buyers must
// approve before listing and buying.
func (s *Service) Escrow() model.Account { return s.escrow }

// FeePolicy returns the current fee configuration.
func (s *Service) FeePolicy() model.FeePolicy { return s.policy.Fee() }

// Owner returns the administrative owner account.
func (s *Service) Owner() model.Account { return s.policy.Owner() }

// List creates a listing for (collection, assetID) at price, offered by
// caller. The caller must currently own the asset and the engine must hold
// transfer approval for it. Rejects duplicates rather than overwriting so a
// prior listing's approval state is never silently orphaned.
func (s *Service) List(ctx context.Context, collection, assetID string,
	price decimal.Decimal, caller model.Account) (*model.Listing, error) {
	if caller.IsZero() {
		return nil, fmt.Errorf("%w: zero caller", ErrNotOwnerOrNotApproved)
	}
	if !split.ValidPrice(price) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.registry.OwnerOf(ctx, collection, assetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOwnerOrNotApproved, err)
	}
	if owner != caller {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrNotOwnerOrNotApproved, assetID, owner)
	}
	if err := s.engineApproved(ctx, owner, collection, assetID); err != nil {
		return nil, err
	}

	listing := &model.Listing{
		Collection: collection,
		AssetID:    assetID,
		Seller:     caller,
		Price:      price,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.CreateListing(ctx, listing); err != nil {
		if errors.Is(err, store.ErrAlreadyListed) {
			return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyListed, collection, assetID)
		}
		return nil, fmt.Errorf("create listing: %w", err)
	}

	metrics.ListingsCreated.WithLabelValues(collection).Inc()
	metrics.ActiveListings.Inc()

	slog.Info("listing created",
		"collection", collection,
		"asset_id", assetID,
		"seller", caller,
		"price", price.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:       EventListed,
			Collection: collection,
			AssetID:    assetID,
			Seller:     string(caller),
			Price:      price.String(),
		})
	}
	return listing, nil
}

// Cancel removes the listing for (collection, assetID). Only the stored
// seller or the administrative owner may cancel; the owner override exists
// for emergency delisting.
func (s *Service) Cancel(ctx context.Context, collection, assetID string, caller model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.store.GetListing(ctx, collection, assetID)
	if err != nil {
		if errors.Is(err, store.ErrListingNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrNoSuchListing, collection, assetID)
		}
		return fmt.Errorf("read listing: %w", err)
	}

	if caller != listing.Seller && !s.policy.IsOwner(caller) {
		return fmt.Errorf("%w: %s", ErrNotSellerOrOwner, caller)
	}

	if err := s.store.DeleteListing(ctx, collection, assetID); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}

	metrics.ListingsCanceled.WithLabelValues(collection).Inc()
	metrics.ActiveListings.Dec()

	slog.Info("listing canceled",
		"collection", collection,
		"asset_id", assetID,
		"caller", caller,
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:       EventCanceled,
			Collection: collection,
			AssetID:    assetID,
		})
	}
	return nil
}

// Get returns the listing for a key, or (nil, false, nil) when absent.
// Absence is not an error.
func (s *Service) Get(ctx context.Context, collection, assetID string) (*model.Listing, bool, error) {
	listing, err := s.store.GetListing(ctx, collection, assetID)
	if errors.Is(err, store.ErrListingNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read listing: %w", err)
	}
	return listing, true, nil
}

// Listings returns all active listings.
func (s *Service) Listings(ctx context.Context) ([]model.Listing, error) {
	return s.store.ListListings(ctx)
}

// SalesByCollection returns the immutable settlement records for a collection.
func (s *Service) SalesByCollection(ctx context.Context, collection string) ([]model.Sale, error) {
	return s.store.GetSalesByCollection(ctx, collection)
}

// SalesByAccount returns the settlement records an account took part in.
func (s *Service) SalesByAccount(ctx context.Context, account model.Account) ([]model.Sale, error) {
	return s.store.GetSalesByAccount(ctx, account)
}

// Buy atomically exchanges payment for the listed asset. Either every leg
// commits — escrow pull, royalty, platform fee, seller proceeds, asset
// handoff, listing removal — or none does and the caller gets a
// distinguishable error kind with the ledger byte-for-byte unchanged.
func (s *Service) Buy(ctx context.Context, collection, assetID string, buyer model.Account) (*model.Sale, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.store.GetListing(ctx, collection, assetID)
	if err != nil {
		if errors.Is(err, store.ErrListingNotFound) {
			metrics.SettlementFailures.WithLabelValues("no_such_listing").Inc()
			return nil, fmt.Errorf("%w: %s/%s", ErrNoSuchListing, collection, assetID)
		}
		return nil, fmt.Errorf("read listing: %w", err)
	}

	if buyer == listing.Seller {
		metrics.SettlementFailures.WithLabelValues("self_trade").Inc()
		return nil, fmt.Errorf("%w: %s", ErrSellerCannotBuyOwnListing, buyer)
	}

	// The registry is the source of truth for ownership; the cached seller
	// may have disposed of the asset outside the marketplace since listing.
	if err := s.verifyTransferable(ctx, listing); err != nil {
		metrics.SettlementFailures.WithLabelValues("asset_not_transferable").Inc()
		return nil, err
	}

	beneficiary, royaltyBps, err := s.registry.RoyaltyInfo(ctx, collection, assetID)
	if err != nil {
		return nil, fmt.Errorf("royalty query: %w", err)
	}

	fee := s.policy.Fee()
	result, err := split.Compute(listing.Price, royaltyBps, fee.FeeBps)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if beneficiary.IsZero() {
		result = result.FoldRoyalty()
	}

	// Commit marker: remove the listing before any funds move, so any other
	// observer sees NoSuchListing rather than a half-settled state. Restored
	// on every failure path below.
	if err := s.store.DeleteListing(ctx, collection, assetID); err != nil {
		return nil, fmt.Errorf("delete listing: %w", err)
	}
	restore := func() {
		if err := s.store.CreateListing(ctx, listing); err != nil {
			slog.Error("failed to restore listing after aborted settlement",
				"collection", collection, "asset_id", assetID, "err", err)
		}
	}

	// Leg 1: pull the full price from the buyer into escrow. Covers the
	// implicit balance/allowance check; failure means nothing has moved.
	if err := s.ledger.TransferFrom(ctx, s.escrow, buyer, s.escrow, listing.Price); err != nil {
		restore()
		metrics.SettlementFailures.WithLabelValues("payment_failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	// Leg 2: take the asset into escrow using the approval granted at
	// listing time. Still fully reversible: refund the buyer and restore.
	if err := s.registry.TransferFrom(ctx, s.escrow, listing.Seller, s.escrow, collection, assetID); err != nil {
		s.refund(ctx, buyer, listing.Price)
		restore()
		metrics.SettlementFailures.WithLabelValues("asset_not_transferable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrAssetNotTransferable, err)
	}

	// Payout legs. From here every transfer spends the engine's own escrow
	// balance to validated non-zero accounts; a conforming ledger accepts
	// them. A rejection now is a collaborator fault — compensate as far as
	// the allowance model permits and surface it.
	disbursed := decimal.Zero
	payout := func(to model.Account, amount decimal.Decimal) error {
		if !amount.IsPositive() {
			return nil
		}
		if err := s.ledger.TransferFrom(ctx, s.escrow, s.escrow, to, amount); err != nil {
			return err
		}
		disbursed = disbursed.Add(amount)
		return nil
	}

	payoutErr := payout(beneficiary, result.RoyaltyAmount)
	if payoutErr == nil {
		payoutErr = payout(fee.FeeRecipient, result.PlatformFeeAmount)
	}
	if payoutErr == nil {
		payoutErr = payout(listing.Seller, result.SellerProceeds)
	}
	if payoutErr != nil {
		s.abortAfterEscrow(ctx, listing, buyer, disbursed)
		metrics.SettlementFailures.WithLabelValues("payment_failed").Inc()
		return nil, fmt.Errorf("%w: payout leg: %v", ErrPaymentFailed, payoutErr)
	}

	// Final handoff: the engine owns the asset, so only a collaborator
	// fault can reject this.
	if err := s.registry.TransferFrom(ctx, s.escrow, s.escrow, buyer, collection, assetID); err != nil {
		slog.Error("asset handoff rejected after payout",
			"collection", collection, "asset_id", assetID, "err", err)
		metrics.SettlementFailures.WithLabelValues("asset_not_transferable").Inc()
		return nil, fmt.Errorf("%w: handoff: %v", ErrAssetNotTransferable, err)
	}

	sale := &model.Sale{
		ID:                uuid.New().String(),
		Collection:        collection,
		AssetID:           assetID,
		Seller:            listing.Seller,
		Buyer:             buyer,
		Price:             listing.Price,
		RoyaltyAmount:     result.RoyaltyAmount,
		PlatformFeeAmount: result.PlatformFeeAmount,
		SellerProceeds:    result.SellerProceeds,
		ExecutedAt:        time.Now().UTC(),
	}
	if err := s.store.InsertSale(ctx, sale); err != nil {
		// Settlement is final; the record is best-effort.
		slog.Error("failed to record sale", "sale_id", sale.ID, "err", err)
	}

	metrics.PurchasesTotal.WithLabelValues(collection).Inc()
	metrics.PurchaseVolume.WithLabelValues(collection).Add(priceAsFloat(listing.Price))
	metrics.ActiveListings.Dec()
	metrics.SettlementLatency.Observe(time.Since(start).Seconds())

	slog.Info("purchase settled",
		"sale_id", sale.ID,
		"collection", collection,
		"asset_id", assetID,
		"seller", listing.Seller,
		"buyer", buyer,
		"price", listing.Price.String(),
		"royalty", result.RoyaltyAmount.String(),
		"platform_fee", result.PlatformFeeAmount.String(),
		"proceeds", result.SellerProceeds.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:              EventPurchased,
			Collection:        collection,
			AssetID:           assetID,
			Seller:            string(listing.Seller),
			Buyer:             string(buyer),
			Price:             listing.Price.String(),
			RoyaltyAmount:     result.RoyaltyAmount.String(),
			PlatformFeeAmount: result.PlatformFeeAmount.String(),
			SellerProceeds:    result.SellerProceeds.String(),
		})
	}
	return sale, nil
}

// SetFee replaces the platform fee configuration. Owner-gated; persisted so
// the configuration survives restarts.
func (s *Service) SetFee(ctx context.Context, newBps int64, newRecipient, caller model.Account) (model.FeePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.policy.Fee()
	fee, err := s.policy.SetFee(newBps, newRecipient, caller)
	if err != nil {
		return prev, err
	}

	if err := s.store.SaveFeePolicy(ctx, fee); err != nil {
		// Keep in-memory and persisted config consistent.
		if rerr := s.policy.Restore(prev); rerr != nil {
			slog.Error("failed to restore fee policy", "err", rerr)
		}
		return prev, fmt.Errorf("persist fee policy: %w", err)
	}

	metrics.FeeUpdates.Inc()

	slog.Info("fee policy updated",
		"fee_bps", fee.FeeBps,
		"recipient", fee.FeeRecipient,
		"caller", caller,
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:         EventFeeUpdated,
			FeeBps:       fee.FeeBps,
			FeeRecipient: string(fee.FeeRecipient),
		})
	}
	return fee, nil
}

// TransferOwnership hands the administrative owner role to newOwner.
func (s *Service) TransferOwnership(newOwner, caller model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.policy.TransferOwnership(newOwner, caller); err != nil {
		return err
	}
	slog.Info("ownership transferred", "new_owner", newOwner, "caller", caller)
	return nil
}

// engineApproved checks that the engine holds transfer approval for the
// asset, either per-asset or via operator approval.
func (s *Service) engineApproved(ctx context.Context, owner model.Account, collection, assetID string) error {
	approved, err := s.registry.GetApproved(ctx, collection, assetID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotOwnerOrNotApproved, err)
	}
	if approved == s.escrow {
		return nil
	}
	all, err := s.registry.IsApprovedForAll(ctx, owner, s.escrow)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotOwnerOrNotApproved, err)
	}
	if !all {
		return fmt.Errorf("%w: engine lacks transfer approval for %s/%s",
			ErrNotOwnerOrNotApproved, collection, assetID)
	}
	return nil
}

// verifyTransferable re-checks at settlement time that the stored seller
// still owns the asset and the engine can move it.
func (s *Service) verifyTransferable(ctx context.Context, listing *model.Listing) error {
	owner, err := s.registry.OwnerOf(ctx, listing.Collection, listing.AssetID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetNotTransferable, err)
	}
	if owner != listing.Seller {
		return fmt.Errorf("%w: %s/%s now owned by %s, listed by %s",
			ErrAssetNotTransferable, listing.Collection, listing.AssetID, owner, listing.Seller)
	}
	if err := s.engineApproved(ctx, owner, listing.Collection, listing.AssetID); err != nil {
		return fmt.Errorf("%w: approval revoked", ErrAssetNotTransferable)
	}
	return nil
}

// refund returns escrowed funds to the buyer during an abort.
func (s *Service) refund(ctx context.Context, buyer model.Account, amount decimal.Decimal) {
	if err := s.ledger.TransferFrom(ctx, s.escrow, s.escrow, buyer, amount); err != nil {
		slog.Error("failed to refund buyer during aborted settlement",
			"buyer", buyer, "amount", amount.String(), "err", err)
	}
}

// abortAfterEscrow unwinds a settlement that failed mid-payout: the asset
// goes back to the seller, the buyer is refunded whatever escrow still
// holds, and the listing is restored. Already-disbursed legs cannot be
// clawed back under the allowance model; a non-zero shortfall is a
// collaborator fault and is logged as such.
func (s *Service) abortAfterEscrow(ctx context.Context, listing *model.Listing,
	buyer model.Account, disbursed decimal.Decimal) {
	if err := s.registry.TransferFrom(ctx, s.escrow, s.escrow, listing.Seller,
		listing.Collection, listing.AssetID); err != nil {
		slog.Error("failed to return asset during aborted settlement",
			"collection", listing.Collection, "asset_id", listing.AssetID, "err", err)
	}

	remaining := listing.Price.Sub(disbursed)
	if remaining.IsPositive() {
		s.refund(ctx, buyer, remaining)
	}
	if disbursed.IsPositive() {
		slog.Error("settlement aborted with unrecoverable disbursed legs",
			"collection", listing.Collection, "asset_id", listing.AssetID,
			"disbursed", disbursed.String())
	}

	if err := s.store.CreateListing(ctx, listing); err != nil {
		slog.Error("failed to restore listing after aborted settlement",
			"collection", listing.Collection, "asset_id", listing.AssetID, "err", err)
	}
}

// priceAsFloat converts an amount for the volume counter. Metrics only;
// never used in settlement arithmetic.
func priceAsFloat(amount decimal.Decimal) float64 {
	f, _ := amount.Float64()
	return f
}
