package market

import "errors"

// Listing and settlement error kinds. Every rejected call returns one of
// these, wrapped with context, so callers can assert on the specific cause.
var (
	// ErrInvalidPrice rejects listings with a zero, negative, or fractional price.
	ErrInvalidPrice = errors.New("market: price must be a positive integer amount")

	// ErrNotOwnerOrNotApproved rejects a list call when the caller does not
	// own the asset or has not granted the engine transfer approval.
	ErrNotOwnerOrNotApproved = errors.New("market: caller does not own asset or engine not approved")

	// ErrAlreadyListed rejects a list call for a key that already has an
	// active listing. Cancel-and-relist to change the price.
	ErrAlreadyListed = errors.New("market: asset already listed")

	// ErrNoSuchListing rejects cancel/buy calls on a key with no active listing.
	ErrNoSuchListing = errors.New("market: no such listing")

	// ErrNotSellerOrOwner rejects a cancel call from anyone but the stored
	// seller or the administrative owner.
	ErrNotSellerOrOwner = errors.New("market: caller is neither seller nor administrative owner")

	// ErrSellerCannotBuyOwnListing rejects self-trades.
	ErrSellerCannotBuyOwnListing = errors.New("market: seller cannot buy own listing")

	// ErrPaymentFailed is returned when a settlement-token leg of a buy
	// fails. The call is rolled back; no partial settlement persists.
	ErrPaymentFailed = errors.New("market: payment failed")

	// ErrAssetNotTransferable is returned when the listed asset is no longer
	// owned by the seller or the engine's approval is gone. The listing is
	// stale; the call is rolled back.
	ErrAssetNotTransferable = errors.New("market: asset not transferable")
)
