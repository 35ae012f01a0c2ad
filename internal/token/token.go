// Package token defines the interfaces of the two external collaborators the
// settlement engine consumes: the fungible settlement-token ledger and the
// non-fungible asset registry. Both are opaque services; this package also
// ships in-memory implementations used for development and tests.
package token

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/nftmx/settlement-engine/internal/model"
)

var (
	// ErrInsufficientFunds is returned when a transfer exceeds the sender's balance.
	ErrInsufficientFunds = errors.New("token: insufficient funds")

	// ErrInsufficientAllowance is returned when the spender's allowance does not
	// cover a transferFrom.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")

	// ErrInvalidAmount is returned for non-positive or fractional amounts.
	ErrInvalidAmount = errors.New("token: amount must be a positive integer")

	// ErrZeroAccount is returned when an operation names the zero account.
	ErrZeroAccount = errors.New("token: zero account")

	// ErrUnknownAsset is returned when an asset does not exist in the registry.
	ErrUnknownAsset = errors.New("token: unknown asset")

	// ErrNotAssetOwner is returned when a transfer names a from account that
	// does not own the asset.
	ErrNotAssetOwner = errors.New("token: account does not own asset")

	// ErrNotApproved is returned when the caller holds no transfer approval
	// for the asset.
	ErrNotApproved = errors.New("token: caller not approved for asset")

	// ErrAssetExists is returned when minting an asset id that is taken.
	ErrAssetExists = errors.New("token: asset already exists")
)

// Ledger is the fungible settlement-token service. Balances are
// integer-valued decimals in the token's smallest unit.
//
// TransferFrom follows allowance semantics: the caller may move funds from
// its own account freely, and from another account only up to the allowance
// that account granted it. Either the whole transfer applies or none of it.
type Ledger interface {
	BalanceOf(ctx context.Context, account model.Account) (decimal.Decimal, error)
	TransferFrom(ctx context.Context, caller, from, to model.Account, amount decimal.Decimal) error
	Approve(ctx context.Context, owner, spender model.Account, amount decimal.Decimal) error
	Allowance(ctx context.Context, owner, spender model.Account) (decimal.Decimal, error)
}

// Registry is the non-fungible asset service. It owns ownership, transfer
// approval, and per-collection royalty metadata; the engine only reads and
// moves — it never caches ownership.
type Registry interface {
	OwnerOf(ctx context.Context, collection, assetID string) (model.Account, error)

	// TransferFrom moves the asset from `from` to `to`. The caller must be
	// the owner or hold approval for the asset.
	TransferFrom(ctx context.Context, caller, from, to model.Account, collection, assetID string) error

	Approve(ctx context.Context, caller, spender model.Account, collection, assetID string) error
	GetApproved(ctx context.Context, collection, assetID string) (model.Account, error)
	SetApprovalForAll(ctx context.Context, owner, operator model.Account, approved bool) error
	IsApprovedForAll(ctx context.Context, owner, operator model.Account) (bool, error)

	// RoyaltyInfo returns the royalty beneficiary and basis points for a
	// collection. A zero beneficiary means no royalty is configured.
	RoyaltyInfo(ctx context.Context, collection, assetID string) (model.Account, int64, error)
}
