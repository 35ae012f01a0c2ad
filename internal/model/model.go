// Package model defines the core domain types shared across the settlement engine.
// All monetary values use shopspring/decimal, never float64. Amounts
// are integer-valued in the settlement token's smallest unit.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account identifies a participant on the external token ledger and asset
// registry. The zero value means "no account" (absent royalty beneficiary,
// unset recipient).
type Account string

// IsZero reports whether the account is the absent/zero account.
func (a Account) IsZero() bool { return a == "" }

// Listing is an active offer to sell one asset at a fixed price in the
// settlement token. Keyed by (Collection, AssetID); at most one listing per
// key. Never mutated in place: changing the price requires cancel-and-relist.
type Listing struct {
	Collection string          `json:"collection" db:"collection"`
	AssetID    string          `json:"asset_id" db:"asset_id"`
	Seller     Account         `json:"seller" db:"seller"`
	Price      decimal.Decimal `json:"price" db:"price"` // > 0, integer-valued
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Sale is an immutable record of a settled purchase. Once created, these are
// never modified or deleted.
type Sale struct {
	ID                string          `json:"id" db:"id"`
	Collection        string          `json:"collection" db:"collection"`
	AssetID           string          `json:"asset_id" db:"asset_id"`
	Seller            Account         `json:"seller" db:"seller"`
	Buyer             Account         `json:"buyer" db:"buyer"`
	Price             decimal.Decimal `json:"price" db:"price"`
	RoyaltyAmount     decimal.Decimal `json:"royalty_amount" db:"royalty_amount"`
	PlatformFeeAmount decimal.Decimal `json:"platform_fee_amount" db:"platform_fee_amount"`
	SellerProceeds    decimal.Decimal `json:"seller_proceeds" db:"seller_proceeds"`
	ExecutedAt        time.Time       `json:"executed_at" db:"executed_at"`
}

// FeePolicy is the platform fee configuration. Both fields are always
// replaced together so a fee is never attributed to a stale recipient.
type FeePolicy struct {
	FeeBps       int64     `json:"fee_bps" db:"fee_bps"` // 0 to 1000 inclusive
	FeeRecipient Account   `json:"fee_recipient" db:"fee_recipient"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
