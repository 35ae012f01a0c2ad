// Package split computes the three-way division of a sale price between the
// seller, an optional royalty beneficiary, and the platform fee recipient.
//
// All arithmetic is fixed-denominator basis-point math (10000 bps = 100%)
// over integer-valued decimals. Division truncates toward zero, and any
// truncation remainder accrues to the seller so the parts always reconcile
// to the price exactly.
package split

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// BpsDenominator is the fixed basis-point denominator: 10000 bps = 100%.
const BpsDenominator = 10000

var (
	ErrNegativeBps  = errors.New("split: basis points must be non-negative")
	ErrBpsOverflow  = errors.New("split: basis points exceed denominator")
	ErrInvalidPrice = errors.New("split: price must be a positive integer amount")
)

var bpsDenom = decimal.NewFromInt(BpsDenominator)

// Result is the outcome of splitting a price. The invariant
// RoyaltyAmount + PlatformFeeAmount + SellerProceeds == price holds exactly.
type Result struct {
	RoyaltyAmount     decimal.Decimal `json:"royalty_amount"`
	PlatformFeeAmount decimal.Decimal `json:"platform_fee_amount"`
	SellerProceeds    decimal.Decimal `json:"seller_proceeds"`
}

// Compute splits price between royalty, platform fee, and seller proceeds.
//
// Royalty and fee are each computed independently against the gross price
// (not compounding): amount = price * bps / 10000, truncated toward zero.
// When royaltyBps + feeBps would exceed the denominator, the royalty is
// honored in full and the fee is reduced to the remainder.
func Compute(price decimal.Decimal, royaltyBps, feeBps int64) (Result, error) {
	if royaltyBps < 0 || feeBps < 0 {
		return Result{}, ErrNegativeBps
	}
	if royaltyBps > BpsDenominator {
		return Result{}, fmt.Errorf("%w: royalty %d bps", ErrBpsOverflow, royaltyBps)
	}
	if !ValidPrice(price) {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}

	if royaltyBps+feeBps > BpsDenominator {
		feeBps = BpsDenominator - royaltyBps
	}

	royalty := portion(price, royaltyBps)
	fee := portion(price, feeBps)
	proceeds := price.Sub(royalty).Sub(fee)

	return Result{
		RoyaltyAmount:     royalty,
		PlatformFeeAmount: fee,
		SellerProceeds:    proceeds,
	}, nil
}

// FoldRoyalty returns a copy of r with the royalty amount moved into seller
// proceeds. Used when the collection has no royalty beneficiary.
func (r Result) FoldRoyalty() Result {
	return Result{
		RoyaltyAmount:     decimal.Zero,
		PlatformFeeAmount: r.PlatformFeeAmount,
		SellerProceeds:    r.SellerProceeds.Add(r.RoyaltyAmount),
	}
}

// Total returns the sum of all three parts. Always equals the input price.
func (r Result) Total() decimal.Decimal {
	return r.RoyaltyAmount.Add(r.PlatformFeeAmount).Add(r.SellerProceeds)
}

// ValidPrice reports whether price is a positive, integer-valued amount in
// the settlement token's smallest unit.
func ValidPrice(price decimal.Decimal) bool {
	return price.IsPositive() && price.IsInteger()
}

// portion computes price * bps / 10000 with truncation toward zero.
// Inputs are non-negative, so Floor is truncation.
func portion(price decimal.Decimal, bps int64) decimal.Decimal {
	if bps == 0 {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(bps)).Div(bpsDenom).Floor()
}
