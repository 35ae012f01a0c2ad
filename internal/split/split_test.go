package split_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nftmx/settlement-engine/internal/split"
)

func d(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func TestCompute_FeeAndRoyalty(t *testing.T) {
	// 300 bps fee + 500 bps royalty at price 200 → 6 / 10 / 184.
	res, err := split.Compute(d(200), 500, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.RoyaltyAmount.Equal(d(10)) {
		t.Errorf("royalty = %s, want 10", res.RoyaltyAmount)
	}
	if !res.PlatformFeeAmount.Equal(d(6)) {
		t.Errorf("fee = %s, want 6", res.PlatformFeeAmount)
	}
	if !res.SellerProceeds.Equal(d(184)) {
		t.Errorf("proceeds = %s, want 184", res.SellerProceeds)
	}
	if !res.Total().Equal(d(200)) {
		t.Errorf("total = %s, want 200", res.Total())
	}
}

func TestCompute_ZeroBps(t *testing.T) {
	res, err := split.Compute(d(100), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SellerProceeds.Equal(d(100)) {
		t.Errorf("proceeds = %s, want 100", res.SellerProceeds)
	}
	if !res.RoyaltyAmount.IsZero() || !res.PlatformFeeAmount.IsZero() {
		t.Errorf("expected zero royalty and fee, got %s / %s",
			res.RoyaltyAmount, res.PlatformFeeAmount)
	}
}

func TestCompute_TruncationAccruesToSeller(t *testing.T) {
	// 333 bps of 101 = 3.3633 → truncated to 3; remainder stays with seller.
	res, err := split.Compute(d(101), 333, 333)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.RoyaltyAmount.Equal(d(3)) {
		t.Errorf("royalty = %s, want 3", res.RoyaltyAmount)
	}
	if !res.PlatformFeeAmount.Equal(d(3)) {
		t.Errorf("fee = %s, want 3", res.PlatformFeeAmount)
	}
	if !res.SellerProceeds.Equal(d(95)) {
		t.Errorf("proceeds = %s, want 95", res.SellerProceeds)
	}
}

func TestCompute_Reconciliation(t *testing.T) {
	// royalty + fee + proceeds == price exactly across awkward combinations.
	prices := []int64{1, 2, 3, 7, 99, 100, 101, 9999, 1000000000000007}
	bps := []int64{0, 1, 3, 250, 300, 333, 500, 999, 1000, 9999, 10000}

	for _, p := range prices {
		for _, rb := range bps {
			for _, fb := range bps {
				res, err := split.Compute(d(p), rb, fb)
				if err != nil {
					t.Fatalf("Compute(%d, %d, %d): %v", p, rb, fb, err)
				}
				if !res.Total().Equal(d(p)) {
					t.Errorf("Compute(%d, %d, %d): total %s != price",
						p, rb, fb, res.Total())
				}
				if res.RoyaltyAmount.IsNegative() || res.PlatformFeeAmount.IsNegative() ||
					res.SellerProceeds.IsNegative() {
					t.Errorf("Compute(%d, %d, %d): negative part %+v", p, rb, fb, res)
				}
			}
		}
	}
}

func TestCompute_FeeReducedWhenCombinedExceedsDenominator(t *testing.T) {
	// Royalty honored in full; fee reduced to the remaining headroom.
	res, err := split.Compute(d(10000), 9500, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.RoyaltyAmount.Equal(d(9500)) {
		t.Errorf("royalty = %s, want 9500", res.RoyaltyAmount)
	}
	if !res.PlatformFeeAmount.Equal(d(500)) {
		t.Errorf("fee = %s, want 500", res.PlatformFeeAmount)
	}
	if !res.SellerProceeds.IsZero() {
		t.Errorf("proceeds = %s, want 0", res.SellerProceeds)
	}
}

func TestCompute_Invalid(t *testing.T) {
	if _, err := split.Compute(d(100), -1, 0); !errors.Is(err, split.ErrNegativeBps) {
		t.Errorf("negative royalty bps: got %v", err)
	}
	if _, err := split.Compute(d(100), 0, -1); !errors.Is(err, split.ErrNegativeBps) {
		t.Errorf("negative fee bps: got %v", err)
	}
	if _, err := split.Compute(d(100), 10001, 0); !errors.Is(err, split.ErrBpsOverflow) {
		t.Errorf("royalty above denominator: got %v", err)
	}
	if _, err := split.Compute(d(0), 100, 100); !errors.Is(err, split.ErrInvalidPrice) {
		t.Errorf("zero price: got %v", err)
	}
	if _, err := split.Compute(decimal.NewFromFloat(10.5), 100, 100); !errors.Is(err, split.ErrInvalidPrice) {
		t.Errorf("fractional price: got %v", err)
	}
}

func TestFoldRoyalty(t *testing.T) {
	res, err := split.Compute(d(200), 500, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	folded := res.FoldRoyalty()
	if !folded.RoyaltyAmount.IsZero() {
		t.Errorf("folded royalty = %s, want 0", folded.RoyaltyAmount)
	}
	if !folded.SellerProceeds.Equal(d(194)) {
		t.Errorf("folded proceeds = %s, want 194", folded.SellerProceeds)
	}
	if !folded.Total().Equal(d(200)) {
		t.Errorf("folded total = %s, want 200", folded.Total())
	}
}
