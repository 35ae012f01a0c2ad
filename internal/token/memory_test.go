package token_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nftmx/settlement-engine/internal/model"
	"github.com/nftmx/settlement-engine/internal/token"
)

const (
	alice  = model.Account("0xalice")
	bob    = model.Account("0xbob")
	engine = model.Account("0xengine")
)

func d(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func TestLedger_TransferOwnFunds(t *testing.T) {
	ctx := context.Background()
	l := token.NewMemoryLedger()
	if err := l.Mint(alice, d(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.TransferFrom(ctx, alice, alice, bob, d(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	ab, _ := l.BalanceOf(ctx, alice)
	bb, _ := l.BalanceOf(ctx, bob)
	if !ab.Equal(d(60)) || !bb.Equal(d(40)) {
		t.Errorf("balances = %s/%s, want 60/40", ab, bb)
	}
}

func TestLedger_AllowanceConsumed(t *testing.T) {
	ctx := context.Background()
	l := token.NewMemoryLedger()
	l.Mint(alice, d(100))

	// Without allowance the engine cannot move alice's funds.
	err := l.TransferFrom(ctx, engine, alice, bob, d(10))
	if !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("no allowance: got %v", err)
	}

	if err := l.Approve(ctx, alice, engine, d(50)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(ctx, engine, alice, bob, d(30)); err != nil {
		t.Fatalf("transfer with allowance: %v", err)
	}

	remaining, _ := l.Allowance(ctx, alice, engine)
	if !remaining.Equal(d(20)) {
		t.Errorf("allowance = %s, want 20", remaining)
	}

	// The remaining allowance no longer covers 30.
	err = l.TransferFrom(ctx, engine, alice, bob, d(30))
	if !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Errorf("over allowance: got %v", err)
	}
}

func TestLedger_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l := token.NewMemoryLedger()
	l.Mint(alice, d(10))

	err := l.TransferFrom(ctx, alice, alice, bob, d(11))
	if !errors.Is(err, token.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	// Nothing moved.
	ab, _ := l.BalanceOf(ctx, alice)
	if !ab.Equal(d(10)) {
		t.Errorf("balance = %s, want 10", ab)
	}
}

func TestLedger_InvalidAmounts(t *testing.T) {
	ctx := context.Background()
	l := token.NewMemoryLedger()
	l.Mint(alice, d(10))

	if err := l.TransferFrom(ctx, alice, alice, bob, d(0)); !errors.Is(err, token.ErrInvalidAmount) {
		t.Errorf("zero amount: got %v", err)
	}
	if err := l.TransferFrom(ctx, alice, alice, bob, decimal.NewFromFloat(1.5)); !errors.Is(err, token.ErrInvalidAmount) {
		t.Errorf("fractional amount: got %v", err)
	}
	if err := l.TransferFrom(ctx, alice, alice, "", d(1)); !errors.Is(err, token.ErrZeroAccount) {
		t.Errorf("zero account: got %v", err)
	}
}

func TestRegistry_OwnershipAndApproval(t *testing.T) {
	ctx := context.Background()
	r := token.NewMemoryRegistry()
	if err := r.Mint("punks", "0", alice); err != nil {
		t.Fatalf("mint: %v", err)
	}

	owner, err := r.OwnerOf(ctx, "punks", "0")
	if err != nil || owner != alice {
		t.Fatalf("OwnerOf = %s, %v", owner, err)
	}

	// The engine cannot move the asset without approval.
	err = r.TransferFrom(ctx, engine, alice, bob, "punks", "0")
	if !errors.Is(err, token.ErrNotApproved) {
		t.Fatalf("unapproved transfer: got %v", err)
	}

	if err := r.Approve(ctx, alice, engine, "punks", "0"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	spender, _ := r.GetApproved(ctx, "punks", "0")
	if spender != engine {
		t.Errorf("approved = %s, want %s", spender, engine)
	}

	if err := r.TransferFrom(ctx, engine, alice, bob, "punks", "0"); err != nil {
		t.Fatalf("approved transfer: %v", err)
	}
	owner, _ = r.OwnerOf(ctx, "punks", "0")
	if owner != bob {
		t.Errorf("owner = %s, want %s", owner, bob)
	}

	// Transfer clears the per-asset approval.
	spender, _ = r.GetApproved(ctx, "punks", "0")
	if !spender.IsZero() {
		t.Errorf("approval survived transfer: %s", spender)
	}
}

func TestRegistry_OperatorApproval(t *testing.T) {
	ctx := context.Background()
	r := token.NewMemoryRegistry()
	r.Mint("punks", "1", alice)

	if err := r.SetApprovalForAll(ctx, alice, engine, true); err != nil {
		t.Fatalf("set approval for all: %v", err)
	}
	ok, _ := r.IsApprovedForAll(ctx, alice, engine)
	if !ok {
		t.Fatal("expected operator approval")
	}
	if err := r.TransferFrom(ctx, engine, alice, bob, "punks", "1"); err != nil {
		t.Fatalf("operator transfer: %v", err)
	}
}

func TestRegistry_WrongFrom(t *testing.T) {
	ctx := context.Background()
	r := token.NewMemoryRegistry()
	r.Mint("punks", "2", alice)

	err := r.TransferFrom(ctx, bob, bob, engine, "punks", "2")
	if !errors.Is(err, token.ErrNotAssetOwner) {
		t.Errorf("wrong from: got %v", err)
	}
	err = r.TransferFrom(ctx, alice, alice, bob, "punks", "404")
	if !errors.Is(err, token.ErrUnknownAsset) {
		t.Errorf("unknown asset: got %v", err)
	}
}

func TestRegistry_Royalty(t *testing.T) {
	ctx := context.Background()
	r := token.NewMemoryRegistry()

	// Unconfigured collection: zero beneficiary, zero bps.
	beneficiary, bps, err := r.RoyaltyInfo(ctx, "punks", "0")
	if err != nil {
		t.Fatalf("royalty info: %v", err)
	}
	if !beneficiary.IsZero() || bps != 0 {
		t.Errorf("unconfigured royalty = %s/%d, want zero", beneficiary, bps)
	}

	if err := r.SetRoyalty("punks", alice, 500); err != nil {
		t.Fatalf("set royalty: %v", err)
	}
	beneficiary, bps, _ = r.RoyaltyInfo(ctx, "punks", "7")
	if beneficiary != alice || bps != 500 {
		t.Errorf("royalty = %s/%d, want %s/500", beneficiary, bps, alice)
	}

	if err := r.SetRoyalty("punks", alice, 10001); err == nil {
		t.Error("expected error for royalty above 10000 bps")
	}
}

func TestRegistry_MintDuplicate(t *testing.T) {
	r := token.NewMemoryRegistry()
	r.Mint("punks", "3", alice)
	if err := r.Mint("punks", "3", bob); !errors.Is(err, token.ErrAssetExists) {
		t.Errorf("duplicate mint: got %v", err)
	}
}
