package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nftmx/settlement-engine/internal/model"
)

// MemoryLedger implements Ledger with in-memory balances and allowances.
// Used for development and testing.
type MemoryLedger struct {
	mu         sync.RWMutex
	balances   map[model.Account]decimal.Decimal
	allowances map[model.Account]map[model.Account]decimal.Decimal // owner -> spender -> amount
}

// NewMemoryLedger creates an empty in-memory token ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[model.Account]decimal.Decimal),
		allowances: make(map[model.Account]map[model.Account]decimal.Decimal),
	}
}

// Mint credits amount to account. Test/dev helper, not part of Ledger.
func (l *MemoryLedger) Mint(account model.Account, amount decimal.Decimal) error {
	if account.IsZero() {
		return ErrZeroAccount
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balances[account].Add(amount)
	return nil
}

func (l *MemoryLedger) BalanceOf(_ context.Context, account model.Account) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

func (l *MemoryLedger) TransferFrom(_ context.Context, caller, from, to model.Account, amount decimal.Decimal) error {
	if caller.IsZero() || from.IsZero() || to.IsZero() {
		return ErrZeroAccount
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from].LessThan(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds,
			from, l.balances[from], amount)
	}

	// Spending someone else's funds consumes allowance.
	if caller != from {
		allowance := l.allowances[from][caller]
		if allowance.LessThan(amount) {
			return fmt.Errorf("%w: %s allowed %s, needs %s", ErrInsufficientAllowance,
				caller, allowance, amount)
		}
		l.allowances[from][caller] = allowance.Sub(amount)
	}

	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}

func (l *MemoryLedger) Approve(_ context.Context, owner, spender model.Account, amount decimal.Decimal) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAccount
	}
	if amount.IsNegative() || !amount.IsInteger() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[model.Account]decimal.Decimal)
	}
	l.allowances[owner][spender] = amount
	return nil
}

func (l *MemoryLedger) Allowance(_ context.Context, owner, spender model.Account) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[owner][spender], nil
}

// royalty is per-collection beneficiary + basis points.
type royalty struct {
	beneficiary model.Account
	bps         int64
}

type assetKey struct {
	collection string
	assetID    string
}

// MemoryRegistry implements Registry with in-memory ownership, approvals,
// and per-collection royalty configuration.
type MemoryRegistry struct {
	mu        sync.RWMutex
	owners    map[assetKey]model.Account
	approved  map[assetKey]model.Account
	operators map[model.Account]map[model.Account]bool // owner -> operator -> approved
	royalties map[string]royalty                       // collection -> royalty
}

// NewMemoryRegistry creates an empty in-memory asset registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		owners:    make(map[assetKey]model.Account),
		approved:  make(map[assetKey]model.Account),
		operators: make(map[model.Account]map[model.Account]bool),
		royalties: make(map[string]royalty),
	}
}

// Mint creates an asset owned by owner. Test/dev helper, not part of Registry.
func (r *MemoryRegistry) Mint(collection, assetID string, owner model.Account) error {
	if owner.IsZero() {
		return ErrZeroAccount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := assetKey{collection, assetID}
	if _, ok := r.owners[k]; ok {
		return fmt.Errorf("%w: %s/%s", ErrAssetExists, collection, assetID)
	}
	r.owners[k] = owner
	return nil
}

// SetRoyalty configures the royalty beneficiary and basis points for a
// collection. Test/dev helper, not part of Registry.
func (r *MemoryRegistry) SetRoyalty(collection string, beneficiary model.Account, bps int64) error {
	if bps < 0 || bps > 10000 {
		return fmt.Errorf("%w: royalty %d bps", ErrInvalidAmount, bps)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.royalties[collection] = royalty{beneficiary: beneficiary, bps: bps}
	return nil
}

func (r *MemoryRegistry) OwnerOf(_ context.Context, collection, assetID string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[assetKey{collection, assetID}]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownAsset, collection, assetID)
	}
	return owner, nil
}

func (r *MemoryRegistry) TransferFrom(_ context.Context, caller, from, to model.Account, collection, assetID string) error {
	if caller.IsZero() || from.IsZero() || to.IsZero() {
		return ErrZeroAccount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := assetKey{collection, assetID}
	owner, ok := r.owners[k]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownAsset, collection, assetID)
	}
	if owner != from {
		return fmt.Errorf("%w: %s/%s owned by %s, not %s", ErrNotAssetOwner,
			collection, assetID, owner, from)
	}
	if caller != owner && r.approved[k] != caller && !r.operators[owner][caller] {
		return fmt.Errorf("%w: %s on %s/%s", ErrNotApproved, caller, collection, assetID)
	}

	r.owners[k] = to
	// A transfer clears the per-asset approval.
	delete(r.approved, k)
	return nil
}

func (r *MemoryRegistry) Approve(_ context.Context, caller, spender model.Account, collection, assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := assetKey{collection, assetID}
	owner, ok := r.owners[k]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownAsset, collection, assetID)
	}
	if caller != owner && !r.operators[owner][caller] {
		return fmt.Errorf("%w: %s on %s/%s", ErrNotApproved, caller, collection, assetID)
	}
	if spender.IsZero() {
		delete(r.approved, k)
		return nil
	}
	r.approved[k] = spender
	return nil
}

func (r *MemoryRegistry) GetApproved(_ context.Context, collection, assetID string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k := assetKey{collection, assetID}
	if _, ok := r.owners[k]; !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownAsset, collection, assetID)
	}
	return r.approved[k], nil
}

func (r *MemoryRegistry) SetApprovalForAll(_ context.Context, owner, operator model.Account, approved bool) error {
	if owner.IsZero() || operator.IsZero() {
		return ErrZeroAccount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operators[owner] == nil {
		r.operators[owner] = make(map[model.Account]bool)
	}
	r.operators[owner][operator] = approved
	return nil
}

func (r *MemoryRegistry) IsApprovedForAll(_ context.Context, owner, operator model.Account) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators[owner][operator], nil
}

func (r *MemoryRegistry) RoyaltyInfo(_ context.Context, collection, _ string) (model.Account, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ry := r.royalties[collection]
	return ry.beneficiary, ry.bps, nil
}
