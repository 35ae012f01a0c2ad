// Package policy holds the platform fee configuration and the administrative
// owner gate. The owner account is set at construction and changes only
// through an explicit, owner-gated handover.
package policy

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nftmx/settlement-engine/internal/model"
)

// MaxFeeBps is the hard cap on the platform fee: 1000 bps = 10%.
const MaxFeeBps = 1000

var (
	// ErrNotOwner is returned when a non-owner calls an administrative operation.
	ErrNotOwner = errors.New("policy: caller is not the administrative owner")

	// ErrFeeTooHigh is returned when a fee update exceeds the hard cap.
	ErrFeeTooHigh = errors.New("policy: fee exceeds maximum basis points")

	// ErrInvalidRecipient is returned when the fee recipient is the zero account.
	ErrInvalidRecipient = errors.New("policy: fee recipient must be a non-zero account")

	// ErrInvalidOwner is returned when ownership would be handed to the zero account.
	ErrInvalidOwner = errors.New("policy: new owner must be a non-zero account")
)

// Policy is the access-controlled fee configuration. Safe for concurrent use.
type Policy struct {
	mu    sync.RWMutex
	owner model.Account
	fee   model.FeePolicy
}

// New creates a Policy owned by owner, with a platform fee of 0 bps and the
// given default recipient.
func New(owner, defaultRecipient model.Account) (*Policy, error) {
	if owner.IsZero() {
		return nil, ErrInvalidOwner
	}
	if defaultRecipient.IsZero() {
		return nil, ErrInvalidRecipient
	}
	return &Policy{
		owner: owner,
		fee: model.FeePolicy{
			FeeBps:       0,
			FeeRecipient: defaultRecipient,
			UpdatedAt:    time.Now().UTC(),
		},
	}, nil
}

// Owner returns the current administrative owner.
func (p *Policy) Owner() model.Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

// IsOwner reports whether caller is the administrative owner.
func (p *Policy) IsOwner(caller model.Account) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return caller == p.owner
}

// Fee returns the current fee configuration.
func (p *Policy) Fee() model.FeePolicy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fee
}

// SetFee replaces the fee basis points and recipient together. Only the
// administrative owner may call it; the prior configuration is untouched on
// any validation failure.
func (p *Policy) SetFee(newBps int64, newRecipient, caller model.Account) (model.FeePolicy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.owner {
		return p.fee, ErrNotOwner
	}
	if newBps < 0 || newBps > MaxFeeBps {
		return p.fee, fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, newBps, MaxFeeBps)
	}
	if newRecipient.IsZero() {
		return p.fee, ErrInvalidRecipient
	}

	p.fee = model.FeePolicy{
		FeeBps:       newBps,
		FeeRecipient: newRecipient,
		UpdatedAt:    time.Now().UTC(),
	}
	return p.fee, nil
}

// Restore loads a previously persisted fee configuration without owner
// gating. Used at startup only.
func (p *Policy) Restore(fee model.FeePolicy) error {
	if fee.FeeBps < 0 || fee.FeeBps > MaxFeeBps {
		return fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, fee.FeeBps, MaxFeeBps)
	}
	if fee.FeeRecipient.IsZero() {
		return ErrInvalidRecipient
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fee = fee
	return nil
}

// TransferOwnership hands the administrative owner role to newOwner. Only
// the current owner may call it.
func (p *Policy) TransferOwnership(newOwner, caller model.Account) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.owner {
		return ErrNotOwner
	}
	if newOwner.IsZero() {
		return ErrInvalidOwner
	}
	p.owner = newOwner
	return nil
}
