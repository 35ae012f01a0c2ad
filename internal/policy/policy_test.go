package policy_test

import (
	"errors"
	"testing"

	"github.com/nftmx/settlement-engine/internal/model"
	"github.com/nftmx/settlement-engine/internal/policy"
)

const (
	admin    = model.Account("0xadmin")
	treasury = model.Account("0xtreasury")
	stranger = model.Account("0xstranger")
)

func newPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New(admin, treasury)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew_Defaults(t *testing.T) {
	p := newPolicy(t)

	fee := p.Fee()
	if fee.FeeBps != 0 {
		t.Errorf("default fee = %d, want 0", fee.FeeBps)
	}
	if fee.FeeRecipient != treasury {
		t.Errorf("default recipient = %s, want %s", fee.FeeRecipient, treasury)
	}
	if p.Owner() != admin {
		t.Errorf("owner = %s, want %s", p.Owner(), admin)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := policy.New("", treasury); !errors.Is(err, policy.ErrInvalidOwner) {
		t.Errorf("zero owner: got %v", err)
	}
	if _, err := policy.New(admin, ""); !errors.Is(err, policy.ErrInvalidRecipient) {
		t.Errorf("zero recipient: got %v", err)
	}
}

func TestSetFee_OwnerOnly(t *testing.T) {
	p := newPolicy(t)

	if _, err := p.SetFee(300, treasury, stranger); !errors.Is(err, policy.ErrNotOwner) {
		t.Fatalf("non-owner SetFee: got %v, want ErrNotOwner", err)
	}
	if fee := p.Fee(); fee.FeeBps != 0 {
		t.Errorf("fee changed by rejected call: %d", fee.FeeBps)
	}

	fee, err := p.SetFee(300, treasury, admin)
	if err != nil {
		t.Fatalf("owner SetFee: %v", err)
	}
	if fee.FeeBps != 300 || fee.FeeRecipient != treasury {
		t.Errorf("fee = %+v, want 300/%s", fee, treasury)
	}
}

func TestSetFee_FeeTooHigh(t *testing.T) {
	p := newPolicy(t)
	if _, err := p.SetFee(300, treasury, admin); err != nil {
		t.Fatalf("SetFee: %v", err)
	}

	// 1500 bps exceeds the 1000 bps hard cap; prior config must survive.
	if _, err := p.SetFee(1500, stranger, admin); !errors.Is(err, policy.ErrFeeTooHigh) {
		t.Fatalf("SetFee(1500): got %v, want ErrFeeTooHigh", err)
	}
	fee := p.Fee()
	if fee.FeeBps != 300 || fee.FeeRecipient != treasury {
		t.Errorf("config changed by rejected call: %+v", fee)
	}
}

func TestSetFee_InvalidRecipient(t *testing.T) {
	p := newPolicy(t)
	if _, err := p.SetFee(100, "", admin); !errors.Is(err, policy.ErrInvalidRecipient) {
		t.Errorf("zero recipient: got %v", err)
	}
}

func TestSetFee_BothFieldsReplacedTogether(t *testing.T) {
	p := newPolicy(t)

	fee, err := p.SetFee(500, stranger, admin)
	if err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	if fee.FeeBps != 500 || fee.FeeRecipient != stranger {
		t.Errorf("expected both fields updated, got %+v", fee)
	}
}

func TestTransferOwnership(t *testing.T) {
	p := newPolicy(t)

	if err := p.TransferOwnership(stranger, stranger); !errors.Is(err, policy.ErrNotOwner) {
		t.Fatalf("non-owner transfer: got %v", err)
	}
	if err := p.TransferOwnership("", admin); !errors.Is(err, policy.ErrInvalidOwner) {
		t.Fatalf("zero new owner: got %v", err)
	}

	if err := p.TransferOwnership(stranger, admin); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if p.Owner() != stranger {
		t.Errorf("owner = %s, want %s", p.Owner(), stranger)
	}

	// The previous owner loses admin rights immediately.
	if _, err := p.SetFee(100, treasury, admin); !errors.Is(err, policy.ErrNotOwner) {
		t.Errorf("old owner SetFee: got %v, want ErrNotOwner", err)
	}
	if _, err := p.SetFee(100, treasury, stranger); err != nil {
		t.Errorf("new owner SetFee: %v", err)
	}
}

func TestRestore(t *testing.T) {
	p := newPolicy(t)

	if err := p.Restore(model.FeePolicy{FeeBps: 2000, FeeRecipient: treasury}); !errors.Is(err, policy.ErrFeeTooHigh) {
		t.Errorf("restore above cap: got %v", err)
	}
	if err := p.Restore(model.FeePolicy{FeeBps: 250, FeeRecipient: treasury}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if fee := p.Fee(); fee.FeeBps != 250 {
		t.Errorf("restored fee = %d, want 250", fee.FeeBps)
	}
}
