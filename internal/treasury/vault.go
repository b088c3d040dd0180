package treasury

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"share-governance/internal/model"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownHold       = errors.New("unknown payment hold")
	ErrHoldMismatch      = errors.New("payment hold key reused with different terms")
	ErrHoldCaptured      = errors.New("payment hold already captured")
)

type hold struct {
	caller   model.Identity
	amount   *big.Int
	captured bool
}

// Vault retains the payments accepted by the ledger. In strict mode every
// identity pays from a wallet funded with Deposit; otherwise the value is
// considered attached to the call and only the amount is tracked.
type Vault struct {
	mu     deadlock.Mutex
	logger *zap.Logger
	strict bool

	wallets  map[model.Identity]*big.Int
	holds    map[string]*hold
	retained *big.Int
}

func NewVault(logger *zap.Logger, strict bool) *Vault {
	return &Vault{
		logger:   logger,
		strict:   strict,
		wallets:  make(map[model.Identity]*big.Int),
		holds:    make(map[string]*hold),
		retained: new(big.Int),
	}
}

func (v *Vault) Deposit(owner model.Identity, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.wallet(owner).Add(v.wallet(owner), amount)
}

func (v *Vault) wallet(owner model.Identity) *big.Int {
	balance, ok := v.wallets[owner]
	if !ok {
		balance = new(big.Int)
		v.wallets[owner] = balance
	}

	return balance
}

func (v *Vault) Reserve(ctx context.Context, key string, caller model.Identity, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return errors.New("payment amount must not be negative")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if existing, ok := v.holds[key]; ok {
		if existing.caller != caller || existing.amount.Cmp(amount) != 0 {
			return fmt.Errorf("%w: %s", ErrHoldMismatch, key)
		}
		return nil
	}

	if v.strict {
		balance := v.wallet(caller)
		if balance.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s holds %s wei, %s wei required", ErrInsufficientFunds, caller, balance, amount)
		}
		balance.Sub(balance, amount)
	}

	v.holds[key] = &hold{caller: caller, amount: new(big.Int).Set(amount)}
	v.logger.Debug("payment reserved", zap.String("key", key), zap.String("caller", caller.String()), zap.String("amount", amount.String()))

	return nil
}

func (v *Vault) Capture(ctx context.Context, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	h, ok := v.holds[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHold, key)
	}
	if h.captured {
		return nil
	}

	h.captured = true
	v.retained.Add(v.retained, h.amount)

	return nil
}

func (v *Vault) Release(ctx context.Context, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	h, ok := v.holds[key]
	if !ok {
		return nil
	}
	if h.captured {
		return fmt.Errorf("%w: %s", ErrHoldCaptured, key)
	}

	if v.strict {
		v.wallet(h.caller).Add(v.wallet(h.caller), h.amount)
	}
	delete(v.holds, key)
	v.logger.Debug("payment released", zap.String("key", key), zap.String("caller", h.caller.String()))

	return nil
}

// Restore sets the retained amount to what the ledger raised. Holds and
// wallets live in memory only, so after a restart the ledger is the record.
func (v *Vault) Restore(raised *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.retained = new(big.Int).Set(raised)
	v.logger.Info("retained payments restored", zap.String("amount", raised.String()))
}

// Retained is the sum of the captured payments
func (v *Vault) Retained() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return new(big.Int).Set(v.retained)
}

func (v *Vault) WalletBalance(owner model.Identity) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return new(big.Int).Set(v.wallet(owner))
}
