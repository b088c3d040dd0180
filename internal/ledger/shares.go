package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"share-governance/internal/govfamily"
	"share-governance/internal/journal"
	"share-governance/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Purchase credits requestedShares to caller against payment, which must equal
// requestedShares times the unit price. The payment is reserved before the
// transaction is persisted and captured after; a failed purchase releases it.
func (e *Engine) Purchase(ctx context.Context, caller model.Identity, payment *big.Int, requestedShares uint64) error {
	if payment == nil {
		return fmt.Errorf("%w: payment is missing", ErrPaymentMismatch)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	payload := journal.Payload{
		Action:    govfamily.ActionPurchase,
		Caller:    caller.String(),
		Timestamp: e.now().UnixNano(),
		Shares:    requestedShares,
		Payment:   payment.String(),
		UnitPrice: e.policy.UnitPrice.String(),
	}
	if err := e.state.validate(payload, e.policy, false); err != nil {
		e.logger.Debug("purchase rejected: "+err.Error(), zap.String("caller", caller.String()), zap.Uint64("shares", requestedShares))
		return err
	}

	nonce := uuid.NewString()
	if e.funds != nil {
		if err := e.funds.Reserve(ctx, nonce, caller, payment); err != nil {
			return fmt.Errorf("reserving the payment failed: %w", err)
		}
	}

	if err := e.commit(ctx, payload, nonce); err != nil {
		if errors.Is(err, ErrOutcomeUnknown) {
			e.logger.Warn("keeping the payment reserved until the purchase outcome is known", zap.String("reservation", nonce))
			return err
		}
		if e.funds != nil {
			if releaseErr := e.funds.Release(context.Background(), nonce); releaseErr != nil {
				e.logger.Error("failed to release the payment reservation: "+releaseErr.Error(), zap.String("reservation", nonce))
			}
		}
		return err
	}

	// the journal already records the purchase and the reservation guarantees
	// the funds, so a failed capture is not rolled back
	if e.funds != nil {
		if err := e.funds.Capture(ctx, nonce); err != nil {
			e.logger.Error("failed to capture the payment reservation: "+err.Error(), zap.String("reservation", nonce),
				zap.String("caller", caller.String()), zap.String("amount", payment.String()))
		}
	}

	e.logger.Info("shares purchased", zap.String("caller", caller.String()), zap.Uint64("shares", requestedShares),
		zap.Uint64("totalIssued", e.state.totalIssued))

	return nil
}

// ToggleSale opens or closes the share sale; only the owner may call it
func (e *Engine) ToggleSale(ctx context.Context, caller model.Identity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload := journal.Payload{
		Action:    govfamily.ActionToggleSale,
		Caller:    caller.String(),
		Timestamp: e.now().UnixNano(),
	}
	if err := e.apply(ctx, payload, uuid.NewString()); err != nil {
		return err
	}

	e.logger.Info("share sale toggled", zap.Bool("saleOpen", e.state.saleOpen))
	return nil
}

// MyShares returns the plain share count of caller
func (e *Engine) MyShares(caller model.Identity) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.balances[caller]
}

// Balance returns the share count of caller in 18 decimals fixed-point
func (e *Engine) Balance(caller model.Identity) *big.Int {
	shares := new(big.Int).SetUint64(e.MyShares(caller))
	return shares.Mul(shares, BalanceScale)
}

type Holding struct {
	Holder model.Identity
	Shares uint64
}

// Holders lists every identity that ever bought shares
func (e *Engine) Holders() []Holding {
	e.mu.Lock()
	defer e.mu.Unlock()

	holders := make([]Holding, 0, len(e.state.balances))
	for holder, shares := range e.state.balances {
		holders = append(holders, Holding{Holder: holder, Shares: shares})
	}

	return holders
}

type Summary struct {
	Owner       model.Identity
	SaleOpen    bool
	TotalIssued uint64
	SupplyCap   uint64
	UnitPrice   *big.Int
	Raised      *big.Int
	Holders     int
	Proposals   int

	// journal head
	Sequence uint64
	HeadID   string
}

func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Summary{
		Owner:       e.state.owner,
		SaleOpen:    e.state.saleOpen,
		TotalIssued: e.state.totalIssued,
		SupplyCap:   e.policy.SupplyCap,
		UnitPrice:   new(big.Int).Set(e.policy.UnitPrice),
		Raised:      new(big.Int).Set(e.state.raised),
		Holders:     len(e.state.balances),
		Proposals:   len(e.state.proposals),
		Sequence:    e.state.sequence,
		HeadID:      e.state.headID,
	}
}
