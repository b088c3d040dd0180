package app

import (
	"context"
	"errors"
	"math/big"
	"share-governance/internal/ledger"
	"share-governance/internal/model"
	"share-governance/internal/treasury"
	"time"

	"go.uber.org/zap"
)

var (
	ErrWalletsDisabled = errors.New("wallets are only kept in strict funds mode")
	ErrInvalidAmount   = errors.New("deposit amount must be positive")
)

type App struct {
	engine *ledger.Engine
	vault  *treasury.Vault
	strict bool
	logger *zap.Logger
	now    func() time.Time
}

// NewApp rebuilds the retained payments of vault from the ledger
func NewApp(logger *zap.Logger, engine *ledger.Engine, vault *treasury.Vault, strict bool) *App {
	vault.Restore(engine.Summary().Raised)

	return &App{
		engine: engine,
		vault:  vault,
		strict: strict,
		logger: logger,
		now:    time.Now,
	}
}

type Holdings struct {
	Shares  uint64
	Balance *big.Int
}

type LedgerView struct {
	ledger.Summary
	Holders  []ledger.Holding
	Retained *big.Int
}

func (a *App) Purchase(ctx context.Context, caller model.Identity, payment *big.Int, shares uint64) (Holdings, error) {
	if err := a.engine.Purchase(ctx, caller, payment, shares); err != nil {
		return Holdings{}, err
	}

	return a.Holdings(caller), nil
}

// ToggleSale flips the sale and reports whether it is now open
func (a *App) ToggleSale(ctx context.Context, caller model.Identity) (bool, error) {
	if err := a.engine.ToggleSale(ctx, caller); err != nil {
		return false, err
	}

	return a.engine.Summary().SaleOpen, nil
}

func (a *App) Holdings(caller model.Identity) Holdings {
	return Holdings{
		Shares:  a.engine.MyShares(caller),
		Balance: a.engine.Balance(caller),
	}
}

func (a *App) Ledger() LedgerView {
	return LedgerView{
		Summary:  a.engine.Summary(),
		Holders:  a.engine.Holders(),
		Retained: a.vault.Retained(),
	}
}

func (a *App) Proposals() []model.Proposal {
	return a.engine.Proposals()
}

func (a *App) Proposal(proposalID int) (model.Proposal, error) {
	return a.engine.Proposal(proposalID)
}

func (a *App) CreateProposal(ctx context.Context, caller model.Identity, title string) (model.Proposal, error) {
	id, err := a.engine.CreateProposal(ctx, caller, title)
	if err != nil {
		return model.Proposal{}, err
	}

	return a.engine.Proposal(id)
}

func (a *App) Vote(ctx context.Context, caller model.Identity, choice model.VoteChoice, proposalID int) (model.Proposal, error) {
	if err := a.engine.VoteProposal(ctx, caller, choice, proposalID); err != nil {
		return model.Proposal{}, err
	}

	return a.engine.Proposal(proposalID)
}

// CloseProposal resolves the proposal at closingTime; a zero time means now
func (a *App) CloseProposal(ctx context.Context, caller model.Identity, closingTime time.Time, proposalID int) (model.Proposal, error) {
	if closingTime.IsZero() {
		closingTime = a.now()
	}

	if _, err := a.engine.CloseProposal(ctx, caller, closingTime, proposalID); err != nil {
		return model.Proposal{}, err
	}

	return a.engine.Proposal(proposalID)
}

// Deposit funds the wallet purchases of caller are paid from
func (a *App) Deposit(caller model.Identity, amount *big.Int) (*big.Int, error) {
	if !a.strict {
		return nil, ErrWalletsDisabled
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	a.vault.Deposit(caller, amount)
	a.logger.Info("wallet funded", zap.String("owner", caller.String()), zap.String("amount", amount.String()))

	return a.vault.WalletBalance(caller), nil
}

func (a *App) Wallet(caller model.Identity) (*big.Int, error) {
	if !a.strict {
		return nil, ErrWalletsDisabled
	}

	return a.vault.WalletBalance(caller), nil
}
