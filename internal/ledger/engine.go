package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"share-governance/internal/govfamily"
	"share-governance/internal/journal"
	"share-governance/internal/model"
	"share-governance/internal/signkeys"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// Journal persists the signed transactions the ledger state is built from
type Journal interface {
	// Append stores tx at tx.Sequence; it fails with journal.ErrSequenceConflict
	// if the sequence number is already taken
	Append(ctx context.Context, tx journal.Transaction) error
	// Transactions returns the whole journal ordered by sequence number
	Transactions(ctx context.Context) ([]journal.Transaction, error)
}

// Funds is the value transfer capability attached to a purchase
type Funds interface {
	// Reserve holds amount on behalf of caller; calling it again with the same key is a no-op
	Reserve(ctx context.Context, key string, caller model.Identity, amount *big.Int) error
	Capture(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// reconcileTimeout bounds the journal read after a failed append; the
// caller context may be the reason the append failed
const reconcileTimeout = 10 * time.Second

type Option func(*Engine)

// WithClock replaces the wall clock used to timestamp transactions
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithFunds(funds Funds) Option {
	return func(e *Engine) {
		e.funds = funds
	}
}

// Engine is the aggregate root holding the share ledger and the proposal
// registry. Operations run one at a time; each one is validated, appended to
// the journal and only then applied to the in-memory state.
type Engine struct {
	mu deadlock.Mutex

	logger  *zap.Logger
	policy  Policy
	signer  *signing.Signer
	pubKey  signing.PublicKey
	journal Journal
	funds   Funds
	now     func() time.Time

	state *state
}

// Open rebuilds the ledger from the journal. An empty journal is initialized
// with a genesis transaction naming owner; otherwise the owner recorded in the
// journal wins.
func Open(ctx context.Context, logger *zap.Logger, owner model.Identity, store Journal, keys signkeys.LedgerKeys, policy Policy, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger policy: %w", err)
	}
	if !keys.Valid() {
		return nil, errors.New("invalid ledger signing keys")
	}
	policy.UnitPrice = new(big.Int).Set(policy.UnitPrice)

	e := &Engine{
		logger:  logger,
		policy:  policy,
		signer:  keys.GetSigner(),
		pubKey:  keys.PublicKey,
		journal: store,
		now:     time.Now,
		state:   newState(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.restore(ctx); err != nil {
		return nil, err
	}

	if e.state.initialized() {
		if !owner.IsZero() && owner != e.state.owner {
			e.logger.Warn("configured owner differs from the journal, keeping the journal owner",
				zap.String("configured", owner.String()), zap.String("owner", e.state.owner.String()))
		}
		return e, nil
	}

	if owner.IsZero() {
		return nil, errors.New("ledger owner is required to initialize an empty journal")
	}

	genesis := journal.Payload{
		Action:    govfamily.ActionGenesis,
		Caller:    owner.String(),
		Timestamp: e.now().UnixNano(),
	}
	if err := e.apply(ctx, genesis, uuid.NewString()); err != nil {
		return nil, err
	}
	e.logger.Info("ledger initialized", zap.String("owner", owner.String()))

	return e, nil
}

func (e *Engine) restore(ctx context.Context) error {
	txs, err := e.journal.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read the journal: %w", err)
	}
	if err := journal.VerifyChain(txs, e.pubKey); err != nil {
		return fmt.Errorf("journal verification failed: %w", err)
	}

	for _, tx := range txs {
		if _, err := e.replay(tx); err != nil {
			return err
		}
	}

	if len(txs) > 0 {
		e.logger.Info("ledger restored from the journal", zap.Int("transactions", len(txs)), zap.String("head", e.state.headID))
	}

	return nil
}

// replay applies a transaction read back from the journal. Callers hold the
// lock and verify the transaction first.
func (e *Engine) replay(tx journal.Transaction) (journal.Payload, error) {
	payload, err := tx.DecodePayload()
	if err != nil {
		return payload, fmt.Errorf("transaction %d: %w", tx.Sequence, err)
	}
	if err := e.state.validate(payload, e.policy, true); err != nil {
		return payload, fmt.Errorf("replaying transaction %d (%s): %w", tx.Sequence, payload.Action, err)
	}

	e.state.mutate(payload)
	e.state.sequence = tx.Sequence + 1
	e.state.headID = tx.ID

	return payload, nil
}

// reconcile applies the transactions the journal holds past the local head.
// An append may fail after the transaction was stored, so the journal is the
// only place to learn whether it landed. It reports whether the transaction
// with id is applied.
func (e *Engine) reconcile(id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	txs, err := e.journal.Transactions(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read the journal: %w", err)
	}

	applied := false
	for _, tx := range txs {
		if tx.Sequence < e.state.sequence {
			continue
		}
		if tx.Sequence != e.state.sequence {
			return applied, fmt.Errorf("%w: expected sequence %d, found %d", journal.ErrBrokenChain, e.state.sequence, tx.Sequence)
		}
		if err := tx.Verify(e.state.headID, e.pubKey); err != nil {
			return applied, err
		}
		payload, err := e.replay(tx)
		if err != nil {
			return applied, err
		}
		if payload.Action == govfamily.ActionPurchase {
			e.captureJournaled(ctx, tx)
		}
		applied = applied || tx.ID == id
		e.logger.Warn("applied a transaction found in the journal past the local head",
			zap.Uint64("sequence", tx.Sequence), zap.String("transactionID", tx.ID))
	}

	return applied, nil
}

// captureJournaled captures the hold of a purchase that reached the journal
// without being confirmed to its caller. Holds are keyed by the transaction
// nonce; purchases made by another process have no hold here.
func (e *Engine) captureJournaled(ctx context.Context, tx journal.Transaction) {
	if e.funds == nil {
		return
	}
	header, err := tx.DecodeHeader()
	if err != nil {
		return
	}
	if err := e.funds.Capture(ctx, header.Nonce); err != nil {
		e.logger.Debug("no payment hold captured for the journaled purchase: "+err.Error(), zap.Uint64("sequence", tx.Sequence))
	}
}

// apply validates the payload, persists it as the next journal transaction
// and mutates the state. Callers hold the lock.
func (e *Engine) apply(ctx context.Context, payload journal.Payload, nonce string) error {
	if err := e.state.validate(payload, e.policy, false); err != nil {
		return err
	}

	return e.commit(ctx, payload, nonce)
}

func (e *Engine) commit(ctx context.Context, payload journal.Payload, nonce string) error {
	tx, err := journal.NewTransaction(e.state.sequence, e.state.headID, nonce, payload, e.signer)
	if err != nil {
		return err
	}

	if err := e.journal.Append(ctx, tx); err != nil {
		e.logger.Error("failed to append the transaction: "+err.Error(),
			zap.String("action", string(payload.Action)), zap.Uint64("sequence", tx.Sequence))

		applied, syncErr := e.reconcile(tx.ID)
		if syncErr != nil {
			e.logger.Error("failed to reconcile with the journal: "+syncErr.Error(), zap.String("transactionID", tx.ID))
		}
		switch {
		case applied:
			return nil
		case syncErr != nil:
			return fmt.Errorf("%w: persisting the %s transaction: %w", ErrOutcomeUnknown, payload.Action, err)
		}
		return fmt.Errorf("persisting the %s transaction: %w", payload.Action, err)
	}

	e.state.mutate(payload)
	e.state.sequence = tx.Sequence + 1
	e.state.headID = tx.ID

	e.logger.Debug("transaction applied", zap.String("action", string(payload.Action)),
		zap.String("caller", payload.Caller), zap.Uint64("sequence", tx.Sequence), zap.String("transactionID", tx.ID))

	return nil
}

func (e *Engine) Policy() Policy {
	policy := e.policy
	policy.UnitPrice = new(big.Int).Set(e.policy.UnitPrice)
	return policy
}
