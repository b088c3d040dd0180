package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"share-governance/internal/journal"
	"share-governance/internal/ledger"
	"share-governance/internal/model"
	"share-governance/internal/repository/memory"
	"share-governance/internal/signkeys"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	owner = identity(100)
	addr1 = identity(1)
	addr2 = identity(2)

	genesisTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	after11Days = genesisTime.Add(11 * 24 * time.Hour)
)

func identity(n int) model.Identity {
	return model.Identity(fmt.Sprintf("0x%040x", n))
}

func price(shares uint64) *big.Int {
	return ledger.DefaultPolicy().Price(shares)
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

type fixture struct {
	engine *ledger.Engine
	store  *memory.Journal
	keys   signkeys.LedgerKeys
	clock  *clock
}

func newFixture(t *testing.T, policy ledger.Policy, opts ...ledger.Option) fixture {
	t.Helper()

	keys, err := signkeys.GenerateKeys()
	require.NoError(t, err)

	f := fixture{
		store: memory.NewJournal(),
		keys:  keys,
		clock: &clock{now: genesisTime},
	}
	opts = append([]ledger.Option{ledger.WithClock(f.clock.Now)}, opts...)

	f.engine, err = ledger.Open(context.Background(), zap.NewNop(), owner, f.store, keys, policy, opts...)
	require.NoError(t, err)

	return f
}

func (f fixture) buy(t *testing.T, caller model.Identity, shares uint64) {
	t.Helper()
	require.NoError(t, f.engine.Purchase(context.Background(), caller, price(shares), shares))
}

// failingJournal rejects appends while failing is set
type failingJournal struct {
	*memory.Journal
	failing bool
}

var errDiskFull = errors.New("disk full")

func (j *failingJournal) Append(ctx context.Context, tx journal.Transaction) error {
	if j.failing {
		return errDiskFull
	}
	return j.Journal.Append(ctx, tx)
}

// lostAckJournal stores the next append but reports a timeout for it
type lostAckJournal struct {
	*memory.Journal
	dropAck bool
}

func (j *lostAckJournal) Append(ctx context.Context, tx journal.Transaction) error {
	if err := j.Journal.Append(ctx, tx); err != nil {
		return err
	}
	if j.dropAck {
		j.dropAck = false
		return context.DeadlineExceeded
	}
	return nil
}

// unreachableJournal fails both appends and reads while down is set; with
// persist set the failed appends are stored anyway
type unreachableJournal struct {
	*memory.Journal
	down    bool
	persist bool
}

var errUnreachable = errors.New("connection refused")

func (j *unreachableJournal) Append(ctx context.Context, tx journal.Transaction) error {
	if !j.down {
		return j.Journal.Append(ctx, tx)
	}
	if j.persist {
		if err := j.Journal.Append(ctx, tx); err != nil {
			return err
		}
	}
	return errUnreachable
}

func (j *unreachableJournal) Transactions(ctx context.Context) ([]journal.Transaction, error) {
	if j.down {
		return nil, errUnreachable
	}
	return j.Journal.Transactions(ctx)
}
