package ledger_test

import (
	"context"
	"math/big"
	"share-governance/internal/ledger"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseSharesCorrectly(t *testing.T) {
	f := newFixture(t, ledger.DefaultPolicy())

	payment, ok := new(big.Int).SetString("10000000000000000", 10) // 0.01 ether
	require.True(t, ok)
	require.NoError(t, f.engine.Purchase(context.Background(), addr1, payment, 5))

	assert.Equal(t, uint64(5), f.engine.MyShares(addr1))
	expectedBalance, _ := new(big.Int).SetString("5000000000000000000", 10)
	assert.Equal(t, expectedBalance, f.engine.Balance(addr1))

	summary := f.engine.Summary()
	assert.Equal(t, uint64(5), summary.TotalIssued)
	assert.Equal(t, payment, summary.Raised)
	assert.Equal(t, 1, summary.Holders)
}

func TestUnknownIdentityHasNoShares(t *testing.T) {
	f := newFixture(t, ledger.DefaultPolicy())

	assert.Zero(t, f.engine.MyShares(addr2))
	assert.Zero(t, f.engine.Balance(addr2).Sign())
}

func TestPurchaseFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("payment mismatch", func(t *testing.T) {
		f := newFixture(t, ledger.DefaultPolicy())
		err := f.engine.Purchase(ctx, addr1, price(5), 10)
		assert.ErrorIs(t, err, ledger.ErrPaymentMismatch)

		err = f.engine.Purchase(ctx, addr1, new(big.Int).Add(price(5), big.NewInt(1)), 5)
		assert.ErrorIs(t, err, ledger.ErrPaymentMismatch)

		assert.ErrorIs(t, f.engine.Purchase(ctx, addr1, nil, 5), ledger.ErrPaymentMismatch)
		assert.Zero(t, f.engine.MyShares(addr1))
	})

	t.Run("zero shares", func(t *testing.T) {
		f := newFixture(t, ledger.DefaultPolicy())
		assert.ErrorIs(t, f.engine.Purchase(ctx, addr1, big.NewInt(0), 0), ledger.ErrInvalidShareAmount)
	})

	t.Run("sale closed", func(t *testing.T) {
		f := newFixture(t, ledger.DefaultPolicy())
		f.buy(t, addr1, 3)
		require.NoError(t, f.engine.ToggleSale(ctx, owner))

		err := f.engine.Purchase(ctx, addr1, price(2), 2)
		assert.ErrorIs(t, err, ledger.ErrSaleClosed)
		assert.Equal(t, uint64(3), f.engine.MyShares(addr1))
		assert.Equal(t, uint64(3), f.engine.Summary().TotalIssued)

		require.NoError(t, f.engine.ToggleSale(ctx, owner))
		f.buy(t, addr1, 2)
		assert.Equal(t, uint64(5), f.engine.MyShares(addr1))
	})
}

func TestExceedTheSupplyLimit(t *testing.T) {
	f := newFixture(t, ledger.DefaultPolicy())

	for i := 1; i <= 10; i++ {
		f.buy(t, identity(i), 10)
	}
	assert.Equal(t, ledger.DefaultSupplyCap, f.engine.Summary().TotalIssued)

	err := f.engine.Purchase(context.Background(), identity(12), price(10), 10)
	assert.ErrorIs(t, err, ledger.ErrSupplyExceeded)

	err = f.engine.Purchase(context.Background(), identity(12), price(1), 1)
	assert.ErrorIs(t, err, ledger.ErrSupplyExceeded)
	assert.Zero(t, f.engine.MyShares(identity(12)))
}

func TestSupplyInvariant(t *testing.T) {
	policy := ledger.DefaultPolicy()
	policy.SupplyCap = 37
	f := newFixture(t, policy)

	requests := []uint64{5, 9, 1, 20, 7, 3, 2, 40, 1, 1}
	for i, shares := range requests {
		_ = f.engine.Purchase(context.Background(), identity(i%4+1), price(shares), shares)

		var sum uint64
		for _, holding := range f.engine.Holders() {
			sum += holding.Shares
		}
		summary := f.engine.Summary()
		assert.Equal(t, summary.TotalIssued, sum)
		assert.LessOrEqual(t, summary.TotalIssued, policy.SupplyCap)
	}
	assert.Equal(t, uint64(37), f.engine.Summary().TotalIssued)
}

func TestCloseSaleForMembers(t *testing.T) {
	f := newFixture(t, ledger.DefaultPolicy())
	f.buy(t, addr1, 5)

	err := f.engine.ToggleSale(context.Background(), addr1)
	assert.ErrorIs(t, err, ledger.ErrAccessDenied)
	assert.True(t, f.engine.Summary().SaleOpen)

	require.NoError(t, f.engine.ToggleSale(context.Background(), owner))
	assert.False(t, f.engine.Summary().SaleOpen)
}
