package memory

import (
	"context"
	"fmt"
	"share-governance/internal/journal"
	"sync"
)

// Journal keeps the transactions in process memory; it is lost on restart
type Journal struct {
	mu           sync.Mutex
	transactions []journal.Transaction
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Append(ctx context.Context, tx journal.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if tx.Sequence != uint64(len(j.transactions)) {
		return fmt.Errorf("%w: sequence %d, journal length %d", journal.ErrSequenceConflict, tx.Sequence, len(j.transactions))
	}
	j.transactions = append(j.transactions, tx)

	return nil
}

func (j *Journal) Transactions(ctx context.Context) ([]journal.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	transactions := make([]journal.Transaction, len(j.transactions))
	copy(transactions, j.transactions)

	return transactions, nil
}
