package postgres

import (
	"context"
	"errors"
	"fmt"
	"share-governance/internal/journal"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Journal stores the ledger transactions in journal_transactions; the
// sequence number is the primary key
type Journal struct {
	pool *pgxpool.Pool
}

func (c *Client) Journal() *Journal {
	return &Journal{pool: c.pool}
}

func (j *Journal) Append(ctx context.Context, tx journal.Transaction) error {
	const query = `INSERT INTO journal_transactions (sequence, transaction_id, header, payload) VALUES ($1, $2, $3, $4)`

	_, err := j.pool.Exec(ctx, query, int64(tx.Sequence), tx.ID, tx.Header, tx.Payload)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: sequence %d", journal.ErrSequenceConflict, tx.Sequence)
		}
		return fmt.Errorf("postgres: append transaction %d: %w", tx.Sequence, err)
	}

	return nil
}

func (j *Journal) Transactions(ctx context.Context) ([]journal.Transaction, error) {
	const query = `SELECT sequence, transaction_id, header, payload FROM journal_transactions ORDER BY sequence`

	rows, err := j.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []journal.Transaction
	for rows.Next() {
		var (
			sequence int64
			tx       journal.Transaction
		)
		if err := rows.Scan(&sequence, &tx.ID, &tx.Header, &tx.Payload); err != nil {
			return nil, fmt.Errorf("postgres: scan transaction: %w", err)
		}
		tx.Sequence = uint64(sequence)
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate transactions: %w", err)
	}

	return transactions, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
