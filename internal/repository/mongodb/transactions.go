package mongodb

import (
	"context"
	"errors"
	"fmt"
	"share-governance/internal/journal"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	transactionsCollection = "transactions"
)

// EnsureIndexes makes the transaction ids unique across the journal
func (b Repository) EnsureIndexes(ctx context.Context) error {
	coll := b.collection(transactionsCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "txid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.New("failed to create the transaction id index: " + err.Error())
	}

	return nil
}

func (b Repository) Append(ctx context.Context, tx journal.Transaction) error {
	coll := b.collection(transactionsCollection)

	if _, err := coll.InsertOne(ctx, newStoredTransaction(tx)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: sequence %d", journal.ErrSequenceConflict, tx.Sequence)
		}
		return errors.New("failed to insert a new transaction: " + err.Error())
	}
	b.logger.Debug("transaction stored", zap.Uint64("sequence", tx.Sequence), zap.String("transactionID", tx.ID))

	return nil
}

func (b Repository) Transactions(ctx context.Context) ([]journal.Transaction, error) {
	coll := b.collection(transactionsCollection)

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.New("failed to find the transactions: " + err.Error())
	}

	var stored []storedTransaction
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, errors.New("failed to get all transactions from the cursor: " + err.Error())
	}

	transactions := make([]journal.Transaction, 0, len(stored))
	for _, s := range stored {
		transactions = append(transactions, s.toTransaction())
	}

	return transactions, nil
}
