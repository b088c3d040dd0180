package mongodb

import (
	"share-governance/internal/journal"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStoredTransactionDocument(t *testing.T) {
	tx := journal.Transaction{
		Sequence: 7,
		ID:       "3045abcd",
		Header:   []byte{1, 2, 3},
		Payload:  []byte{4, 5},
	}

	data, err := bson.Marshal(newStoredTransaction(tx))
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, int64(7), raw["_id"])
	assert.Equal(t, "3045abcd", raw["txid"])

	var stored storedTransaction
	require.NoError(t, bson.Unmarshal(data, &stored))
	assert.Equal(t, tx, stored.toTransaction())
}
