package mongodb

import "share-governance/internal/journal"

// storedTransaction is keyed by the sequence number, so two transactions can
// never claim the same position in the journal
type storedTransaction struct {
	Sequence      int64  `bson:"_id" json:"sequence"`
	TransactionID string `bson:"txid" json:"id"`
	Header        []byte `bson:"header" json:"header"`
	Payload       []byte `bson:"payload" json:"payload"`
}

func newStoredTransaction(tx journal.Transaction) storedTransaction {
	return storedTransaction{
		Sequence:      int64(tx.Sequence),
		TransactionID: tx.ID,
		Header:        tx.Header,
		Payload:       tx.Payload,
	}
}

func (s storedTransaction) toTransaction() journal.Transaction {
	return journal.Transaction{
		Sequence: uint64(s.Sequence),
		ID:       s.TransactionID,
		Header:   s.Header,
		Payload:  s.Payload,
	}
}
