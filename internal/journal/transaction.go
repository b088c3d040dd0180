/**
 * Copyright 2018 Intel Corporation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 * ------------------------------------------------------------------------------
 */

// based on https://github.com/hyperledger/sawtooth-sdk-go/blob/21f3d02d2446b6a91a945c93a8b94b1ddf616841/examples/intkey_go/src/sawtooth_intkey_client/intkey_client.go

package journal

import (
	"encoding/hex"
	"errors"
	"fmt"
	"share-governance/internal/govfamily"
	"share-governance/internal/hashing"

	"github.com/hyperledger/sawtooth-sdk-go/protobuf/transaction_pb2"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
	"google.golang.org/protobuf/proto"
)

var (
	ErrSequenceConflict = errors.New("journal already holds a transaction with this sequence number")
	ErrInvalidSignature = errors.New("transaction signature is invalid")
	ErrBrokenChain      = errors.New("transaction does not follow the journal head")
)

// Transaction is a signed ledger operation, stored in the journal at Sequence
type Transaction struct {
	Sequence uint64
	// ID is the hex encoded signature of the serialized header
	ID      string
	Header  []byte
	Payload []byte
}

// NewTransaction serializes and signs the payload. The header depends on the
// previous transaction so the journal forms a hash chain.
func NewTransaction(sequence uint64, previousID string, nonce string, payload Payload, signer *signing.Signer) (Transaction, error) {
	payloadDump, err := payload.Marshal()
	if err != nil {
		return Transaction{}, err
	}

	addresses := govfamily.GetAddresses(payload.Action, payload.Caller, payload.ProposalID)

	var dependencies []string
	if previousID != "" {
		dependencies = []string{previousID}
	}

	// Construct TransactionHeader
	rawTransactionHeader := transaction_pb2.TransactionHeader{
		SignerPublicKey:  signer.GetPublicKey().AsHex(),
		FamilyName:       govfamily.FamilyName,
		FamilyVersion:    govfamily.FamilyVersion,
		Nonce:            nonce,
		BatcherPublicKey: signer.GetPublicKey().AsHex(),
		Dependencies:     dependencies,
		Inputs:           addresses,
		Outputs:          addresses,
		PayloadSha512:    hashing.Calculate(payloadDump),
	}

	transactionHeader, err := proto.Marshal(&rawTransactionHeader)
	if err != nil {
		return Transaction{}, fmt.Errorf("unable to serialize transaction header: %v", err)
	}

	// Signature of TransactionHeader
	transactionHeaderSignature := hex.EncodeToString(
		signer.Sign(transactionHeader))

	return Transaction{
		Sequence: sequence,
		ID:       transactionHeaderSignature,
		Header:   transactionHeader,
		Payload:  payloadDump,
	}, nil
}

func (t Transaction) DecodeHeader() (*transaction_pb2.TransactionHeader, error) {
	var header transaction_pb2.TransactionHeader
	if err := proto.Unmarshal(t.Header, &header); err != nil {
		return nil, fmt.Errorf("unable to deserialize transaction header: %v", err)
	}

	return &header, nil
}

func (t Transaction) DecodePayload() (Payload, error) {
	return UnmarshalPayload(t.Payload)
}

// Verify checks that the transaction was signed by signerPublicKey, that the
// payload matches the signed hash and that it links to previousID.
func (t Transaction) Verify(previousID string, signerPublicKey signing.PublicKey) error {
	header, err := t.DecodeHeader()
	if err != nil {
		return err
	}

	if header.FamilyName != govfamily.FamilyName || header.FamilyVersion != govfamily.FamilyVersion {
		return fmt.Errorf("transaction %d: unexpected family %s %s", t.Sequence, header.FamilyName, header.FamilyVersion)
	}

	if header.SignerPublicKey != signerPublicKey.AsHex() {
		return fmt.Errorf("%w: transaction %d signed by %s", ErrInvalidSignature, t.Sequence, header.SignerPublicKey)
	}

	signature, err := hex.DecodeString(t.ID)
	if err != nil {
		return fmt.Errorf("%w: transaction %d: %v", ErrInvalidSignature, t.Sequence, err)
	}
	if !signing.NewSecp256k1Context().Verify(signature, t.Header, signerPublicKey) {
		return fmt.Errorf("%w: transaction %d", ErrInvalidSignature, t.Sequence)
	}

	if header.PayloadSha512 != hashing.Calculate(t.Payload) {
		return fmt.Errorf("%w: transaction %d payload hash mismatch", ErrInvalidSignature, t.Sequence)
	}

	switch {
	case previousID == "" && len(header.Dependencies) != 0:
		return fmt.Errorf("%w: transaction %d has dependencies but opens the journal", ErrBrokenChain, t.Sequence)
	case previousID != "" && (len(header.Dependencies) != 1 || header.Dependencies[0] != previousID):
		return fmt.Errorf("%w: transaction %d", ErrBrokenChain, t.Sequence)
	}

	return nil
}

// VerifyChain verifies every transaction in order, starting from an empty journal
func VerifyChain(transactions []Transaction, signerPublicKey signing.PublicKey) error {
	previousID := ""
	for i, tx := range transactions {
		if tx.Sequence != uint64(i) {
			return fmt.Errorf("%w: expected sequence %d, got %d", ErrBrokenChain, i, tx.Sequence)
		}
		if err := tx.Verify(previousID, signerPublicKey); err != nil {
			return err
		}
		previousID = tx.ID
	}

	return nil
}
