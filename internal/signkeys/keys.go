package signkeys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
)

// LedgerKeys sign the transactions appended to the ledger journal
type LedgerKeys struct {
	PrivateKey signing.PrivateKey
	PublicKey  signing.PublicKey
}

func (k LedgerKeys) Valid() bool {
	return k.PrivateKey != nil && k.PublicKey != nil &&
		len(k.PrivateKey.AsBytes()) == 32 && len(k.PublicKey.AsBytes()) > 0
}

func (k LedgerKeys) GetSigner() *signing.Signer {
	cryptoFactory := signing.NewCryptoFactory(signing.NewSecp256k1Context())
	return cryptoFactory.NewSigner(k.PrivateKey)
}

// source: https://github.com/ethereum/go-ethereum/blob/86d547707965685cef732aa28c15e6811ea98408/crypto/secp256k1/secp256_test.go#L19
func GenerateKeys() (LedgerKeys, error) {
	key, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	if err != nil {
		return LedgerKeys{}, errors.New("failed to generate the keys: " + err.Error())
	}

	privkey := make([]byte, 32)
	blob := key.D.Bytes()
	copy(privkey[32-len(blob):], blob)

	return newKeys(privkey), nil
}

// newKeys derives the compressed public key, the form the signer writes into
// the transaction headers
func newKeys(privkey []byte) LedgerKeys {
	private := signing.NewSecp256k1PrivateKey(privkey)
	return LedgerKeys{
		PrivateKey: private,
		PublicKey:  signing.NewSecp256k1Context().GetPublicKey(private),
	}
}

// NewKeysFromHex restores the key pair from a hex encoded 32 byte private key
func NewKeysFromHex(privateKeyHex string) (LedgerKeys, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return LedgerKeys{}, errors.New("failed to decode the private key: " + err.Error())
	}
	if len(raw) != 32 {
		return LedgerKeys{}, errors.New("private key must be 32 bytes long")
	}

	return newKeys(raw), nil
}
