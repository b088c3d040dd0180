package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidIdentity = errors.New("invalid identity")

// Identity of a caller, an account address in checksum form
type Identity string

// ParseIdentity accepts a hex account address with or without the 0x prefix
// and returns it in the EIP-55 checksum form
func ParseIdentity(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, raw)
	}

	return Identity(common.HexToAddress(raw).Hex()), nil
}

func (id Identity) IsZero() bool {
	return id == ""
}

func (id Identity) String() string {
	return string(id)
}
