package ledger

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/multierr"
)

// CloseAuthority decides who may close a proposal
type CloseAuthority string

const (
	CloseByOwner       CloseAuthority = "owner"
	CloseByShareholder CloseAuthority = "shareholder"
	CloseByAnyone      CloseAuthority = "anyone"
)

func (a CloseAuthority) IsValid() bool {
	return a == CloseByOwner || a == CloseByShareholder || a == CloseByAnyone
}

const (
	DefaultSupplyCap       uint64 = 100
	DefaultMinVotingPeriod        = 10 * 24 * time.Hour
)

// BalanceScale converts a share count into its 18 decimals fixed-point view
var BalanceScale = big.NewInt(params.Ether)

// DefaultUnitPrice is 0.002 ether
func DefaultUnitPrice() *big.Int {
	return big.NewInt(2 * params.Ether / 1000)
}

type Policy struct {
	SupplyCap       uint64
	UnitPrice       *big.Int
	MinVotingPeriod time.Duration

	// AllowRevote lets an identity vote on the same proposal more than once,
	// each time adding its current weight again
	AllowRevote bool
	// RejectZeroWeightVotes fails votes cast by identities without shares
	// instead of accepting them as no-ops
	RejectZeroWeightVotes bool
	// EnforceDeadline rejects closing times before the voting deadline
	EnforceDeadline bool
	CloseAuthority  CloseAuthority
}

func DefaultPolicy() Policy {
	return Policy{
		SupplyCap:       DefaultSupplyCap,
		UnitPrice:       DefaultUnitPrice(),
		MinVotingPeriod: DefaultMinVotingPeriod,
		EnforceDeadline: true,
		CloseAuthority:  CloseByOwner,
	}
}

func (p Policy) Validate() error {
	var err error

	if p.SupplyCap == 0 {
		err = multierr.Append(err, errors.New("supply cap must be positive"))
	}
	if p.UnitPrice == nil || p.UnitPrice.Sign() <= 0 {
		err = multierr.Append(err, errors.New("unit price must be positive"))
	}
	if p.MinVotingPeriod < 0 {
		err = multierr.Append(err, errors.New("minimum voting period must not be negative"))
	}
	if !p.CloseAuthority.IsValid() {
		err = multierr.Append(err, errors.New("unknown close authority: "+string(p.CloseAuthority)))
	}

	return err
}

// Price returns the payment expected for the given amount of shares
func (p Policy) Price(shares uint64) *big.Int {
	price := new(big.Int).SetUint64(shares)
	return price.Mul(price, p.UnitPrice)
}
