package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"share-governance/internal/ledger"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// policyFile is the YAML layout of the governance policy. Missing keys keep
// the ledger defaults.
type policyFile struct {
	SupplyCap *uint64 `yaml:"supplyCap"`
	// UnitPrice is in wei
	UnitPrice             string  `yaml:"unitPrice"`
	MinVotingPeriod       string  `yaml:"minVotingPeriod"`
	AllowRevote           *bool   `yaml:"allowRevote"`
	RejectZeroWeightVotes *bool   `yaml:"rejectZeroWeightVotes"`
	EnforceDeadline       *bool   `yaml:"enforceDeadline"`
	CloseAuthority        *string `yaml:"closeAuthority"`
}

// LoadPolicy reads the policy file at path; an empty path yields the defaults
func LoadPolicy(path string) (ledger.Policy, error) {
	if path == "" {
		return ledger.DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ledger.Policy{}, fmt.Errorf("failed to read the policy file: %w", err)
	}

	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (ledger.Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ledger.Policy{}, fmt.Errorf("failed to parse the policy file: %w", err)
	}

	policy := ledger.DefaultPolicy()
	var err error

	if file.SupplyCap != nil {
		policy.SupplyCap = *file.SupplyCap
	}
	if file.UnitPrice != "" {
		price, ok := new(big.Int).SetString(file.UnitPrice, 10)
		if !ok {
			err = multierr.Append(err, errors.New("unitPrice is not a decimal wei amount: "+file.UnitPrice))
		} else {
			policy.UnitPrice = price
		}
	}
	if file.MinVotingPeriod != "" {
		period, parseErr := time.ParseDuration(file.MinVotingPeriod)
		if parseErr != nil {
			err = multierr.Append(err, fmt.Errorf("minVotingPeriod: %w", parseErr))
		} else {
			policy.MinVotingPeriod = period
		}
	}
	if file.AllowRevote != nil {
		policy.AllowRevote = *file.AllowRevote
	}
	if file.RejectZeroWeightVotes != nil {
		policy.RejectZeroWeightVotes = *file.RejectZeroWeightVotes
	}
	if file.EnforceDeadline != nil {
		policy.EnforceDeadline = *file.EnforceDeadline
	}
	if file.CloseAuthority != nil {
		policy.CloseAuthority = ledger.CloseAuthority(*file.CloseAuthority)
	}

	if err != nil {
		return ledger.Policy{}, err
	}
	if err := policy.Validate(); err != nil {
		return ledger.Policy{}, err
	}

	return policy, nil
}
