package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"share-governance/internal/govfamily"
	"share-governance/internal/journal"
	"share-governance/internal/model"
	"time"
)

// state is the share ledger and the proposal registry. It is only touched
// while the engine lock is held.
type state struct {
	owner       model.Identity
	saleOpen    bool
	totalIssued uint64
	raised      *big.Int
	balances    map[model.Identity]uint64
	proposals   []model.Proposal

	// journal head
	sequence uint64
	headID   string
}

func newState() *state {
	return &state{
		raised:   new(big.Int),
		balances: make(map[model.Identity]uint64),
	}
}

func (s *state) initialized() bool {
	return !s.owner.IsZero()
}

func (s *state) proposal(id int) (*model.Proposal, error) {
	if id < 0 || id >= len(s.proposals) {
		return nil, fmt.Errorf("%w: id %d", ErrProposalNotFound, id)
	}

	return &s.proposals[id], nil
}

// validate checks the payload against the current state. Replayed payloads
// were already accepted under the policy of their time, so the configurable
// policy points are only checked for live calls.
func (s *state) validate(p journal.Payload, policy Policy, replaying bool) error {
	caller := model.Identity(p.Caller)
	if caller.IsZero() {
		return model.ErrInvalidIdentity
	}

	if p.Action != govfamily.ActionGenesis && !s.initialized() {
		return errors.New("ledger has no genesis transaction")
	}

	switch p.Action {
	case govfamily.ActionGenesis:
		if s.initialized() {
			return errors.New("ledger genesis already applied")
		}
		return nil

	case govfamily.ActionPurchase:
		return s.validatePurchase(p, policy, replaying)

	case govfamily.ActionToggleSale:
		if caller != s.owner {
			return fmt.Errorf("%w: only the owner can toggle the sale", ErrAccessDenied)
		}
		return nil

	case govfamily.ActionCreateProposal:
		if s.balances[caller] == 0 {
			return fmt.Errorf("%w: %s holds no shares", ErrAccessDenied, caller)
		}
		if p.Title == "" {
			return ErrInvalidTitle
		}
		return nil

	case govfamily.ActionVote:
		return s.validateVote(p, policy, replaying)

	case govfamily.ActionCloseProposal:
		return s.validateClose(p, policy, replaying)
	}

	return errors.New("unknown action: " + string(p.Action))
}

func (s *state) validatePurchase(p journal.Payload, policy Policy, replaying bool) error {
	if !s.saleOpen {
		return ErrSaleClosed
	}
	if p.Shares == 0 {
		return ErrInvalidShareAmount
	}

	payment, ok := new(big.Int).SetString(p.Payment, 10)
	if !ok {
		return fmt.Errorf("%w: malformed payment %q", ErrPaymentMismatch, p.Payment)
	}
	unitPrice, ok := new(big.Int).SetString(p.UnitPrice, 10)
	if !ok {
		return fmt.Errorf("%w: malformed unit price %q", ErrPaymentMismatch, p.UnitPrice)
	}
	expected := new(big.Int).Mul(new(big.Int).SetUint64(p.Shares), unitPrice)
	if payment.Cmp(expected) != 0 {
		return fmt.Errorf("%w: paid %s wei, %d shares cost %s wei", ErrPaymentMismatch, payment, p.Shares, expected)
	}

	if replaying {
		return nil
	}
	if p.Shares > policy.SupplyCap || s.totalIssued > policy.SupplyCap-p.Shares {
		return fmt.Errorf("%w: %d issued, %d requested, cap %d", ErrSupplyExceeded, s.totalIssued, p.Shares, policy.SupplyCap)
	}

	return nil
}

func (s *state) validateVote(p journal.Payload, policy Policy, replaying bool) error {
	proposal, err := s.proposal(p.ProposalID)
	if err != nil {
		return err
	}
	if proposal.State != model.ProposalDraft {
		return fmt.Errorf("%w: proposal %d is %s", ErrProposalAlreadyClosed, proposal.ID, proposal.State)
	}

	choice := model.VoteChoice(p.Choice)
	if !choice.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidVoteChoice, p.Choice)
	}

	if replaying {
		return nil
	}

	caller := model.Identity(p.Caller)
	if s.balances[caller] == 0 && policy.RejectZeroWeightVotes {
		return fmt.Errorf("%w: %s holds no shares", ErrAccessDenied, caller)
	}
	if !policy.AllowRevote && proposal.HasVoted(caller) {
		return fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, caller, proposal.ID)
	}

	return nil
}

func (s *state) validateClose(p journal.Payload, policy Policy, replaying bool) error {
	proposal, err := s.proposal(p.ProposalID)
	if err != nil {
		return err
	}
	if proposal.State != model.ProposalDraft {
		return fmt.Errorf("%w: proposal %d is %s", ErrProposalAlreadyClosed, proposal.ID, proposal.State)
	}

	if replaying {
		return nil
	}

	caller := model.Identity(p.Caller)
	switch policy.CloseAuthority {
	case CloseByOwner:
		if caller != s.owner {
			return fmt.Errorf("%w: only the owner can close proposals", ErrAccessDenied)
		}
	case CloseByShareholder:
		if s.balances[caller] == 0 {
			return fmt.Errorf("%w: %s holds no shares", ErrAccessDenied, caller)
		}
	}

	if policy.EnforceDeadline && p.ClosingTime < proposal.VotingDeadline.UnixNano() {
		return fmt.Errorf("%w: proposal %d can be closed from %s", ErrVotingPeriodNotOver, proposal.ID, proposal.VotingDeadline.UTC().Format(time.RFC3339))
	}

	return nil
}

// mutate applies a validated payload. It must not fail.
func (s *state) mutate(p journal.Payload) {
	caller := model.Identity(p.Caller)

	switch p.Action {
	case govfamily.ActionGenesis:
		s.owner = caller
		s.saleOpen = true

	case govfamily.ActionPurchase:
		payment, _ := new(big.Int).SetString(p.Payment, 10)
		s.balances[caller] += p.Shares
		s.totalIssued += p.Shares
		s.raised.Add(s.raised, payment)

	case govfamily.ActionToggleSale:
		s.saleOpen = !s.saleOpen

	case govfamily.ActionCreateProposal:
		s.proposals = append(s.proposals, model.Proposal{
			ID:             len(s.proposals),
			Title:          p.Title,
			Author:         caller,
			CreatedAt:      time.Unix(0, p.Timestamp).UTC(),
			VotingDeadline: time.Unix(0, p.Deadline).UTC(),
			State:          model.ProposalDraft,
		})

	case govfamily.ActionVote:
		proposal := &s.proposals[p.ProposalID]
		weight := s.balances[caller]
		if weight == 0 {
			return
		}

		if model.VoteChoice(p.Choice) == model.VoteApprove {
			proposal.ApproveWeight += weight
		} else {
			proposal.RejectWeight += weight
		}
		proposal.Ballots = append(proposal.Ballots, model.Ballot{
			Voter:  caller,
			Choice: model.VoteChoice(p.Choice),
			Weight: weight,
		})

	case govfamily.ActionCloseProposal:
		proposal := &s.proposals[p.ProposalID]
		proposal.State = proposal.Outcome()
		proposal.ClosedAt = time.Unix(0, p.ClosingTime).UTC()
	}
}
