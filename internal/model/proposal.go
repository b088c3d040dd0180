package model

import (
	"errors"
	"strings"
	"time"
)

type ProposalState string

const (
	ProposalDraft    ProposalState = "DRAFT"
	ProposalApproved ProposalState = "APPROVED"
	ProposalRejected ProposalState = "REJECTED"
)

func (state ProposalState) IsTerminal() bool {
	return state == ProposalApproved || state == ProposalRejected
}

func (state ProposalState) String() string {
	return string(state)
}

// VoteChoice is the binary discriminator of a ballot: 0 approves, 1 rejects
type VoteChoice uint8

const (
	VoteApprove VoteChoice = 0
	VoteReject  VoteChoice = 1
)

func (choice VoteChoice) IsValid() bool {
	return choice == VoteApprove || choice == VoteReject
}

func (choice VoteChoice) String() string {
	if choice == VoteApprove {
		return "approve"
	}
	return "reject"
}

var ErrUnknownVoteChoice = errors.New("vote choice must be approve or reject")

// ParseVoteChoice accepts the names and the numeric forms of a choice
func ParseVoteChoice(raw string) (VoteChoice, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "0":
		return VoteApprove, nil
	case "reject", "1":
		return VoteReject, nil
	}

	return 0, ErrUnknownVoteChoice
}

type Ballot struct {
	Voter  Identity
	Choice VoteChoice
	Weight uint64
}

// Proposal tracked by the registry; ID is the index in creation order
type Proposal struct {
	ID     int
	Title  string
	Author Identity

	ApproveWeight uint64
	RejectWeight  uint64

	CreatedAt      time.Time
	VotingDeadline time.Time
	ClosedAt       time.Time

	State   ProposalState
	Ballots []Ballot
}

func (proposal Proposal) HasVoted(voter Identity) bool {
	for _, ballot := range proposal.Ballots {
		if ballot.Voter == voter {
			return true
		}
	}

	return false
}

// Outcome returns the state the proposal resolves to with the current tallies.
// Ties, including a proposal nobody voted on, resolve to rejection.
func (proposal Proposal) Outcome() ProposalState {
	if proposal.ApproveWeight > proposal.RejectWeight {
		return ProposalApproved
	}

	return ProposalRejected
}

// Copy returns a proposal that shares no mutable memory with the receiver
func (proposal Proposal) Copy() Proposal {
	ballots := make([]Ballot, len(proposal.Ballots))
	copy(ballots, proposal.Ballots)
	proposal.Ballots = ballots

	return proposal
}
