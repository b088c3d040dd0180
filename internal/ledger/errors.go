package ledger

import "errors"

// Every error aborts the call that triggered it without mutating the ledger
var (
	ErrAccessDenied          = errors.New("access denied")
	ErrSaleClosed            = errors.New("share sale is closed")
	ErrSupplyExceeded        = errors.New("share supply cap exceeded")
	ErrPaymentMismatch       = errors.New("payment does not match the share price")
	ErrInvalidShareAmount    = errors.New("requested share amount must be positive")
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrProposalAlreadyClosed = errors.New("proposal already closed")
	ErrVotingPeriodNotOver   = errors.New("voting period not over")
	ErrAlreadyVoted          = errors.New("caller already voted on the proposal")
	ErrInvalidVoteChoice     = errors.New("invalid vote choice")
	ErrInvalidTitle          = errors.New("proposal title must not be empty")
	ErrInvalidClosingTime    = errors.New("closing time out of range")
)

// ErrOutcomeUnknown means the journal may or may not hold the transaction;
// the ledger refuses to guess and keeps any payment reserved
var ErrOutcomeUnknown = errors.New("transaction outcome unknown")
