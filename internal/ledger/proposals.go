package ledger

import (
	"context"
	"fmt"
	"math"
	"share-governance/internal/govfamily"
	"share-governance/internal/journal"
	"share-governance/internal/model"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateProposal appends a DRAFT proposal and returns its id. Only
// shareholders may propose.
func (e *Engine) CreateProposal(ctx context.Context, caller model.Identity, title string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	payload := journal.Payload{
		Action:     govfamily.ActionCreateProposal,
		Caller:     caller.String(),
		Timestamp:  now.UnixNano(),
		Title:      strings.TrimSpace(title),
		ProposalID: len(e.state.proposals),
		Deadline:   now.Add(e.policy.MinVotingPeriod).UnixNano(),
	}
	if err := e.apply(ctx, payload, uuid.NewString()); err != nil {
		return 0, err
	}

	e.logger.Info("proposal created", zap.Int("proposalID", payload.ProposalID), zap.String("title", payload.Title),
		zap.String("author", caller.String()))

	return payload.ProposalID, nil
}

// VoteProposal adds the current share balance of caller to the approve or
// reject tally of a DRAFT proposal. A caller without shares contributes no
// weight; unless the policy rejects such votes the call succeeds as a no-op.
func (e *Engine) VoteProposal(ctx context.Context, caller model.Identity, choice model.VoteChoice, proposalID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload := journal.Payload{
		Action:     govfamily.ActionVote,
		Caller:     caller.String(),
		Timestamp:  e.now().UnixNano(),
		ProposalID: proposalID,
		Choice:     uint8(choice),
	}
	if err := e.state.validate(payload, e.policy, false); err != nil {
		return err
	}

	weight := e.state.balances[caller]
	if weight == 0 {
		e.logger.Debug("zero weight vote ignored", zap.String("caller", caller.String()), zap.Int("proposalID", proposalID))
		return nil
	}

	if err := e.commit(ctx, payload, uuid.NewString()); err != nil {
		return err
	}

	e.logger.Info("vote cast", zap.Int("proposalID", proposalID), zap.String("voter", caller.String()),
		zap.Stringer("choice", choice), zap.Uint64("weight", weight))

	return nil
}

// closing times are journaled as unix nanoseconds
var (
	earliestClosingTime = time.Unix(0, math.MinInt64)
	latestClosingTime   = time.Unix(0, math.MaxInt64)
)

// CloseProposal resolves a DRAFT proposal: approved when the approve weight
// strictly exceeds the reject weight, rejected otherwise.
func (e *Engine) CloseProposal(ctx context.Context, caller model.Identity, closingTime time.Time, proposalID int) (model.ProposalState, error) {
	if closingTime.Before(earliestClosingTime) || closingTime.After(latestClosingTime) {
		return "", fmt.Errorf("%w: %s", ErrInvalidClosingTime, closingTime.UTC().Format(time.RFC3339))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	payload := journal.Payload{
		Action:      govfamily.ActionCloseProposal,
		Caller:      caller.String(),
		Timestamp:   e.now().UnixNano(),
		ProposalID:  proposalID,
		ClosingTime: closingTime.UnixNano(),
	}
	if err := e.apply(ctx, payload, uuid.NewString()); err != nil {
		return "", err
	}

	proposal := e.state.proposals[proposalID]
	e.logger.Info("proposal closed", zap.Int("proposalID", proposalID), zap.Stringer("state", proposal.State),
		zap.Uint64("approveWeight", proposal.ApproveWeight), zap.Uint64("rejectWeight", proposal.RejectWeight))

	return proposal.State, nil
}

// Proposals returns every proposal in creation order
func (e *Engine) Proposals() []model.Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()

	proposals := make([]model.Proposal, len(e.state.proposals))
	for i, proposal := range e.state.proposals {
		proposals[i] = proposal.Copy()
	}

	return proposals
}

func (e *Engine) Proposal(proposalID int) (model.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	proposal, err := e.state.proposal(proposalID)
	if err != nil {
		return model.Proposal{}, err
	}

	return proposal.Copy(), nil
}
