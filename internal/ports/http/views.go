package http

import (
	"share-governance/internal/app"
	"share-governance/internal/model"
	"sort"
	"time"
)

type holdingsView struct {
	Holder  string `json:"holder"`
	Shares  uint64 `json:"shares"`
	Balance string `json:"balance"`
}

type ledgerView struct {
	Owner       string         `json:"owner"`
	SaleOpen    bool           `json:"saleOpen"`
	TotalIssued uint64         `json:"totalIssued"`
	SupplyCap   uint64         `json:"supplyCap"`
	UnitPrice   string         `json:"unitPrice"`
	Raised      string         `json:"raised"`
	Retained    string         `json:"retained"`
	Holders     []holdingsView `json:"holders"`
	Proposals   int            `json:"proposals"`
	Sequence    uint64         `json:"sequence"`
	Head        string         `json:"head"`
}

func newLedgerView(l app.LedgerView) ledgerView {
	view := ledgerView{
		Owner:       l.Owner.String(),
		SaleOpen:    l.SaleOpen,
		TotalIssued: l.TotalIssued,
		SupplyCap:   l.SupplyCap,
		UnitPrice:   l.UnitPrice.String(),
		Raised:      l.Raised.String(),
		Retained:    l.Retained.String(),
		Holders:     make([]holdingsView, 0, len(l.Holders)),
		Proposals:   l.Proposals,
		Sequence:    l.Sequence,
		Head:        l.HeadID,
	}
	for _, holding := range l.Holders {
		view.Holders = append(view.Holders, holdingsView{Holder: holding.Holder.String(), Shares: holding.Shares})
	}
	sort.Slice(view.Holders, func(i, j int) bool {
		return view.Holders[i].Holder < view.Holders[j].Holder
	})

	return view
}

type ballotView struct {
	Voter  string `json:"voter"`
	Choice string `json:"choice"`
	Weight uint64 `json:"weight"`
}

type proposalView struct {
	ID             int          `json:"id"`
	Title          string       `json:"title"`
	Author         string       `json:"author"`
	State          string       `json:"state"`
	ApproveWeight  uint64       `json:"approveWeight"`
	RejectWeight   uint64       `json:"rejectWeight"`
	CreatedAt      time.Time    `json:"createdAt"`
	VotingDeadline time.Time    `json:"votingDeadline"`
	ClosedAt       *time.Time   `json:"closedAt,omitempty"`
	Ballots        []ballotView `json:"ballots"`
}

func newProposalView(p model.Proposal) proposalView {
	view := proposalView{
		ID:             p.ID,
		Title:          p.Title,
		Author:         p.Author.String(),
		State:          p.State.String(),
		ApproveWeight:  p.ApproveWeight,
		RejectWeight:   p.RejectWeight,
		CreatedAt:      p.CreatedAt,
		VotingDeadline: p.VotingDeadline,
		Ballots:        make([]ballotView, len(p.Ballots)),
	}
	if p.State.IsTerminal() {
		closedAt := p.ClosedAt
		view.ClosedAt = &closedAt
	}
	for i, ballot := range p.Ballots {
		view.Ballots[i] = ballotView{Voter: ballot.Voter.String(), Choice: ballot.Choice.String(), Weight: ballot.Weight}
	}

	return view
}
