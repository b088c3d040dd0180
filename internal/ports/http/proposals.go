package http

import (
	"errors"
	"net/http"
	"share-governance/internal/model"
	"share-governance/internal/ports/http/middleware/auth"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type createProposalRequest struct {
	Title string `json:"title"`
}

type voteRequest struct {
	// Choice is approve or reject, 0 and 1 are accepted too
	Choice string `json:"choice"`
}

type closeRequest struct {
	// ClosingTime is RFC3339; empty means now
	ClosingTime string `json:"closingTime"`
}

func (ser *server) getProposals(w http.ResponseWriter, r *http.Request) {
	proposals := ser.app.Proposals()

	views := make([]proposalView, len(proposals))
	for i, proposal := range proposals {
		views[i] = newProposalView(proposal)
	}

	ser.respond(w, http.StatusOK, views)
}

func (ser *server) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	proposal, err := ser.app.Proposal(id)
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.respond(w, http.StatusOK, newProposalView(proposal))
}

func (ser *server) postProposal(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	var req createProposalRequest
	if err := readBody(r, &req); err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	proposal, err := ser.app.CreateProposal(ctx, caller, req.Title)
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.logger.Info("proposal submitted", zap.Int("proposalID", proposal.ID), zap.String("author", caller.String()))
	ser.respond(w, http.StatusCreated, newProposalView(proposal))
}

func (ser *server) postVote(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	id, choice, err := ser.readVoteParams(r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	proposal, err := ser.app.Vote(ctx, caller, choice, id)
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.respond(w, http.StatusOK, newProposalView(proposal))
}

func (ser *server) closeProposal(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	id, closingTime, err := ser.readCloseParams(r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	proposal, err := ser.app.CloseProposal(ctx, caller, closingTime, id)
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.logger.Info("proposal resolved", zap.Int("proposalID", id), zap.String("state", proposal.State.String()))
	ser.respond(w, http.StatusOK, newProposalView(proposal))
}

func (ser *server) readVoteParams(r *http.Request) (int, model.VoteChoice, error) {
	var err error

	id, idErr := proposalID(r)
	err = multierr.Append(err, idErr)

	var req voteRequest
	if bodyErr := readBody(r, &req); bodyErr != nil {
		return 0, 0, multierr.Append(err, bodyErr)
	}

	choice, choiceErr := model.ParseVoteChoice(req.Choice)
	err = multierr.Append(err, choiceErr)

	return id, choice, err
}

func (ser *server) readCloseParams(r *http.Request) (int, time.Time, error) {
	var err error

	id, idErr := proposalID(r)
	err = multierr.Append(err, idErr)

	var req closeRequest
	if bodyErr := readBody(r, &req); bodyErr != nil {
		return 0, time.Time{}, multierr.Append(err, bodyErr)
	}

	var closingTime time.Time
	if raw := normalize(req.ClosingTime); raw != "" {
		parsed, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			err = multierr.Append(err, errors.New("closingTime must be RFC3339: "+parseErr.Error()))
		}
		closingTime = parsed
	}

	return id, closingTime, err
}

func proposalID(r *http.Request) (int, error) {
	raw := normalize(mux.Vars(r)["id"])

	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("proposal id must be an integer: " + raw)
	}

	return id, nil
}
