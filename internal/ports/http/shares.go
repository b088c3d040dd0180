package http

import (
	"errors"
	"math/big"
	"net/http"
	"share-governance/internal/ports/http/middleware/auth"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type purchaseRequest struct {
	Shares uint64 `json:"shares"`
	// Payment is the wei amount attached to the purchase, as a decimal string
	Payment string `json:"payment"`
}

type depositRequest struct {
	Amount string `json:"amount"`
}

type saleView struct {
	SaleOpen bool `json:"saleOpen"`
}

type walletView struct {
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
}

func (ser *server) purchaseShares(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	var req purchaseRequest
	if err := readBody(r, &req); err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	payment, err := parseWei("payment", req.Payment)
	if req.Shares == 0 {
		err = multierr.Append(err, errors.New("shares must be positive"))
	}
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	holdings, err := ser.app.Purchase(ctx, caller, payment, req.Shares)
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.logger.Info("shares purchased over http", zap.String("caller", caller.String()), zap.Uint64("shares", req.Shares))
	ser.respond(w, http.StatusOK, holdingsView{Holder: caller.String(), Shares: holdings.Shares, Balance: holdings.Balance.String()})
}

func (ser *server) toggleSale(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	open, err := ser.app.ToggleSale(ctx, caller)
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.respond(w, http.StatusOK, saleView{SaleOpen: open})
}

func (ser *server) getMyShares(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	holdings := ser.app.Holdings(caller)
	ser.respond(w, http.StatusOK, holdingsView{Holder: caller.String(), Shares: holdings.Shares, Balance: holdings.Balance.String()})
}

// getBalance returns the share count in 18 decimals fixed-point
func (ser *server) getBalance(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.respond(w, http.StatusOK, walletView{Owner: caller.String(), Balance: ser.app.Holdings(caller).Balance.String()})
}

func (ser *server) getLedger(w http.ResponseWriter, r *http.Request) {
	ser.respond(w, http.StatusOK, newLedgerView(ser.app.Ledger()))
}

func (ser *server) getWallet(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	balance, err := ser.app.Wallet(caller)
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.respond(w, http.StatusOK, walletView{Owner: caller.String(), Balance: balance.String()})
}

func (ser *server) deposit(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.IdentityFrom(r.Context())
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	var req depositRequest
	if err := readBody(r, &req); err != nil {
		ser.badRequest(w, err.Error())
		return
	}
	amount, err := parseWei("amount", req.Amount)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	balance, err := ser.app.Deposit(caller, amount)
	if err != nil {
		ser.ledgerError(w, err)
		return
	}

	ser.respond(w, http.StatusOK, walletView{Owner: caller.String(), Balance: balance.String()})
}

func parseWei(name, raw string) (*big.Int, error) {
	raw = normalize(raw)
	if raw == "" {
		return nil, errors.New(name + " is missing")
	}

	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, errors.New(name + " must be a non-negative decimal wei amount")
	}

	return amount, nil
}
