package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"share-governance/internal/app"
	"share-governance/internal/journal"
	"share-governance/internal/ledger"
	"share-governance/internal/model"
	"share-governance/internal/ports/http/middleware/auth"
	"share-governance/internal/ports/http/middleware/cors"
	"share-governance/internal/treasury"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxBodySize limits the JSON request bodies
const maxBodySize = 1 << 20

type server struct {
	app        *app.App
	tokens     auth.TokenValidator
	httpServer *http.Server
	addr       string
	origins    []string
	timeout    time.Duration
	logger     *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(logger *zap.Logger, a *app.App, tokens auth.TokenValidator, address string, origins []string, timeout time.Duration) *server {
	return &server{
		app:     a,
		tokens:  tokens,
		addr:    address,
		origins: origins,
		timeout: timeout,
		logger:  logger,
	}
}

func (ser *server) registerHandlers(router *mux.Router) {

	router.HandleFunc("/health", healthcheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(ser.tokens.Authenticate)

	api.HandleFunc("/shares/purchase", ser.purchaseShares).Methods(http.MethodPost)
	api.HandleFunc("/shares/me", ser.getMyShares).Methods(http.MethodGet)
	api.HandleFunc("/shares/balance", ser.getBalance).Methods(http.MethodGet)
	api.HandleFunc("/sale/toggle", ser.toggleSale).Methods(http.MethodPost)
	api.HandleFunc("/ledger", ser.getLedger).Methods(http.MethodGet)
	api.HandleFunc("/wallet", ser.getWallet).Methods(http.MethodGet)
	api.HandleFunc("/wallet/deposit", ser.deposit).Methods(http.MethodPost)

	api.HandleFunc("/proposals", ser.getProposals).Methods(http.MethodGet)
	api.HandleFunc("/proposals", ser.postProposal).Methods(http.MethodPost)
	api.HandleFunc("/proposals/{id}", ser.getProposal).Methods(http.MethodGet)
	api.HandleFunc("/proposals/{id}/votes", ser.postVote).Methods(http.MethodPost)
	api.HandleFunc("/proposals/{id}/close", ser.closeProposal).Methods(http.MethodPost)
}

func healthcheck(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("all good here"))
}

// Handler returns the routed API wrapped in the CORS policy
func (ser *server) Handler() http.Handler {
	router := mux.NewRouter()
	ser.registerHandlers(router)

	return cors.AddCorsPolicy(router, ser.origins)
}

func (ser *server) Run() error {
	ser.httpServer = &http.Server{
		Handler:           ser.Handler(),
		Addr:              ser.addr,
		ReadHeaderTimeout: ser.timeout,
	}

	ser.logger.Info("listening", zap.String("addr", ser.addr))
	if err := ser.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (ser *server) Shutdown(ctx context.Context) error {
	if ser.httpServer == nil {
		return nil
	}

	return ser.httpServer.Shutdown(ctx)
}

// requestContext bounds the ledger call with the configured request timeout
func (ser *server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), ser.timeout)
}

func (ser *server) respond(w http.ResponseWriter, status int, body interface{}) {
	response, err := json.Marshal(body)
	if err != nil {
		ser.serverError(w, "marshalling the response failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		ser.logger.Error("failed to write the response: " + err.Error())
	}
}

func (ser *server) badRequest(w http.ResponseWriter, message string) {
	ser.logger.Warn(message)
	ser.respond(w, http.StatusBadRequest, errorResponse{Error: message})
}

func (ser *server) serverError(w http.ResponseWriter, message string) {
	ser.logger.Error(message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: message}); err != nil {
		ser.logger.Error("failed to write a server error message: " + err.Error())
	}
}

// ledgerError reports a failed ledger operation with the matching status
func (ser *server) ledgerError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		ser.serverError(w, err.Error())
		return
	}

	ser.logger.Debug("request rejected: "+err.Error(), zap.Int("status", status))
	ser.respond(w, status, errorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, auth.ErrNoIdentity):
		return http.StatusUnauthorized

	case errors.Is(err, ledger.ErrAccessDenied):
		return http.StatusForbidden

	case errors.Is(err, ledger.ErrProposalNotFound),
		errors.Is(err, app.ErrWalletsDisabled):
		return http.StatusNotFound

	case errors.Is(err, ledger.ErrProposalAlreadyClosed),
		errors.Is(err, ledger.ErrAlreadyVoted),
		errors.Is(err, ledger.ErrSaleClosed),
		errors.Is(err, ledger.ErrSupplyExceeded),
		errors.Is(err, ledger.ErrVotingPeriodNotOver),
		errors.Is(err, journal.ErrSequenceConflict):
		return http.StatusConflict

	case errors.Is(err, treasury.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	case errors.Is(err, ledger.ErrPaymentMismatch),
		errors.Is(err, ledger.ErrInvalidShareAmount),
		errors.Is(err, ledger.ErrInvalidVoteChoice),
		errors.Is(err, ledger.ErrInvalidTitle),
		errors.Is(err, ledger.ErrInvalidClosingTime),
		errors.Is(err, model.ErrInvalidIdentity),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, model.ErrUnknownVoteChoice):
		return http.StatusBadRequest

	case errors.Is(err, ledger.ErrOutcomeUnknown),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

// readBody decodes the JSON body into dst; an empty body leaves dst untouched
func readBody(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("malformed request body: " + err.Error())
	}

	return nil
}

func normalize(param string) string {
	return strings.TrimSpace(param)
}
