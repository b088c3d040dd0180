package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"share-governance/internal/app"
	"share-governance/internal/ledger"
	"share-governance/internal/model"
	"share-governance/internal/ports/http/middleware/auth"
	"share-governance/internal/repository/memory"
	"share-governance/internal/signkeys"
	"share-governance/internal/treasury"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

const (
	ownerAddr = "0x0000000000000000000000000000000000000064"
	aliceAddr = "0x0000000000000000000000000000000000000001"
	bobAddr   = "0x0000000000000000000000000000000000000002"
	issuer    = "share-governance"
)

var (
	secret      = []byte("0123456789abcdef0123456789abcdef")
	genesisTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
)

type testAPI struct {
	handler http.Handler
	signer  jose.Signer
}

func newTestAPI(t *testing.T, strict bool) testAPI {
	t.Helper()

	keys, err := signkeys.GenerateKeys()
	require.NoError(t, err)

	logger := zap.NewNop()
	vault := treasury.NewVault(logger, strict)
	engine, err := ledger.Open(context.Background(), logger, model.Identity(ownerAddr), memory.NewJournal(), keys, ledger.DefaultPolicy(),
		ledger.WithClock(func() time.Time { return genesisTime }), ledger.WithFunds(vault))
	require.NoError(t, err)

	tokens := auth.NewTokenValidator(logger, auth.JwtTokenParams{Issuer: issuer, Secret: secret})
	ser := NewServer(logger, app.NewApp(logger, engine, vault, strict), tokens, ":0", nil, 5*time.Second)

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: secret}, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)

	return testAPI{handler: ser.Handler(), signer: signer}
}

func (api testAPI) call(t *testing.T, caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if caller != "" {
		token, err := jwt.Signed(api.signer).Claims(jwt.Claims{
			Subject: caller,
			Issuer:  issuer,
			Expiry:  jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).CompactSerialize()
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func price(shares int64) string {
	return ledger.DefaultPolicy().Price(uint64(shares)).String()
}

func TestHealthcheck(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.call(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthenticated(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.call(t, "", http.MethodGet, "/api/ledger", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShareRoutes(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.call(t, aliceAddr, http.MethodPost, "/api/shares/purchase", purchaseRequest{Shares: 5, Payment: price(5)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var holdings holdingsView
	decode(t, rec, &holdings)
	assert.Equal(t, uint64(5), holdings.Shares)
	assert.Equal(t, "5000000000000000000", holdings.Balance)

	rec = api.call(t, aliceAddr, http.MethodPost, "/api/shares/purchase", purchaseRequest{Shares: 10, Payment: price(5)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.call(t, aliceAddr, http.MethodPost, "/api/shares/purchase", map[string]interface{}{"shares": 0, "payment": "lots"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.call(t, aliceAddr, http.MethodPost, "/api/sale/toggle", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.call(t, ownerAddr, http.MethodPost, "/api/sale/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sale saleView
	decode(t, rec, &sale)
	assert.False(t, sale.SaleOpen)

	rec = api.call(t, bobAddr, http.MethodPost, "/api/shares/purchase", purchaseRequest{Shares: 1, Payment: price(1)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.call(t, bobAddr, http.MethodGet, "/api/shares/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &holdings)
	assert.Zero(t, holdings.Shares)

	rec = api.call(t, aliceAddr, http.MethodGet, "/api/shares/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balance walletView
	decode(t, rec, &balance)
	assert.Equal(t, "5000000000000000000", balance.Balance)

	rec = api.call(t, bobAddr, http.MethodGet, "/api/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view ledgerView
	decode(t, rec, &view)
	assert.Equal(t, ownerAddr, view.Owner)
	assert.False(t, view.SaleOpen)
	assert.Equal(t, uint64(5), view.TotalIssued)
	assert.Equal(t, uint64(100), view.SupplyCap)
	assert.Equal(t, price(5), view.Raised)
	assert.Equal(t, price(5), view.Retained)
	require.Len(t, view.Holders, 1)
	assert.Equal(t, aliceAddr, view.Holders[0].Holder)
	assert.Equal(t, uint64(3), view.Sequence)
}

func TestProposalRoutes(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.call(t, aliceAddr, http.MethodPost, "/api/proposals", createProposalRequest{Title: "Test Proposal"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.Equal(t, http.StatusOK, api.call(t, aliceAddr, http.MethodPost, "/api/shares/purchase", purchaseRequest{Shares: 10, Payment: price(10)}).Code)
	require.Equal(t, http.StatusOK, api.call(t, bobAddr, http.MethodPost, "/api/shares/purchase", purchaseRequest{Shares: 5, Payment: price(5)}).Code)

	rec = api.call(t, aliceAddr, http.MethodPost, "/api/proposals", createProposalRequest{Title: "Test Proposal"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var proposal proposalView
	decode(t, rec, &proposal)
	assert.Equal(t, 0, proposal.ID)
	assert.Equal(t, "DRAFT", proposal.State)
	assert.Nil(t, proposal.ClosedAt)

	rec = api.call(t, aliceAddr, http.MethodPost, "/api/proposals/0/votes", voteRequest{Choice: "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &proposal)
	assert.Equal(t, uint64(10), proposal.ApproveWeight)

	rec = api.call(t, aliceAddr, http.MethodPost, "/api/proposals/0/votes", voteRequest{Choice: "approve"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.call(t, bobAddr, http.MethodPost, "/api/proposals/0/votes", voteRequest{Choice: "abstain"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.call(t, bobAddr, http.MethodPost, "/api/proposals/0/votes", voteRequest{Choice: "1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.call(t, bobAddr, http.MethodPost, "/api/proposals/3/votes", voteRequest{Choice: "reject"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.call(t, bobAddr, http.MethodGet, "/api/proposals/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.call(t, ownerAddr, http.MethodPost, "/api/proposals/0/close", closeRequest{ClosingTime: "2024-03-02T00:00:00Z"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.call(t, aliceAddr, http.MethodPost, "/api/proposals/0/close", closeRequest{ClosingTime: "2024-03-12T12:00:00Z"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.call(t, ownerAddr, http.MethodPost, "/api/proposals/0/close", closeRequest{ClosingTime: "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.call(t, ownerAddr, http.MethodPost, "/api/proposals/0/close", closeRequest{ClosingTime: "2300-01-01T00:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.call(t, ownerAddr, http.MethodPost, "/api/proposals/0/close", closeRequest{ClosingTime: "2024-03-12T12:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &proposal)
	assert.Equal(t, "APPROVED", proposal.State)
	assert.Equal(t, uint64(5), proposal.RejectWeight)
	require.NotNil(t, proposal.ClosedAt)

	rec = api.call(t, ownerAddr, http.MethodPost, "/api/proposals/0/close", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.call(t, bobAddr, http.MethodGet, "/api/proposals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var proposals []proposalView
	decode(t, rec, &proposals)
	require.Len(t, proposals, 1)
	assert.Len(t, proposals[0].Ballots, 2)
}

func TestWalletRoutes(t *testing.T) {
	t.Run("attached funds", func(t *testing.T) {
		api := newTestAPI(t, false)
		rec := api.call(t, aliceAddr, http.MethodGet, "/api/wallet", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("strict funds", func(t *testing.T) {
		api := newTestAPI(t, true)

		rec := api.call(t, aliceAddr, http.MethodPost, "/api/shares/purchase", purchaseRequest{Shares: 2, Payment: price(2)})
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)

		rec = api.call(t, aliceAddr, http.MethodPost, "/api/wallet/deposit", depositRequest{Amount: price(3)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = api.call(t, aliceAddr, http.MethodPost, "/api/shares/purchase", purchaseRequest{Shares: 2, Payment: price(2)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = api.call(t, aliceAddr, http.MethodGet, "/api/wallet", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var wallet walletView
		decode(t, rec, &wallet)
		assert.Equal(t, price(1), wallet.Balance)

		rec = api.call(t, aliceAddr, http.MethodPost, "/api/wallet/deposit", depositRequest{Amount: "0"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
