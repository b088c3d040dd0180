package auth

import (
	"net/http"
	"net/http/httptest"
	"share-governance/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

var (
	secret = []byte("0123456789abcdef0123456789abcdef")
	now    = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
)

func sign(t *testing.T, key []byte, claims jwt.Claims) string {
	t.Helper()

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: key}, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)

	token, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	require.NoError(t, err)

	return token
}

func TestAuthenticate(t *testing.T) {
	validator := NewTokenValidator(zap.NewNop(), JwtTokenParams{Issuer: "share-governance", Secret: secret})
	validator.now = func() time.Time { return now }

	var seen model.Identity
	handler := validator.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := IdentityFrom(r.Context())
		require.NoError(t, err)
		seen = caller
	}))

	valid := jwt.Claims{
		Subject: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		Issuer:  "share-governance",
		Expiry:  jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + sign(t, secret, valid), http.StatusOK},
		{"missing token", "", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def", http.StatusUnauthorized},
		{"wrong key", "Bearer " + sign(t, []byte("fedcba9876543210fedcba9876543210"), valid), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, secret, jwt.Claims{Subject: valid.Subject, Issuer: valid.Issuer, Expiry: jwt.NewNumericDate(now.Add(-time.Hour))}), http.StatusUnauthorized},
		{"foreign issuer", "Bearer " + sign(t, secret, jwt.Claims{Subject: valid.Subject, Issuer: "someone"}), http.StatusUnauthorized},
		{"subject is not an address", "Bearer " + sign(t, secret, jwt.Claims{Subject: "alice", Issuer: valid.Issuer}), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/shares/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, model.Identity("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"), seen)
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

func TestIdentityFromEmptyContext(t *testing.T) {
	_, err := IdentityFrom(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.ErrorIs(t, err, ErrNoIdentity)
}
