package auth

import (
	"context"
	"errors"
	"net/http"
	"share-governance/internal/model"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/square/go-jose.v2/jwt"
)

type contextKey struct{}

var ErrNoIdentity = errors.New("request carries no caller identity")

type JwtTokenParams struct {
	Issuer string
	// Secret is the HS256 key the tokens are signed with
	Secret []byte
}

type TokenValidator struct {
	JwtTokenParams
	logger *zap.Logger
	now    func() time.Time
}

func NewTokenValidator(logger *zap.Logger, params JwtTokenParams) TokenValidator {
	return TokenValidator{logger: logger, JwtTokenParams: params, now: time.Now}
}

// Authenticate verifies the bearer token and puts the identity from its
// subject claim into the request context
func (t TokenValidator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if !strings.HasPrefix(token, "Bearer ") {
			t.authError(w, errors.New("missing bearer token"))
			return
		}

		claims, err := t.parseToken(strings.TrimPrefix(token, "Bearer "))
		if err != nil {
			t.authError(w, errors.New("failed to parse the auth token: "+err.Error()))
			return
		}

		if err := t.validateClaims(claims); err != nil {
			t.authError(w, errors.New("auth token validation: "+err.Error()))
			return
		}

		caller, err := model.ParseIdentity(claims.Subject)
		if err != nil {
			t.authError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), caller)))
	})
}

func (t TokenValidator) authError(w http.ResponseWriter, err error) {
	t.logger.Warn(err.Error())
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(err.Error()))
}

func (t TokenValidator) validateClaims(claims jwt.Claims) error {
	return claims.Validate(jwt.Expected{
		Issuer: t.Issuer,
		Time:   t.now(),
	})
}

func (t TokenValidator) parseToken(tokenString string) (jwt.Claims, error) {
	var claims jwt.Claims

	token, err := jwt.ParseSigned(tokenString)
	if err != nil {
		return claims, err
	}

	if err := token.Claims(t.Secret, &claims); err != nil {
		return claims, err
	}

	return claims, nil
}

func WithIdentity(ctx context.Context, caller model.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

func IdentityFrom(ctx context.Context) (model.Identity, error) {
	caller, ok := ctx.Value(contextKey{}).(model.Identity)
	if !ok || caller.IsZero() {
		return "", ErrNoIdentity
	}

	return caller, nil
}
