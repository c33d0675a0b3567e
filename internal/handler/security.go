package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/internal/domain/auth"
	"github.com/xenking/cart-pricing/pkg/httpmiddleware"
)

// HeaderAPIKey carries the client API key.
const HeaderAPIKey = "api_key"

// ErrUnauthorized is returned for a missing, unknown or mismatching key.
var ErrUnauthorized = errors.New("unauthorized")

type apiKeyCtxKey struct{}

// APIKeyFromContext returns the key that authenticated the request.
func APIKeyFromContext(ctx context.Context) (*auth.APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyCtxKey{}).(*auth.APIKeyInfo)
	return info, ok
}

// SecurityHandler authenticates requests by HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Authenticate resolves a raw key. The stored hash is compared in constant
// time even though the lookup already matched on it.
func (s *SecurityHandler) Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hash := auth.HashKey(s.pepper, key)

	info, err := s.apikeys.FindByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			zctx.From(ctx).Warn("API key lookup failed", zap.Error(err))
		}
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return nil, ErrUnauthorized
	}
	return info, nil
}

// Require wraps next with API key authentication and a scope check.
func (s *SecurityHandler) Require(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := s.Authenticate(r.Context(), r.Header.Get(HeaderAPIKey))
		if err != nil {
			httpmiddleware.WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !info.HasScope(scope) {
			httpmiddleware.WriteError(w, http.StatusForbidden, "api key lacks scope "+scope)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), apiKeyCtxKey{}, info)))
	}
}
