package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pizzeria/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

var errUnauthorized = errors.New("unauthorized")

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API keys.
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

// HashAPIKey returns the hex HMAC-SHA256 of key under pepper, as stored in
// the api_keys table.
func HashAPIKey(pepper []byte, key string) string {
	return hex.EncodeToString(keyMAC(pepper, key))
}

func keyMAC(pepper []byte, key string) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// Authenticate resolves an API key to the actor that owns it.
func (s *SecurityHandler) Authenticate(ctx context.Context, key string) (auth.Actor, error) {
	if key == "" {
		return auth.Actor{}, errUnauthorized
	}
	hash := keyMAC(s.pepper, key)

	info, err := s.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return auth.Actor{}, errUnauthorized
	}

	// The stored row may still differ from the computed hash.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return auth.Actor{}, errUnauthorized
	}
	return info.User.Actor(), nil
}

// Middleware rejects requests without a valid API key with 401 and stores
// the authenticated actor in the request context.
func (s *SecurityHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		a, err := s.Authenticate(ctx, r.Header.Get(APIKeyHeader))
		if err != nil {
			zctx.From(ctx).Debug("Authentication failed", zap.Error(err))
			writeMessage(w, http.StatusUnauthorized, "Not authorized")
			return
		}

		ctx = auth.WithActor(ctx, a)
		ctx = zctx.With(ctx, zap.String("actor_id", a.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
