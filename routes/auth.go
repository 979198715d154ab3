package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pixshift/logger"
	"pixshift/models"
	"pixshift/utils"
)

type claimsKey struct{}

// verifyJWT verifies the bearer token of the request and returns its claims
func verifyJWT(r *http.Request, cfg utils.VerifyConfig) (*models.APIClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header required")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	return utils.VerifyToken(token, cfg)
}

// RequireToken rejects requests without a valid token. Read-only tokens may
// only use GET.
func RequireToken(cfg utils.VerifyConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := verifyJWT(r, cfg)
		if err != nil {
			logger.Warnf("Rejected request: path=%s, remoteAddr=%s: %v", r.URL.Path, r.RemoteAddr, err)
			http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
			return
		}
		if claims.ReadOnly && r.Method != http.MethodGet {
			http.Error(w, "Token is read-only", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// ClaimsFrom returns the verified claims of an authenticated request.
func ClaimsFrom(ctx context.Context) (*models.APIClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*models.APIClaims)
	return c, ok
}
