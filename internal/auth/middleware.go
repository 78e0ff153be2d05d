package auth

import (
	"net/http"
	"strings"

	"github.com/stockward/stockward/internal/platform/httpx"
	"github.com/stockward/stockward/internal/shared"
)

// RequireAccount rejects requests without a valid bearer token and stores the
// authenticated account id in the request context for downstream handlers.
func RequireAccount(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") {
				httpx.RespondError(w, shared.ErrInvalidCredentials)
				return
			}

			accountID, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				httpx.RespondError(w, err)
				return
			}

			ctx := shared.ContextWithAccount(r.Context(), accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
