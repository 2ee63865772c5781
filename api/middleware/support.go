package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/shopnearby-backend/api/responses"
	pkgerrors "github.com/angelmondragon/shopnearby-backend/pkg/errors"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
)

// SupportKeyHeader authenticates the support dashboard.
const SupportKeyHeader = "X-Support-Key"

// RequireSupportKey guards support-agent routes with a shared key. An empty
// key disables the routes entirely.
func RequireSupportKey(key string, logg *logger.Logger) func(http.Handler) http.Handler {
	key = strings.TrimSpace(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "support console disabled"))
				return
			}
			got := strings.TrimSpace(r.Header.Get(SupportKeyHeader))
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "support key required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
