package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/httputil"
	request "feedlink/pkg/platform/middleware/request"
)

// RequireAdmin guards admin routes with HTTP basic auth. An empty
// passwordHash locks the routes.
func RequireAdmin(username, passwordHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorized(r, username, passwordHash) {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin authentication failed",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("WWW-Authenticate", `Basic realm="feedlink-admin"`)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin credentials required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorized(r *http.Request, username, passwordHash string) bool {
	user, pass, ok := r.BasicAuth()
	if !ok || passwordHash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
	// bcrypt runs even on a username mismatch so timing does not reveal valid names.
	passOK := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)) == nil
	return userOK && passOK
}
