package auth

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/httputil"
	request "feedlink/pkg/platform/middleware/request"
	"feedlink/pkg/requestcontext"
)

// JWTValidator checks a donor access token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is what donor routes need from a token: a stable donor id.
type JWTClaims struct {
	UserID string
}

// RequireAuth validates the bearer token and stores the donor id in the
// request context (see requestcontext.UserID).
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				reject(w, r, logger, "missing bearer token", nil, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			switch {
			case err != nil:
				reject(w, r, logger, "invalid bearer token", err, "Invalid or expired token")
				return
			case claims == nil || claims.UserID == "":
				reject(w, r, logger, "bearer token without donor id", nil, "Invalid or expired token")
				return
			}

			ctx := requestcontext.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string, cause error, description string) {
	ctx := r.Context()
	attrs := []any{"reason", reason, "request_id", request.GetRequestID(ctx)}
	if cause != nil {
		attrs = append(attrs, "error", cause)
	}
	logger.WarnContext(ctx, "donor authentication failed", attrs...)
	w.Header().Set("WWW-Authenticate", `Bearer realm="feedlink"`)
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, description))
}
