package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/httputil"
	request "feedlink/pkg/platform/middleware/request"
	"feedlink/pkg/requestcontext"
)

// Middleware enforces policy per client IP. It must run after
// metadata.ClientMetadata. Limiter failures let the request through.
func Middleware(limiter Limiter, policy Policy, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			res, err := limiter.Allow(ctx, policy.Name+":"+ip, policy.Limit, policy.Window)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", request.GetRequestID(ctx),
					"policy", policy.Name,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", request.GetRequestID(ctx),
					"policy", policy.Name,
					"client_ip", ip,
				)
				w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter(time.Now())))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
