package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"feedlink/pkg/requestcontext"
)

// ClientMetadata stores the caller's IP and parsed User-Agent in the context
// so audit events can record who followed a confirmation link. Mail scanners
// that prefetch links show up with Bot set.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), ClientIPFromRequest(r))
		ctx = requestcontext.WithClientAgent(ctx, ParseAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseAgent summarises a raw User-Agent header.
func ParseAgent(raw string) requestcontext.Agent {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return requestcontext.Agent{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	browser := strings.TrimSpace(name + " " + version)
	return requestcontext.Agent{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
}

// ClientIPFromRequest extracts the real client IP, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For may hold "client, proxy1, proxy2"; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" ("[::1]:port" for IPv6).
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
