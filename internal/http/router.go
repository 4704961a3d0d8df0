// Package httpapi assembles the FeedLink HTTP surface: shared middleware,
// the donor, public and admin route groups, health and metrics.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	donationhandler "feedlink/internal/donation/handler"
	doneehandler "feedlink/internal/donee/handler"
	"feedlink/internal/platform/metrics"
	"feedlink/internal/ratelimit"
	statshandler "feedlink/internal/stats/handler"
	"feedlink/pkg/platform/httputil"
	"feedlink/pkg/platform/middleware/admin"
	authmw "feedlink/pkg/platform/middleware/auth"
	"feedlink/pkg/platform/middleware/metadata"
	request "feedlink/pkg/platform/middleware/request"
	"feedlink/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Deps holds everything the router mounts.
type Deps struct {
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	Gatherer          prometheus.Gatherer
	JWTValidator      authmw.JWTValidator
	AdminUsername     string
	AdminPasswordHash string

	Donations *donationhandler.Handler
	Donees    *doneehandler.Handler
	Stats     *statshandler.Handler

	// Limiter is optional; nil disables throttling of the public routes.
	Limiter       ratelimit.Limiter
	ConfirmPolicy ratelimit.Policy
	PublicPolicy  ratelimit.Policy

	HealthChecks map[string]HealthCheck
}

// NewRouter wires every route behind the shared middleware chain.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", healthHandler(d.HealthChecks))
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(ratelimit.Middleware(d.Limiter, d.ConfirmPolicy, d.Logger))
		}
		d.Donations.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(ratelimit.Middleware(d.Limiter, d.PublicPolicy, d.Logger))
		}
		d.Stats.RegisterPublic(r)
		d.Donees.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.JWTValidator, d.Logger))
		d.Donations.RegisterDonor(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(d.AdminUsername, d.AdminPasswordHash, d.Logger))
		d.Donees.RegisterAdmin(r)
		d.Donations.RegisterAdmin(r)
		d.Stats.RegisterAdmin(r)
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		results := make([]string, len(names))
		var g errgroup.Group
		for i, name := range names {
			g.Go(func() error {
				if err := checks[name](ctx); err != nil {
					results[i] = err.Error()
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		status, code := "ok", http.StatusOK
		if err := g.Wait(); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		resp := healthResponse{Status: status}
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
			for i, name := range names {
				resp.Checks[name] = results[i]
			}
		}
		httputil.WriteJSON(w, code, resp)
	}
}
