// Package httptransport assembles the public API surface: platform
// middleware chain, feature handler mounts, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	campaignhandler "medfund/internal/campaign/handler"
	donationhandler "medfund/internal/donation/handler"
	evidencehandler "medfund/internal/evidence/handler"
	identityhandler "medfund/internal/identity/handler"
	"medfund/internal/platform/metrics"
	mw "medfund/internal/platform/middleware"
	walletauthhandler "medfund/internal/walletauth/handler"
	"medfund/pkg/platform/httputil"
)

// HealthCheck probes one backing dependency by name.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router mounts.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TokenValidator mw.WalletTokenValidator
	WalletAuth     *walletauthhandler.Handler
	Identity       *identityhandler.Handler
	Evidence       *evidencehandler.Handler
	Campaign       *campaignhandler.Handler
	Donation       *donationhandler.Handler
	RequestTimeout time.Duration
	HealthChecks   map[string]HealthCheck
}

// NewRouter builds the chi router. Challenge issue/verify, health and
// metrics are public; every feature route sits behind a wallet session,
// including reads, so the audit trail always has an actor.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Recovery(d.Logger))
	r.Use(mw.RequestID)
	r.Use(mw.RequestTime)
	r.Use(mw.ClientMetadata)
	r.Use(mw.Logger(d.Logger))
	if d.RequestTimeout > 0 {
		r.Use(mw.Timeout(d.RequestTimeout))
	}
	if d.Metrics != nil {
		r.Use(mw.Latency(d.Metrics))
	}

	r.Get("/healthz", healthHandler(d.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(mw.ContentTypeJSON)
		d.WalletAuth.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.ContentTypeJSON)
		r.Use(mw.RequireWallet(d.TokenValidator, d.Logger))
		d.Identity.Register(r)
		d.Evidence.Register(r)
		d.Campaign.Register(r)
		d.Donation.Register(r)
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(r.Context()); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
