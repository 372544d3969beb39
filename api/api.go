// Package api serves the /api/user endpoints. Every request under the
// router is signature-verified, bound to the session of its public key and
// answered with a signed response.
package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/andrewkuryan/brownie/notify"
	"github.com/andrewkuryan/brownie/signature"
	"github.com/andrewkuryan/brownie/srp"
	"github.com/andrewkuryan/brownie/store"
)

// DefaultTempSessionTTL bounds how long a login handshake may stay pending.
const DefaultTempSessionTTL = 5 * time.Minute

const maxBodyBytes = 1 << 20

// API holds the dependencies needed by the REST handlers.
type API struct {
	store    *store.Store
	engine   *srp.Engine
	signer   *signature.Signer
	notifier notify.Notifier

	logger  *slog.Logger
	audit   *auditLogger
	alertFn AlertFunc
	tempTTL time.Duration
	origins []string
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for request and audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithTempSessionTTL sets how long a login handshake stays valid. A
// non-positive ttl disables expiry.
func WithTempSessionTTL(ttl time.Duration) Option {
	return func(a *API) {
		a.tempTTL = ttl
	}
}

// WithAlertFunc installs a callback for anomaly alerts.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithAllowedOrigins restricts CORS to the given origins. By default any
// origin is echoed back.
func WithAllowedOrigins(origins ...string) Option {
	return func(a *API) {
		a.origins = origins
	}
}

// New creates a new API instance. notifier delivers verification codes.
func New(st *store.Store, engine *srp.Engine, signer *signature.Signer, notifier notify.Notifier, opts ...Option) *API {
	a := &API{
		store:    st,
		engine:   engine,
		signer:   signer,
		notifier: notifier,
		tempTTL:  DefaultTempSessionTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.logger = a.logger.With("component", "api")
	var metrics *metricsCollector
	if a.alertFn != nil {
		metrics = newMetricsCollector(a.alertFn)
	}
	a.audit = newAuditLogger(a.logger, metrics)
	return a
}

// Router returns a chi.Router with all API routes. It is meant to be
// mounted at /api.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(a.CORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/redoc",
	}, nil))

	r.Route("/user", func(r chi.Router) {
		r.Use(a.SignResponses, a.VerifyRequests)

		r.Get("/", a.GetUser)
		r.Post("/contact/email", a.AddEmailContact)
		r.Post("/contact/resend-code", a.ResendCode)
		r.Post("/contact/{id}/verify", a.VerifyContact)
		r.Put("/fulfill", a.FulfillUser)
		r.Post("/login/init", a.LoginInit)
		r.Post("/login/verify", a.LoginVerify)
		r.Post("/logout", a.Logout)
		r.Get("/{id}/info", a.UserInfo)
	})

	return r
}

// SweepTempSessions removes stale login handshakes every interval until ctx
// is done.
func (a *API) SweepTempSessions(ctx context.Context, interval time.Duration) {
	if a.tempTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.store.ExpireTempSessions(ctx, a.tempTTL); err != nil && ctx.Err() == nil {
				a.logger.Warn("sweeping login sessions failed", "error", err)
			}
		}
	}
}
