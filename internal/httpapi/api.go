// Package httpapi is the HTTP boundary of the bank service. It parses and
// validates requests, dispatches to the account registry, and maps domain
// errors to status codes. All business logic lives below it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kassa.org/internal/audit"
	"kassa.org/internal/config"
	"kassa.org/internal/obs"
	"kassa.org/internal/registry"
	"kassa.org/internal/stream"
)

// API is the HTTP layer.
type API struct {
	registry registry.Service
	stream   *stream.Stream
	version  string
	limits   config.LimitsConfig
}

// New wires the HTTP layer to its collaborators. stream may be nil to
// disable the live feed.
func New(reg registry.Service, st *stream.Stream, version string, limits config.LimitsConfig) *API {
	return &API{
		registry: reg,
		stream:   st,
		version:  version,
		limits:   limits,
	}
}

// Handler returns the fully wired router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logging)
	r.Use(SecurityHeaders)
	r.Use(CORS)
	r.Use(MaxBodyBytes(a.limits.MaxBodyBytes))
	r.Use(RateLimit(a.limits.RateBurst, a.limits.RatePerSecond))

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.ready)
	r.Get("/v1/info", a.info)
	r.Handle("/metrics", obs.Handler())

	r.Route("/v1/accounts", func(r chi.Router) {
		r.Post("/", a.openAccount)
		r.Route("/{accountID}", func(r chi.Router) {
			r.Get("/", a.getAccount)
			r.Get("/balance", a.getBalance)
			r.Get("/history", a.getHistory)
			r.Post("/deposits", a.deposit)
			r.Post("/withdrawals", a.withdraw)
			r.Post("/month-end", a.monthEnd)
		})
	})

	r.Get("/v1/stream", a.streamEvents)

	return obs.Instrument(r)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "bankd",
		"version": a.version,
	})
}

// ready mirrors healthz: the registry is in-process, so the service is
// ready as soon as it listens.
func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "bankd",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// audit emits one audit event for a mutating operation.
func (a *API) audit(ctx context.Context, event, resource, id string, meta map[string]string) {
	fields := map[string]any{
		"resource":    resource,
		"resource_id": id,
	}
	for k, v := range meta {
		fields[k] = v
	}
	_ = audit.LogEvent(ctx, event, fields)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
