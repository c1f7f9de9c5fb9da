package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// CheckFunc reports whether one dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Response is the JSON body for /health and /ready.
type Response struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler serves liveness and readiness probes.
type Handler struct {
	version string
	timeout time.Duration
	names   []string
	checks  map[string]CheckFunc
	logger  *logging.Logger
}

func NewHandler(version string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		version: version,
		timeout: 3 * time.Second,
		checks:  make(map[string]CheckFunc),
		logger:  logger,
	}
}

// Register adds a named readiness check. Nil checks are ignored.
func (h *Handler) Register(name string, check CheckFunc) *Handler {
	if check == nil {
		return h
	}
	if _, ok := h.checks[name]; !ok {
		h.names = append(h.names, name)
	}
	h.checks[name] = check
	return h
}

// GatewayCheck pings the record backend through the gateway envelope.
func GatewayCheck(g *records.Gateway) CheckFunc {
	if g == nil {
		return nil
	}
	return func(ctx context.Context) error {
		res := g.Ping(ctx)
		if !res.Success {
			return errors.New(res.Error)
		}
		return nil
	}
}

// SQLCheck pings a database/sql handle.
func SQLCheck(db *sql.DB) CheckFunc {
	if db == nil {
		return nil
	}
	return db.PingContext
}

// Live is the liveness probe. Always returns 200.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{
		Status:    "ok",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	})
}

// Ready runs every registered check: 200 if all pass, 503 otherwise.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	components := make(map[string]CompStatus, len(h.names))
	overall := "ok"
	for _, name := range h.names {
		start := time.Now()
		err := h.checks[name](ctx)
		latency := time.Since(start)
		if err != nil {
			h.logger.Warn("readiness check failed", "component", name, "error", err)
			components[name] = CompStatus{Status: "down", Error: err.Error()}
			overall = "down"
			continue
		}
		components[name] = CompStatus{Status: "ok", Latency: latency.String()}
	}

	status := http.StatusOK
	if overall != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, Response{
		Status:     overall,
		Version:    h.version,
		Components: components,
		Timestamp:  time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
