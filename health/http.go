package health

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jonwraymond/healthagg/observe"
	"github.com/jonwraymond/healthagg/registry"
)

// MaxRequestBody caps the size of registry mutation bodies.
const MaxRequestBody = 1 << 20

// HandlerConfig configures the HTTP transport.
type HandlerConfig struct {
	// Logger records registry mutations. Default: no-op.
	Logger observe.Logger

	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
}

// ConfigureRequest is the body of POST /configure. Services keeps the
// document order of the JSON object. A nil Services means the mapping was
// absent or null; an empty object clears the registry.
type ConfigureRequest struct {
	Services *ServiceList `json:"services"`
}

// RegisterRequest is the body of POST /services.
type RegisterRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ServiceList is an ordered list of entries that decodes from either a JSON
// object mapping name to address or an array of {name, address} objects.
type ServiceList []registry.Entry

// UnmarshalJSON decodes an object in document order or an array of entries.
func (l *ServiceList) UnmarshalJSON(data []byte) error {
	var entries []registry.Entry
	if err := json.Unmarshal(data, &entries); err == nil {
		*l = entries
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("services must be an object or an array")
	}

	var out []registry.Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var address string
		if err := dec.Decode(&address); err != nil {
			return fmt.Errorf("service %q: address must be a string", name)
		}
		out = append(out, registry.Entry{Name: name, Address: address})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*l = out
	return nil
}

// ValidateEntry checks that an entry has a name and an absolute http(s) address.
func ValidateEntry(e registry.Entry) error {
	if e.Name == "" {
		return errors.New("service name is required")
	}
	if e.Address == "" {
		return fmt.Errorf("service %q: address is required", e.Name)
	}
	u, err := url.Parse(e.Address)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("service %q: address %q is not an absolute http(s) URL", e.Name, e.Address)
	}
	return nil
}

// NewHandler returns the HTTP transport for agg and its registry.
//
// Routes:
//
//	POST /configure      replace the registry
//	POST /services       register one service
//	POST /services/bulk  register several services, all or nothing
//	GET  /services       list the registry in order
//	GET  /health         probe every service and report
//	GET  /healthz        liveness of the aggregator itself
//	GET  /metrics        Prometheus exposition, when configured
func NewHandler(agg *Aggregator, config ...HandlerConfig) http.Handler {
	var cfg HandlerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	h := &handler{reg: agg.Registry(), logger: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /configure", h.configure)
	mux.HandleFunc("POST /services", h.register)
	mux.HandleFunc("POST /services/bulk", h.registerBulk)
	mux.HandleFunc("GET /services", h.list)
	mux.HandleFunc("GET /health", ReportHandler(agg))
	mux.HandleFunc("GET /healthz", LivenessHandler())
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}
	return mux
}

type handler struct {
	reg    *registry.Registry
	logger observe.Logger
}

func (h *handler) configure(w http.ResponseWriter, r *http.Request) {
	var req ConfigureRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Services == nil {
		writeError(w, http.StatusBadRequest, errors.New("services is required"))
		return
	}
	entries := *req.Services
	for _, e := range entries {
		if err := ValidateEntry(e); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	h.reg.Replace(entries)
	h.logger.Info(r.Context(), "registry replaced", observe.F("total", h.reg.Len()))

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Services updated successfully",
	})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry := registry.Entry{Name: req.Name, Address: req.Address}
	if err := ValidateEntry(entry); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	total, err := h.reg.Add(entry.Name, entry.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.logger.Info(r.Context(), "service registered",
		observe.F("service.name", entry.Name),
		observe.F("total", total),
	)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": fmt.Sprintf("Service %q registered", entry.Name),
		"total":   total,
	})
}

func (h *handler) registerBulk(w http.ResponseWriter, r *http.Request) {
	var entries ServiceList
	if !decodeBody(w, r, &entries) {
		return
	}
	for _, e := range entries {
		if err := ValidateEntry(e); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	total, err := h.reg.AddBulk(entries)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.logger.Info(r.Context(), "services registered",
		observe.F("added", len(entries)),
		observe.F("total", total),
	)

	writeJSON(w, http.StatusCreated, map[string]any{
		"added": len(entries),
		"total": total,
	})
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	entries := h.reg.Snapshot().Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"services": entries,
		"total":    len(entries),
	})
}

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the aggregator itself is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReportHandler returns an HTTP handler that runs a health check and writes
// the report. Healthy and degraded systems answer 200, unhealthy ones 503.
// An empty registry is a client error.
func ReportHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := agg.Check(r.Context())
		if err != nil {
			if errors.Is(err, ErrEmptyRegistry) {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		writeJSON(w, StatusCode(report.SystemStatus), report)
	}
}

// StatusCode maps a system status to the HTTP status of the report response.
func StatusCode(s Status) int {
	switch s {
	case StatusHealthy, StatusDegraded:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, errors.New("request body is empty"))
		default:
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
