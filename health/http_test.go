package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonwraymond/healthagg/registry"
)

func newTestHandler(t *testing.T, reg *registry.Registry, prober Prober) http.Handler {
	t.Helper()
	if prober == nil {
		prober = upProber(nil, nil)
	}
	agg := newTestAggregator(t, reg, AggregatorConfig{Prober: prober})
	return NewHandler(agg, HandlerConfig{
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, rec.Body.String())
	}
	return out
}

func registryNames(reg *registry.Registry) []string {
	var out []string
	for _, e := range reg.Snapshot().Entries() {
		out = append(out, e.Name)
	}
	return out
}

func TestServiceList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{"object keeps document order", `{"z":"http://z","a":"http://a","m":"http://m"}`, []string{"z", "a", "m"}, false},
		{"array", `[{"name":"b","address":"http://b"},{"name":"a","address":"http://a"}]`, []string{"b", "a"}, false},
		{"empty object", `{}`, nil, false},
		{"non-string address", `{"a":1}`, nil, true},
		{"scalar", `"nope"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l ServiceList
			err := json.Unmarshal([]byte(tt.in), &l)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if len(l) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(l), len(tt.want))
			}
			for i, e := range l {
				if e.Name != tt.want[i] {
					t.Errorf("[%d] = %q, want %q", i, e.Name, tt.want[i])
				}
			}
		})
	}
}

func TestValidateEntry(t *testing.T) {
	tests := []struct {
		entry   registry.Entry
		wantErr bool
	}{
		{registry.Entry{Name: "a", Address: "https://example.com/health"}, false},
		{registry.Entry{Name: "a", Address: "http://10.0.0.1:8080"}, false},
		{registry.Entry{Name: "", Address: "http://a"}, true},
		{registry.Entry{Name: "a", Address: ""}, true},
		{registry.Entry{Name: "a", Address: "example.com"}, true},
		{registry.Entry{Name: "a", Address: "ftp://example.com"}, true},
	}

	for _, tt := range tests {
		err := ValidateEntry(tt.entry)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEntry(%+v) error = %v, wantErr %v", tt.entry, err, tt.wantErr)
		}
	}
}

func TestHandler_Configure(t *testing.T) {
	reg := registry.New(registry.Entry{Name: "old", Address: "http://old"})
	h := newTestHandler(t, reg, nil)

	rec := do(t, h, http.MethodPost, "/configure",
		`{"services":{"z":"http://z","a":"http://a","m":"http://m"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if msg := decode(t, rec)["message"]; msg != "Services updated successfully" {
		t.Errorf("message = %v", msg)
	}
	got := registryNames(reg)
	if strings.Join(got, ",") != "z,a,m" {
		t.Errorf("registry = %v, want [z a m]", got)
	}
}

func TestHandler_ConfigureMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"invalid json", `{"services":`},
		{"bad address", `{"services":{"a":"not a url"}}`},
		{"missing services", `{}`},
		{"null services", `{"services":null}`},
		{"misspelled key", `{"svc":{"a":"http://x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.New(registry.Entry{Name: "keep", Address: "http://keep"})
			h := newTestHandler(t, reg, nil)

			rec := do(t, h, http.MethodPost, "/configure", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want 400", rec.Code)
			}
			if decode(t, rec)["error"] == nil {
				t.Error("response should carry an error message")
			}
			if reg.Len() != 1 {
				t.Error("registry should be unchanged")
			}
		})
	}
}

func TestHandler_ConfigureMissingServicesMessage(t *testing.T) {
	reg := registry.New(registry.Entry{Name: "keep", Address: "http://keep"})
	h := newTestHandler(t, reg, nil)

	rec := do(t, h, http.MethodPost, "/configure", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", rec.Code)
	}
	if msg := decode(t, rec)["error"]; msg != "services is required" {
		t.Errorf("error = %v, want %q", msg, "services is required")
	}
}

func TestHandler_ConfigureEmptyObjectClears(t *testing.T) {
	reg := registry.New(registry.Entry{Name: "old", Address: "http://old"})
	h := newTestHandler(t, reg, nil)

	rec := do(t, h, http.MethodPost, "/configure", `{"services":{}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestHandler_Register(t *testing.T) {
	reg := registry.New(registry.Entry{Name: "a", Address: "http://a"})
	h := newTestHandler(t, reg, nil)

	rec := do(t, h, http.MethodPost, "/services", `{"name":"b","address":"http://b"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if total := decode(t, rec)["total"]; total != float64(2) {
		t.Errorf("total = %v, want 2", total)
	}

	rec = do(t, h, http.MethodPost, "/services", `{"name":"a","address":"http://other"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", rec.Code)
	}
	if msg, _ := decode(t, rec)["error"].(string); !strings.Contains(msg, `"a"`) {
		t.Errorf("error = %q, want it to name the duplicate", msg)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
}

func TestHandler_RegisterBulk(t *testing.T) {
	reg := registry.New(registry.Entry{Name: "a", Address: "http://a"})
	h := newTestHandler(t, reg, nil)

	rec := do(t, h, http.MethodPost, "/services/bulk",
		`[{"name":"c","address":"http://c"},{"name":"b","address":"http://b"}]`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["added"] != float64(2) || body["total"] != float64(3) {
		t.Errorf("body = %v, want added 2 total 3", body)
	}
	if got := strings.Join(registryNames(reg), ","); got != "a,c,b" {
		t.Errorf("registry = %s, want a,c,b", got)
	}
}

func TestHandler_RegisterBulkRejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"single entry", `[{"name":"x","address":"http://x"}]`, "insufficient batch size"},
		{"duplicate of existing", `[{"name":"x","address":"http://x"},{"name":"a","address":"http://a"}]`, `"a"`},
		{"duplicate within batch", `{"x":"http://x","y":"http://y","x":"http://x"}`, `"x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.New(registry.Entry{Name: "a", Address: "http://a"})
			h := newTestHandler(t, reg, nil)

			rec := do(t, h, http.MethodPost, "/services/bulk", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Status = %d, want 400", rec.Code)
			}
			if msg, _ := decode(t, rec)["error"].(string); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %s", msg, tt.wantMsg)
			}
			if reg.Len() != 1 {
				t.Errorf("Len() = %d, want 1 (no partial insert)", reg.Len())
			}
		})
	}
}

func TestHandler_ListServices(t *testing.T) {
	reg := registry.New(
		registry.Entry{Name: "b", Address: "http://b"},
		registry.Entry{Name: "a", Address: "http://a"},
	)
	h := newTestHandler(t, reg, nil)

	rec := do(t, h, http.MethodGet, "/services", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var body struct {
		Services []registry.Entry `json:"services"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if body.Total != 2 || body.Services[0].Name != "b" || body.Services[1].Address != "http://a" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		down       map[string]bool
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"degraded", map[string]bool{"b": true}, http.StatusOK, "degraded"},
		{"unhealthy", map[string]bool{"a": true, "b": true}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := ProberFunc(func(ctx context.Context, e registry.Entry) ProbeResult {
				if tt.down[e.Name] {
					return Down(e, 500, "", 0)
				}
				return Up(e, 200, 0)
			})
			reg := registry.New(
				registry.Entry{Name: "a", Address: "http://a"},
				registry.Entry{Name: "b", Address: "http://b"},
			)
			h := newTestHandler(t, reg, prober)

			rec := do(t, h, http.MethodGet, "/health", "")
			if rec.Code != tt.wantCode {
				t.Errorf("Status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var report Report
			if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if report.SystemStatus.String() != tt.wantStatus {
				t.Errorf("system_status = %v, want %s", report.SystemStatus, tt.wantStatus)
			}
			if report.ServiceCount != 2 || report.Results[0].Service != "a" {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestHandler_HealthEmptyRegistry(t *testing.T) {
	h := newTestHandler(t, registry.New(), nil)

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
	if msg, _ := decode(t, rec)["error"].(string); !strings.Contains(msg, "no services registered") {
		t.Errorf("error = %q", msg)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, registry.New(), nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/configure"},
		{http.MethodDelete, "/services"},
		{http.MethodGet, "/services/bulk"},
		{http.MethodPost, "/health"},
	}

	for _, tt := range tests {
		rec := do(t, h, tt.method, tt.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s = %d, want 405", tt.method, tt.path, rec.Code)
		}
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	reg := registry.New()
	h := newTestHandler(t, reg, nil)

	body := `{"name":"a","address":"http://` + strings.Repeat("a", MaxRequestBody) + `"}`
	rec := do(t, h, http.MethodPost, "/services", body)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Status = %d, want 413", rec.Code)
	}
	if reg.Len() != 0 {
		t.Error("registry should be unchanged")
	}
}

func TestHandler_Liveness(t *testing.T) {
	h := newTestHandler(t, registry.New(), nil)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandler_Metrics(t *testing.T) {
	h := newTestHandler(t, registry.New(), nil)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Errorf("GET /metrics = %d %q", rec.Code, rec.Body.String())
	}

	agg := newTestAggregator(t, nil, AggregatorConfig{})
	rec = do(t, NewHandler(agg), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without handler = %d, want 404", rec.Code)
	}
}

func TestStatusCode(t *testing.T) {
	if StatusCode(StatusHealthy) != http.StatusOK || StatusCode(StatusDegraded) != http.StatusOK {
		t.Error("healthy and degraded should map to 200")
	}
	if StatusCode(StatusUnhealthy) != http.StatusServiceUnavailable {
		t.Error("unhealthy should map to 503")
	}
}
