package mw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keepmark/internal/identity"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
	"github.com/MrSnakeDoc/keepmark/internal/metrics"
)

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ := identity.OwnerFrom(r.Context())
		_, _ = w.Write([]byte(owner))
	})
}

func TestRequireIdentity(t *testing.T) {
	tokens := identity.NewTokenTable()
	tokens.Replace(map[string]string{"secret-a": "alice"})
	h := RequireIdentity(tokens, logger.Nop())(ownerEcho())

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
		wantBody string
	}{
		{
			name:     "no token",
			setup:    func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
			wantBody: "Not authorized, no token",
		},
		{
			name:     "unknown token",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantCode: http.StatusUnauthorized,
			wantBody: "Not authorized, token failed",
		},
		{
			name:     "wrong scheme",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Basic secret-a") },
			wantCode: http.StatusUnauthorized,
			wantBody: "Not authorized, no token",
		},
		{
			name:     "bearer header",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-a") },
			wantCode: http.StatusOK,
			wantBody: "alice",
		},
		{
			name:     "lowercase scheme",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "bearer secret-a") },
			wantCode: http.StatusOK,
			wantBody: "alice",
		},
		{
			name:     "cookie",
			setup:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "secret-a"}) },
			wantCode: http.StatusOK,
			wantBody: "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	called := false
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	// Preflight is answered without reaching the handler.
	req := httptest.NewRequest(http.MethodOptions, "/api/bookmarks", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
		t.Errorf("Allow-Headers = %q, want Authorization", got)
	}

	// Simple request gets the origin header and passes through.
	req = httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
	req.Header.Set("Origin", "https://app.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("request should reach the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"marks.example.com", "*.lan"}, logger.Nop())(ownerEcho())

	tests := []struct {
		host string
		want int
	}{
		{"marks.example.com", http.StatusOK},
		{"marks.example.com:8080", http.StatusOK},
		{"MARKS.example.com", http.StatusOK},
		{"box.lan", http.StatusOK},
		{"evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tt.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("Host %q: status = %d, want %d", tt.host, rec.Code, tt.want)
		}
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, logger.Nop())(ownerEcho())

	tests := []struct {
		remote string
		want   int
	}{
		{"10.1.2.3:5555", http.StatusOK},
		{"192.168.1.1:5555", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		req.RemoteAddr = tt.remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("RemoteAddr %q: status = %d, want %d", tt.remote, rec.Code, tt.want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(CreateLimit(2, 1, false))(ownerEcho())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/bookmarks", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)

		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Error("429 without Retry-After")
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: status = %d, want %d", i+1, codes[i], want[i])
		}
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Delete("/api/bookmarks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodDelete, "/api/bookmarks/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	want := `keepmark_http_requests_total{code="404",method="DELETE",route="/api/bookmarks/{id}"} 2`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output missing %q", want)
	}
}
