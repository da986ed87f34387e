package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCORSEngine(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CORS(origins))
	engine.GET("/api/report", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return engine
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllow   string
		wantExposed string
	}{
		{"allowed preflight", []string{"http://localhost:5173/"}, http.MethodOptions, "http://localhost:5173", true, http.StatusNoContent, "http://localhost:5173", ""},
		{"rejected preflight", []string{"http://localhost:5173"}, http.MethodOptions, "http://evil.test", true, http.StatusForbidden, "", ""},
		{"allowed request", []string{"http://localhost:5173"}, http.MethodGet, "http://LOCALHOST:5173", false, http.StatusOK, "http://LOCALHOST:5173", "Content-Disposition"},
		{"foreign request passes without headers", []string{"http://localhost:5173"}, http.MethodGet, "http://evil.test", false, http.StatusOK, "", ""},
		{"wildcard", []string{"*"}, http.MethodGet, "http://anything.test", false, http.StatusOK, "*", "Content-Disposition"},
		{"no origin", []string{"*"}, http.MethodGet, "", false, http.StatusOK, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/report", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			recorder := httptest.NewRecorder()
			newCORSEngine(tt.origins...).ServeHTTP(recorder, req)

			if recorder.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
			if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("allow-origin = %q, want %q", got, tt.wantAllow)
			}
			if got := recorder.Header().Get("Access-Control-Expose-Headers"); got != tt.wantExposed {
				t.Fatalf("expose-headers = %q, want %q", got, tt.wantExposed)
			}
		})
	}
}
