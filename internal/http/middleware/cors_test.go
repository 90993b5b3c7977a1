package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func preflight(r *gin.Engine, path, origin, headers string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, path, nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	if headers != "" {
		req.Header.Set("Access-Control-Request-Headers", headers)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func corsRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins))
	r.OPTIONS("/api/duplicates/:id/merge", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestCORSFallsBackToDevOrigins(t *testing.T) {
	t.Parallel()
	for _, origin := range DevOrigins {
		origin := origin
		t.Run(origin, func(t *testing.T) {
			t.Parallel()
			rec := preflight(corsRouter(nil), "/api/duplicates/x/merge", origin, "")
			if rec.Code != http.StatusNoContent {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
				t.Fatalf("unexpected allow-origin header: got=%q want=%q", got, origin)
			}
		})
	}
}

func TestCORSConfiguredOriginsReplaceDefaults(t *testing.T) {
	r := corsRouter([]string{"https://family.example.org"})

	rec := preflight(r, "/api/duplicates/x/merge", "https://family.example.org", "X-Actor-Id")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://family.example.org" {
		t.Fatalf("allow-origin: got=%q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(strings.ToLower(got), "x-actor-id") {
		t.Fatalf("actor header not allowed: got=%q", got)
	}

	rec = preflight(r, "/api/duplicates/x/merge", "http://localhost:3000", "")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("dev origin should be rejected, got allow-origin=%q", got)
	}
}
