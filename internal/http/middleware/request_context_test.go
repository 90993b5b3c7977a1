package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/heirloom-backend/internal/platform/ctxutil"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

func newActorRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachRequestContext())
	am := NewActorMiddleware(logger.Nop())
	r.POST("/mutate", am.RequireActor(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"actor": rd.ActorID, "request_id": rd.RequestID})
	})
	return r
}

func TestRequireActorRejectsMissingHeader(t *testing.T) {
	r := newActorRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireActorPassesActorThrough(t *testing.T) {
	r := newActorRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.Header.Set("X-Actor-Id", "  archivist-7 ")
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); body != `{"actor":"archivist-7","request_id":"req-1"}` {
		t.Fatalf("body: got=%s", body)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("request id header: want=req-1 got=%q", got)
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("expected generated trace id")
	}
}
