package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"github.com/yungbote/heirloom-backend/internal/platform/ctxutil"
)

func respond(err error) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodPost, "/api/duplicates/x/merge", nil)
	c.Request = req.WithContext(ctxutil.WithRequestData(req.Context(), &ctxutil.RequestData{RequestID: "req-42"}))
	RespondDomainError(c, err)
	return rec, c
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Error
}

func TestRespondDomainErrorUsesMessageForClientErrors(t *testing.T) {
	rec, c := respond(domainagg.NewError(domainagg.CodeConflict, "Dedupe.Merge", "person already merged", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: want=409 got=%d", rec.Code)
	}
	got := decode(t, rec)
	if got.Message != "person already merged" || got.Code != "conflict" || got.RequestID != "req-42" {
		t.Fatalf("body: %+v", got)
	}
	if len(c.Errors) != 0 {
		t.Fatalf("client errors must not be attached: %v", c.Errors)
	}
}

func TestRespondDomainErrorHidesInternalCause(t *testing.T) {
	rec, c := respond(errors.New("pq: password authentication failed"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", rec.Code)
	}
	got := decode(t, rec)
	if got.Code != "internal" || got.Message != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("body: %+v", got)
	}
	if len(c.Errors) != 1 {
		t.Fatalf("expected error attached for logging, got %d", len(c.Errors))
	}
}
