package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	httpH "github.com/yungbote/heirloom-backend/internal/http/handlers"
	httpMW "github.com/yungbote/heirloom-backend/internal/http/middleware"
	"github.com/yungbote/heirloom-backend/internal/observability"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
	"github.com/yungbote/heirloom-backend/internal/services"
)

type fakeDuplicateService struct {
	scanFamily uuid.UUID
	scanForce  bool
	dismissBy  string
	mergeIn    domainagg.MergeInput
	limit      int
	err        error
	resolved   *services.ResolvedPerson
}

func (f *fakeDuplicateService) Scan(_ context.Context, familyID uuid.UUID, force bool) ([]*types.DuplicateCandidate, error) {
	f.scanFamily, f.scanForce = familyID, force
	if f.err != nil {
		return nil, f.err
	}
	return []*types.DuplicateCandidate{{ID: uuid.New(), FamilyID: familyID, Score: 0.9}}, nil
}

func (f *fakeDuplicateService) ScanFamilies(context.Context, []uuid.UUID, bool) ([]services.ScanSummary, error) {
	return nil, f.err
}

func (f *fakeDuplicateService) ListPending(_ context.Context, familyID uuid.UUID) ([]*types.DuplicateCandidate, error) {
	return []*types.DuplicateCandidate{}, f.err
}

func (f *fakeDuplicateService) GetCandidate(_ context.Context, id uuid.UUID) (*types.DuplicateCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.DuplicateCandidate{ID: id}, nil
}

func (f *fakeDuplicateService) Dismiss(_ context.Context, id uuid.UUID, actorID string) (*types.DuplicateCandidate, error) {
	f.dismissBy = actorID
	if f.err != nil {
		return nil, f.err
	}
	return &types.DuplicateCandidate{ID: id, Status: types.CandidateStatusDismissed, DismissedBy: actorID}, nil
}

func (f *fakeDuplicateService) Merge(_ context.Context, in domainagg.MergeInput) (domainagg.MergeResult, error) {
	f.mergeIn = in
	if f.err != nil {
		return domainagg.MergeResult{}, f.err
	}
	return domainagg.MergeResult{WinnerID: in.WinnerID, LoserID: in.LoserID, MergeHistoryID: uuid.New()}, nil
}

func (f *fakeDuplicateService) ListHistory(_ context.Context, _ uuid.UUID, limit int) ([]*types.MergeHistoryEntry, error) {
	f.limit = limit
	return []*types.MergeHistoryEntry{}, f.err
}

func (f *fakeDuplicateService) GetHistory(_ context.Context, id uuid.UUID) (*types.MergeHistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.MergeHistoryEntry{ID: id}, nil
}

func (f *fakeDuplicateService) ResolvePerson(_ context.Context, id uuid.UUID) (*services.ResolvedPerson, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resolved, nil
}

func newTestRouter(svc services.DuplicateService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	return NewRouter(RouterConfig{
		Log:              log,
		Metrics:          observability.New(),
		ActorMiddleware:  httpMW.NewActorMiddleware(log),
		DuplicateHandler: httpH.NewDuplicateHandler(log, svc),
		HealthHandler:    httpH.NewHealthHandler(nil),
	})
}

func do(r *gin.Engine, method, path, actor, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if actor != "" {
		req.Header.Set("X-Actor-Id", actor)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestHealthcheck(t *testing.T) {
	r := newTestRouter(&fakeDuplicateService{})
	rec := do(r, http.MethodGet, "/healthcheck", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestScanRoute(t *testing.T) {
	svc := &fakeDuplicateService{}
	r := newTestRouter(svc)
	family := uuid.New()

	rec := do(r, http.MethodPost, "/api/families/"+family.String()+"/duplicates/scan?force=true", "archivist", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if svc.scanFamily != family || !svc.scanForce {
		t.Fatalf("scan args: family=%s force=%v", svc.scanFamily, svc.scanForce)
	}

	rec = do(r, http.MethodPost, "/api/families/"+family.String()+"/duplicates/scan?force=maybe", "archivist", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad force: want=400 got=%d", rec.Code)
	}

	rec = do(r, http.MethodPost, "/api/families/not-a-uuid/duplicates/scan", "archivist", "")
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_family_id" {
		t.Fatalf("bad id: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestMutatingRoutesRequireActor(t *testing.T) {
	r := newTestRouter(&fakeDuplicateService{})
	id := uuid.New().String()
	for _, path := range []string{
		"/api/families/" + id + "/duplicates/scan",
		"/api/duplicates/" + id + "/dismiss",
		"/api/duplicates/" + id + "/merge",
		"/api/families/" + id + "/merges",
	} {
		rec := do(r, http.MethodPost, path, "", `{}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: want=401 got=%d", path, rec.Code)
		}
	}

	rec := do(r, http.MethodGet, "/api/families/"+id+"/duplicates", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reads are open: want=200 got=%d", rec.Code)
	}
}

func TestDismissPassesActor(t *testing.T) {
	svc := &fakeDuplicateService{}
	r := newTestRouter(svc)
	rec := do(r, http.MethodPost, "/api/duplicates/"+uuid.New().String()+"/dismiss", "reviewer-2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	if svc.dismissBy != "reviewer-2" {
		t.Fatalf("actor: want=reviewer-2 got=%q", svc.dismissBy)
	}
}

func TestMergeRoutesBuildInput(t *testing.T) {
	svc := &fakeDuplicateService{}
	r := newTestRouter(svc)
	candidate, winner, loser, family := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	body := `{"winner_id":"` + winner.String() + `","field_resolutions":{"bio":"union"}}`
	rec := do(r, http.MethodPost, "/api/duplicates/"+candidate.String()+"/merge", "op", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("merge candidate: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if svc.mergeIn.CandidateID != candidate || svc.mergeIn.WinnerID != winner || svc.mergeIn.ActorID != "op" {
		t.Fatalf("merge input: %+v", svc.mergeIn)
	}
	if svc.mergeIn.FieldResolutions["bio"] != "union" {
		t.Fatalf("field resolutions: %+v", svc.mergeIn.FieldResolutions)
	}

	body = `{"winner_id":"` + winner.String() + `","loser_id":"` + loser.String() + `"}`
	rec = do(r, http.MethodPost, "/api/families/"+family.String()+"/merges", "op", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("merge pair: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if svc.mergeIn.FamilyID != family || svc.mergeIn.LoserID != loser || svc.mergeIn.CandidateID != uuid.Nil {
		t.Fatalf("merge pair input: %+v", svc.mergeIn)
	}

	rec = do(r, http.MethodPost, "/api/families/"+family.String()+"/merges", "op", `{"winner_id":"nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad winner: want=400 got=%d", rec.Code)
	}
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		code   domainagg.ErrorCode
		status int
	}{
		{domainagg.CodeValidation, http.StatusBadRequest},
		{domainagg.CodeNotFound, http.StatusNotFound},
		{domainagg.CodeScopeMismatch, http.StatusUnprocessableEntity},
		{domainagg.CodeConflict, http.StatusConflict},
		{domainagg.CodeIntegrity, http.StatusInternalServerError},
		{domainagg.CodeRetryable, http.StatusServiceUnavailable},
		{domainagg.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			svc := &fakeDuplicateService{err: domainagg.NewError(tc.code, "Dedupe.Merge", "boom", nil)}
			r := newTestRouter(svc)
			body := `{"winner_id":"` + uuid.New().String() + `","loser_id":"` + uuid.New().String() + `"}`
			rec := do(r, http.MethodPost, "/api/families/"+uuid.New().String()+"/merges", "op", body)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d", tc.status, rec.Code)
			}
			if got := errorCode(t, rec); got != string(tc.code) {
				t.Fatalf("code: want=%s got=%s", tc.code, got)
			}
		})
	}
}

func TestHistoryAndResolveRoutes(t *testing.T) {
	winner := &types.Person{ID: uuid.New(), GivenName: "John"}
	requested := uuid.New()
	svc := &fakeDuplicateService{resolved: &services.ResolvedPerson{RequestedID: requested, Person: winner, Redirected: true}}
	r := newTestRouter(svc)

	rec := do(r, http.MethodGet, "/api/families/"+uuid.New().String()+"/merges?limit=7", "", "")
	if rec.Code != http.StatusOK || svc.limit != 7 {
		t.Fatalf("history: status=%d limit=%d", rec.Code, svc.limit)
	}
	rec = do(r, http.MethodGet, "/api/families/"+uuid.New().String()+"/merges?limit=x", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: want=400 got=%d", rec.Code)
	}

	rec = do(r, http.MethodGet, "/api/merges/"+uuid.New().String(), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get merge: want=200 got=%d", rec.Code)
	}

	rec = do(r, http.MethodGet, "/api/persons/"+requested.String()+"/resolve", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: want=200 got=%d", rec.Code)
	}
	var out services.ResolvedPerson
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Redirected || out.Person == nil || out.Person.ID != winner.ID {
		t.Fatalf("resolved: %+v", out)
	}
}
