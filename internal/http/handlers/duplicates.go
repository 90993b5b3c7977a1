package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/heirloom-backend/internal/http/response"
	"github.com/yungbote/heirloom-backend/internal/platform/ctxutil"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
	"github.com/yungbote/heirloom-backend/internal/services"

	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
)

type DuplicateHandler struct {
	log *logger.Logger
	svc services.DuplicateService
}

func NewDuplicateHandler(log *logger.Logger, svc services.DuplicateService) *DuplicateHandler {
	return &DuplicateHandler{log: log.With("handler", "DuplicateHandler"), svc: svc}
}

type mergeRequest struct {
	WinnerID         string            `json:"winner_id"`
	LoserID          string            `json:"loser_id"`
	FieldResolutions map[string]string `json:"field_resolutions"`
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil || id == uuid.Nil {
		if err == nil {
			err = errors.New("nil id")
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func actorID(c *gin.Context) string {
	return ctxutil.ActorID(c.Request.Context())
}

// POST /api/families/:id/duplicates/scan?force=true
func (h *DuplicateHandler) Scan(c *gin.Context) {
	familyID, ok := parseIDParam(c, "family_id")
	if !ok {
		return
	}
	force := false
	if raw := c.Query("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_force", err)
			return
		}
		force = v
	}
	candidates, err := h.svc.Scan(c.Request.Context(), familyID, force)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"candidates": candidates})
}

// GET /api/families/:id/duplicates
func (h *DuplicateHandler) ListPending(c *gin.Context) {
	familyID, ok := parseIDParam(c, "family_id")
	if !ok {
		return
	}
	candidates, err := h.svc.ListPending(c.Request.Context(), familyID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"candidates": candidates})
}

// GET /api/duplicates/:id
func (h *DuplicateHandler) GetCandidate(c *gin.Context) {
	candidateID, ok := parseIDParam(c, "candidate_id")
	if !ok {
		return
	}
	candidate, err := h.svc.GetCandidate(c.Request.Context(), candidateID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"candidate": candidate})
}

// POST /api/duplicates/:id/dismiss
func (h *DuplicateHandler) Dismiss(c *gin.Context) {
	candidateID, ok := parseIDParam(c, "candidate_id")
	if !ok {
		return
	}
	candidate, err := h.svc.Dismiss(c.Request.Context(), candidateID, actorID(c))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"candidate": candidate})
}

// POST /api/duplicates/:id/merge
func (h *DuplicateHandler) MergeCandidate(c *gin.Context) {
	candidateID, ok := parseIDParam(c, "candidate_id")
	if !ok {
		return
	}
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_person_id", err)
		return
	}
	in.CandidateID = candidateID
	h.merge(c, in)
}

// POST /api/families/:id/merges
func (h *DuplicateHandler) MergePair(c *gin.Context) {
	familyID, ok := parseIDParam(c, "family_id")
	if !ok {
		return
	}
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_person_id", err)
		return
	}
	in.FamilyID = familyID
	h.merge(c, in)
}

func (r mergeRequest) toInput() (domainagg.MergeInput, error) {
	winner, err := parseOptionalID(r.WinnerID)
	if err != nil {
		return domainagg.MergeInput{}, err
	}
	loser, err := parseOptionalID(r.LoserID)
	if err != nil {
		return domainagg.MergeInput{}, err
	}
	return domainagg.MergeInput{
		WinnerID:         winner,
		LoserID:          loser,
		FieldResolutions: r.FieldResolutions,
	}, nil
}

func (h *DuplicateHandler) merge(c *gin.Context, in domainagg.MergeInput) {
	in.ActorID = actorID(c)
	res, err := h.svc.Merge(c.Request.Context(), in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"merge_history_id": res.MergeHistoryID,
		"winner_id":        res.WinnerID,
		"loser_id":         res.LoserID,
		"candidate_id":     res.CandidateID,
		"winner":           res.Winner,
		"repoints":         res.Repoints,
		"merged_at":        res.MergedAt,
	})
}

// GET /api/families/:id/merges?limit=50
func (h *DuplicateHandler) ListHistory(c *gin.Context) {
	familyID, ok := parseIDParam(c, "family_id")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}
	entries, err := h.svc.ListHistory(c.Request.Context(), familyID, limit)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"merges": entries})
}

// GET /api/merges/:id
func (h *DuplicateHandler) GetHistory(c *gin.Context) {
	historyID, ok := parseIDParam(c, "merge_history_id")
	if !ok {
		return
	}
	entry, err := h.svc.GetHistory(c.Request.Context(), historyID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"merge": entry})
}

// GET /api/persons/:id/resolve
func (h *DuplicateHandler) ResolvePerson(c *gin.Context) {
	personID, ok := parseIDParam(c, "person_id")
	if !ok {
		return
	}
	resolved, err := h.svc.ResolvePerson(c.Request.Context(), personID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, resolved)
}
