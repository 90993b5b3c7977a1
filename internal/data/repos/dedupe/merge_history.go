package dedupe

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

// MergeHistoryRepo is append-only: there is no update or delete.
type MergeHistoryRepo interface {
	Create(dbc dbctx.Context, row *types.MergeHistoryEntry) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MergeHistoryEntry, error)
	GetByLoserID(dbc dbctx.Context, loserID uuid.UUID) (*types.MergeHistoryEntry, error)

	// ListByFamily returns newest first. limit <= 0 means no limit.
	ListByFamily(dbc dbctx.Context, familyID uuid.UUID, limit int) ([]*types.MergeHistoryEntry, error)
	ListByWinnerID(dbc dbctx.Context, winnerID uuid.UUID) ([]*types.MergeHistoryEntry, error)
}

type mergeHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMergeHistoryRepo(db *gorm.DB, baseLog *logger.Logger) MergeHistoryRepo {
	return &mergeHistoryRepo{db: db, log: baseLog.With("repo", "MergeHistoryRepo")}
}

func (r *mergeHistoryRepo) Create(dbc dbctx.Context, row *types.MergeHistoryEntry) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *mergeHistoryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MergeHistoryEntry, error) {
	return r.getOne(dbc, "id = ?", id)
}

func (r *mergeHistoryRepo) GetByLoserID(dbc dbctx.Context, loserID uuid.UUID) (*types.MergeHistoryEntry, error) {
	return r.getOne(dbc, "loser_person_id = ?", loserID)
}

func (r *mergeHistoryRepo) getOne(dbc dbctx.Context, where string, id uuid.UUID) (*types.MergeHistoryEntry, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.MergeHistoryEntry
	if err := t.WithContext(dbc.Ctx).Where(where, id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *mergeHistoryRepo) ListByFamily(dbc dbctx.Context, familyID uuid.UUID, limit int) ([]*types.MergeHistoryEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MergeHistoryEntry
	if familyID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where("family_id = ?", familyID).Order("merged_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mergeHistoryRepo) ListByWinnerID(dbc dbctx.Context, winnerID uuid.UUID) ([]*types.MergeHistoryEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MergeHistoryEntry
	if winnerID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("winner_person_id = ?", winnerID).Order("merged_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
