package dedupe

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type CandidateRepo interface {
	Create(dbc dbctx.Context, rows []*types.DuplicateCandidate) ([]*types.DuplicateCandidate, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.DuplicateCandidate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DuplicateCandidate, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.DuplicateCandidate, error)

	// GetPendingByPair accepts the pair in either order.
	GetPendingByPair(dbc dbctx.Context, familyID, x, y uuid.UUID) (*types.DuplicateCandidate, error)
	HasTerminal(dbc dbctx.Context, familyID, x, y uuid.UUID) (bool, error)

	ListByFamily(dbc dbctx.Context, familyID uuid.UUID) ([]*types.DuplicateCandidate, error)
	// ListPending orders by score desc, then insertion order.
	ListPending(dbc dbctx.Context, familyID uuid.UUID) ([]*types.DuplicateCandidate, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeletePendingByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
}

type candidateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCandidateRepo(db *gorm.DB, baseLog *logger.Logger) CandidateRepo {
	return &candidateRepo{db: db, log: baseLog.With("repo", "CandidateRepo")}
}

func (r *candidateRepo) Create(dbc dbctx.Context, rows []*types.DuplicateCandidate) ([]*types.DuplicateCandidate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.DuplicateCandidate{}, nil
	}
	for _, row := range rows {
		if row != nil {
			row.PersonAID, row.PersonBID = dedupe.CanonicalPair(row.PersonAID, row.PersonBID)
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *candidateRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.DuplicateCandidate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.DuplicateCandidate
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *candidateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DuplicateCandidate, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *candidateRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.DuplicateCandidate, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.DuplicateCandidate
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *candidateRepo) GetPendingByPair(dbc dbctx.Context, familyID, x, y uuid.UUID) (*types.DuplicateCandidate, error) {
	if familyID == uuid.Nil || x == uuid.Nil || y == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	a, b := dedupe.CanonicalPair(x, y)
	var row types.DuplicateCandidate
	err := t.WithContext(dbc.Ctx).
		Where("family_id = ? AND person_a_id = ? AND person_b_id = ? AND status = ?", familyID, a, b, types.CandidateStatusPending).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *candidateRepo) HasTerminal(dbc dbctx.Context, familyID, x, y uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	a, b := dedupe.CanonicalPair(x, y)
	var n int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.DuplicateCandidate{}).
		Where("family_id = ? AND person_a_id = ? AND person_b_id = ? AND status IN ?",
			familyID, a, b, []string{types.CandidateStatusDismissed, types.CandidateStatusMerged}).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *candidateRepo) ListByFamily(dbc dbctx.Context, familyID uuid.UUID) ([]*types.DuplicateCandidate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.DuplicateCandidate
	if familyID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("family_id = ?", familyID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *candidateRepo) ListPending(dbc dbctx.Context, familyID uuid.UUID) ([]*types.DuplicateCandidate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.DuplicateCandidate
	if familyID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("family_id = ? AND status = ?", familyID, types.CandidateStatusPending).
		Order("score DESC").
		Order("seq ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *candidateRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.DuplicateCandidate{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeletePendingByIDs only removes rows still pending; terminal rows are never deleted.
func (r *candidateRepo) DeletePendingByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).
		Where("id IN ? AND status = ?", ids, types.CandidateStatusPending).
		Delete(&types.DuplicateCandidate{})
	return res.RowsAffected, res.Error
}
