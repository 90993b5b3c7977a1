package people

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type PersonRepo interface {
	Create(dbc dbctx.Context, rows []*types.Person) ([]*types.Person, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Person, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Person, error)

	// LockByIDs row-locks the given persons in id order so concurrent callers never deadlock.
	LockByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Person, error)

	ListActiveByFamily(dbc dbctx.Context, familyID uuid.UUID) ([]*types.Person, error)
	ListActiveUpdatedSince(dbc dbctx.Context, familyID uuid.UUID, since time.Time) ([]uuid.UUID, error)
	ListFamilyIDs(dbc dbctx.Context) ([]uuid.UUID, error)

	Save(dbc dbctx.Context, row *types.Person) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type personRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonRepo(db *gorm.DB, baseLog *logger.Logger) PersonRepo {
	return &personRepo{db: db, log: baseLog.With("repo", "PersonRepo")}
}

func (r *personRepo) Create(dbc dbctx.Context, rows []*types.Person) ([]*types.Person, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Person{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *personRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Person, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Person
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Person, error) {
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

func (r *personRepo) LockByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Person, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Person
	if len(ids) == 0 {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personRepo) ListActiveByFamily(dbc dbctx.Context, familyID uuid.UUID) ([]*types.Person, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Person
	if familyID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("family_id = ? AND status = ?", familyID, types.PersonStatusActive).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personRepo) ListActiveUpdatedSince(dbc dbctx.Context, familyID uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []uuid.UUID
	if familyID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.Person{}).
		Where("family_id = ? AND status = ? AND updated_at > ?", familyID, types.PersonStatusActive, since).
		Order("id ASC").
		Pluck("id", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personRepo) ListFamilyIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []uuid.UUID
	err := t.WithContext(dbc.Ctx).
		Model(&types.Person{}).
		Where("status = ?", types.PersonStatusActive).
		Distinct().
		Order("family_id ASC").
		Pluck("family_id", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personRepo) Save(dbc dbctx.Context, row *types.Person) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).Save(row).Error
}

func (r *personRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Person{}).
		Where("id = ?", id).
		Updates(updates).Error
}
