package dedupe

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type ScanStateRepo interface {
	Get(dbc dbctx.Context, familyID uuid.UUID) (*types.ScanState, error)
	Upsert(dbc dbctx.Context, row *types.ScanState) error
}

type scanStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScanStateRepo(db *gorm.DB, baseLog *logger.Logger) ScanStateRepo {
	return &scanStateRepo{db: db, log: baseLog.With("repo", "ScanStateRepo")}
}

func (r *scanStateRepo) Get(dbc dbctx.Context, familyID uuid.UUID) (*types.ScanState, error) {
	if familyID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.ScanState
	if err := t.WithContext(dbc.Ctx).Where("family_id = ?", familyID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.FamilyID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *scanStateRepo) Upsert(dbc dbctx.Context, row *types.ScanState) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.FamilyID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "family_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_scanned_at", "pairs_scored", "updated_at"}),
		}).
		Create(row).Error
}
