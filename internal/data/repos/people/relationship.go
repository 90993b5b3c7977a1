package people

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type RelationshipRepo interface {
	Create(dbc dbctx.Context, rows []*types.PersonRelationship) ([]*types.PersonRelationship, error)
	ListByFamily(dbc dbctx.Context, familyID uuid.UUID) ([]*types.PersonRelationship, error)
	ListByPersonID(dbc dbctx.Context, personID uuid.UUID) ([]*types.PersonRelationship, error)
	// ListEndpointsChangedSince returns both endpoints of every edge created or
	// repointed after since.
	ListEndpointsChangedSince(dbc dbctx.Context, familyID uuid.UUID, since time.Time) ([]uuid.UUID, error)
}

type relationshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) RelationshipRepo {
	return &relationshipRepo{db: db, log: baseLog.With("repo", "RelationshipRepo")}
}

func (r *relationshipRepo) Create(dbc dbctx.Context, rows []*types.PersonRelationship) ([]*types.PersonRelationship, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.PersonRelationship{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *relationshipRepo) ListByFamily(dbc dbctx.Context, familyID uuid.UUID) ([]*types.PersonRelationship, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.PersonRelationship
	if familyID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("family_id = ?", familyID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *relationshipRepo) ListByPersonID(dbc dbctx.Context, personID uuid.UUID) ([]*types.PersonRelationship, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.PersonRelationship
	if personID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("person_id = ? OR related_person_id = ?", personID, personID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *relationshipRepo) ListEndpointsChangedSince(dbc dbctx.Context, familyID uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []uuid.UUID
	if familyID == uuid.Nil {
		return out, nil
	}
	var rows []*types.PersonRelationship
	err := t.WithContext(dbc.Ctx).
		Select("person_id", "related_person_id").
		Where("family_id = ? AND updated_at > ?", familyID, since).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]bool{}
	for _, e := range rows {
		for _, id := range []uuid.UUID{e.PersonID, e.RelatedPersonID} {
			if id != uuid.Nil && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}
