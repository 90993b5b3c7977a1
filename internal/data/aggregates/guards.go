package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
)

// CASGuard moves rows between statuses with a compare-and-set on the status column.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByStatus applies updates only while the row's status is one of from.
// It reports whether a row changed.
func (g CASGuard) UpdateByStatus(dbc dbctx.Context, table string, id uuid.UUID, from []string, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByStatus")
	}
	if len(from) == 0 {
		return false, ValidationError("from statuses must not be empty")
	}
	res := db.Table(table).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Transition is UpdateByStatus that explains a miss: not_found when the row is
// gone, conflict naming the current status otherwise.
func (g CASGuard) Transition(dbc dbctx.Context, op, table string, id uuid.UUID, from []string, updates map[string]any) error {
	ok, err := g.UpdateByStatus(dbc, table, id, from, updates)
	if err != nil || ok {
		return err
	}
	db, err := g.baseDB(dbc)
	if err != nil {
		return err
	}
	var current []string
	if err := db.Table(table).Where("id = ?", id).Pluck("status", &current).Error; err != nil {
		return err
	}
	if len(current) == 0 {
		return domainagg.NotFound(op, table, id)
	}
	return RequireCASSuccess(false, fmt.Sprintf("%s %s is %s", table, id, current[0]))
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
