package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/heirloom-backend/internal/data/aggregates"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
)

// InjectedTxRunner fails an aggregate write at a chosen point. With DB set the
// body runs in a real transaction, so FailCommit proves a fully applied write
// is rolled back; without it the body sees no Tx.
type InjectedTxRunner struct {
	DB *gorm.DB

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	mu            sync.Mutex
	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) count(field *int) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.count(&r.BeginCalls)
	if r.FailBegin != nil {
		return r.FailBegin
	}

	var tx *gorm.DB
	if r.DB != nil {
		tx = r.DB.WithContext(ctx).Begin()
		if tx.Error != nil {
			return tx.Error
		}
	}
	rollback := func(err error) error {
		if tx != nil {
			tx.Rollback()
		}
		r.count(&r.RollbackCalls)
		return err
	}

	if r.FailBeforeBody != nil {
		return rollback(r.FailBeforeBody)
	}
	if fn != nil {
		if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return rollback(err)
		}
	}
	if r.FailCommit != nil {
		return rollback(r.FailCommit)
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return err
		}
	}
	r.count(&r.CommitCalls)
	return nil
}
