package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/heirloom-backend/internal/data/aggregates"
	"github.com/yungbote/heirloom-backend/internal/dedupe/scoring"
	"github.com/yungbote/heirloom-backend/internal/observability"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
	"github.com/yungbote/heirloom-backend/internal/services"
)

type Services struct {
	Scanner    services.DuplicateScanner
	Duplicates services.DuplicateService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	policy, err := scoring.LoadPolicy()
	if err != nil {
		return Services{}, fmt.Errorf("load scoring policy: %w", err)
	}
	scorer, err := scoring.NewScorer(policy)
	if err != nil {
		return Services{}, fmt.Errorf("init scorer: %w", err)
	}

	registry := aggregates.NewDependentRegistry()
	if err := registry.Verify(db); err != nil {
		return Services{}, fmt.Errorf("verify dependent registry: %w", err)
	}

	base := aggregates.BaseDeps{
		DB:     db,
		Log:    log,
		Runner: aggregates.NewGormTxRunner(db, aggregates.WithLockTimeout(cfg.LockWait)),
		Hooks:  aggregates.CombineHooks(aggregates.NewObservabilityHooks(metrics), aggregates.NewLoggingHooks(log)),
	}
	candidateAgg := aggregates.NewCandidateAggregate(aggregates.CandidateAggregateDeps{
		Base:       base,
		Candidates: repos.Candidate,
		ScanStates: repos.ScanState,
	})
	mergeAgg := aggregates.NewMergeAggregate(aggregates.MergeAggregateDeps{
		Base:       base,
		Persons:    repos.Person,
		Candidates: repos.Candidate,
		History:    repos.MergeHistory,
		Registry:   registry,
		Locker:     clients.Locker,
	})

	scanner := services.NewDuplicateScanner(
		log,
		repos.Person,
		repos.Relationship,
		repos.Candidate,
		repos.ScanState,
		candidateAgg,
		scorer,
		metrics,
		cfg.ScanParallelism,
	)
	duplicates := services.NewDuplicateService(
		log,
		scanner,
		repos.Person,
		repos.Candidate,
		repos.MergeHistory,
		candidateAgg,
		mergeAgg,
		metrics,
	)
	return Services{Scanner: scanner, Duplicates: duplicates}, nil
}
