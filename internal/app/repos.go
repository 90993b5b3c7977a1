package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/heirloom-backend/internal/data/repos"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type Repos struct {
	Person       repos.PersonRepo
	Relationship repos.RelationshipRepo
	Candidate    repos.CandidateRepo
	MergeHistory repos.MergeHistoryRepo
	ScanState    repos.ScanStateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Person:       repos.NewPersonRepo(db, log),
		Relationship: repos.NewRelationshipRepo(db, log),
		Candidate:    repos.NewCandidateRepo(db, log),
		MergeHistory: repos.NewMergeHistoryRepo(db, log),
		ScanState:    repos.NewScanStateRepo(db, log),
	}
}
