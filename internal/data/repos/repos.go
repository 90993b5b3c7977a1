package repos

import (
	"github.com/yungbote/heirloom-backend/internal/data/repos/dedupe"
	"github.com/yungbote/heirloom-backend/internal/data/repos/people"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type PersonRepo = people.PersonRepo
type RelationshipRepo = people.RelationshipRepo

type CandidateRepo = dedupe.CandidateRepo
type MergeHistoryRepo = dedupe.MergeHistoryRepo
type ScanStateRepo = dedupe.ScanStateRepo

func NewPersonRepo(db *gorm.DB, baseLog *logger.Logger) PersonRepo {
	return people.NewPersonRepo(db, baseLog)
}
func NewRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) RelationshipRepo {
	return people.NewRelationshipRepo(db, baseLog)
}

func NewCandidateRepo(db *gorm.DB, baseLog *logger.Logger) CandidateRepo {
	return dedupe.NewCandidateRepo(db, baseLog)
}
func NewMergeHistoryRepo(db *gorm.DB, baseLog *logger.Logger) MergeHistoryRepo {
	return dedupe.NewMergeHistoryRepo(db, baseLog)
}
func NewScanStateRepo(db *gorm.DB, baseLog *logger.Logger) ScanStateRepo {
	return dedupe.NewScanStateRepo(db, baseLog)
}
